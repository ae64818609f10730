// Package history keeps the printed-voucher audit trail in sqlite:
// finished jobs, daily per-adapter counters, the settings table and
// the webhook registry. Live jobs never live here; the orchestrator
// drops them at terminal status and the Recorder writes the trail.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and
// applies pending migrations. The parent directory is created for
// first runs.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for packages that run their own queries
// against the webhook registry.
func (s *Store) DB() *sql.DB { return s.db }

type migration struct {
	version string
	sql     string
}

var migrations = []migration{
	{
		version: "001_initial",
		sql: `
CREATE TABLE print_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id TEXT NOT NULL,
	sats_amount INTEGER NOT NULL,
	display_amount REAL,
	display_currency TEXT,
	identifier_code TEXT,
	receipt_type TEXT,
	paper_width INTEGER,
	adapter TEXT,
	status TEXT NOT NULL,
	error_message TEXT,
	attempts INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME,
	finished_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_history_status ON print_history(status);
CREATE INDEX idx_history_finished ON print_history(finished_at);

CREATE TABLE print_counters (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	adapter TEXT NOT NULL,
	date TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	UNIQUE(adapter, date)
);

CREATE TABLE settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE webhooks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	url TEXT NOT NULL,
	secret TEXT NOT NULL DEFAULT '',
	events_json TEXT NOT NULL DEFAULT '[]',
	enabled INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`,
	},
}

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	pending := make([]migration, 0, len(migrations))
	for _, m := range migrations {
		if !applied[m.version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })

	for _, m := range pending {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.version, err)
		}
	}
	return nil
}

// Entry is one finished print job's audit row.
type Entry struct {
	ID              int64      `json:"id"`
	JobID           string     `json:"jobId"`
	SatsAmount      int64      `json:"satsAmount"`
	DisplayAmount   float64    `json:"displayAmount,omitempty"`
	DisplayCurrency string     `json:"displayCurrency,omitempty"`
	IdentifierCode  string     `json:"identifierCode,omitempty"`
	ReceiptType     string     `json:"receiptType,omitempty"`
	PaperWidth      int        `json:"paperWidth,omitempty"`
	Adapter         string     `json:"adapter,omitempty"`
	Status          string     `json:"status"`
	ErrorMessage    string     `json:"error,omitempty"`
	Attempts        int        `json:"attempts"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	FinishedAt      time.Time  `json:"finishedAt"`
}

func (s *Store) InsertEntry(ctx context.Context, e *Entry) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO print_history
			(job_id, sats_amount, display_amount, display_currency, identifier_code,
			 receipt_type, paper_width, adapter, status, error_message, attempts, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.JobID, e.SatsAmount, e.DisplayAmount, e.DisplayCurrency, e.IdentifierCode,
		e.ReceiptType, e.PaperWidth, e.Adapter, e.Status, e.ErrorMessage, e.Attempts, e.StartedAt)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("history entry id: %w", err)
	}
	return nil
}

// GetEntry looks an entry up by the orchestrator's job id.
func (s *Store) GetEntry(ctx context.Context, jobID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, job_id, sats_amount, display_amount, display_currency, identifier_code,
		       receipt_type, paper_width, adapter, status, error_message, attempts, started_at, finished_at
		FROM print_history WHERE job_id = ? ORDER BY id DESC LIMIT 1
	`, jobID)
	return scanEntry(row)
}

// ListEntries returns recent entries, newest first, optionally
// filtered by status.
func (s *Store) ListEntries(ctx context.Context, status string, limit, offset int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, job_id, sats_amount, display_amount, display_currency, identifier_code,
			       receipt_type, paper_width, adapter, status, error_message, attempts, started_at, finished_at
			FROM print_history WHERE status = ?
			ORDER BY id DESC LIMIT ? OFFSET ?
		`, status, limit, offset)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, job_id, sats_amount, display_amount, display_currency, identifier_code,
			       receipt_type, paper_width, adapter, status, error_message, attempts, started_at, finished_at
			FROM print_history
			ORDER BY id DESC LIMIT ? OFFSET ?
		`, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	e := &Entry{}
	var (
		displayAmount   sql.NullFloat64
		displayCurrency sql.NullString
		identifier      sql.NullString
		receiptType     sql.NullString
		paperWidth      sql.NullInt64
		adapter         sql.NullString
		errMsg          sql.NullString
		startedAt       sql.NullTime
	)
	err := row.Scan(&e.ID, &e.JobID, &e.SatsAmount, &displayAmount, &displayCurrency,
		&identifier, &receiptType, &paperWidth, &adapter, &e.Status, &errMsg,
		&e.Attempts, &startedAt, &e.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan history entry: %w", err)
	}
	e.DisplayAmount = displayAmount.Float64
	e.DisplayCurrency = displayCurrency.String
	e.IdentifierCode = identifier.String
	e.ReceiptType = receiptType.String
	e.PaperWidth = int(paperWidth.Int64)
	e.Adapter = adapter.String
	e.ErrorMessage = errMsg.String
	if startedAt.Valid {
		e.StartedAt = &startedAt.Time
	}
	return e, nil
}

// Stats aggregates the audit trail for the history API.
type Stats struct {
	Total     int64            `json:"total"`
	Completed int64            `json:"completed"`
	Failed    int64            `json:"failed"`
	TotalSats int64            `json:"totalSats"`
	ByAdapter map[string]int64 `json:"byAdapter"`
}

func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByAdapter: make(map[string]int64)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(sats_amount), 0)
		FROM print_history GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int64
			sats   int64
		)
		if err := rows.Scan(&status, &count, &sats); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.Total += count
		switch status {
		case "COMPLETED":
			stats.Completed = count
			stats.TotalSats += sats
		case "FAILED":
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	adapterRows, err := s.db.QueryContext(ctx, `
		SELECT adapter, SUM(count) FROM print_counters GROUP BY adapter
	`)
	if err != nil {
		return nil, fmt.Errorf("query counters: %w", err)
	}
	defer adapterRows.Close()
	for adapterRows.Next() {
		var (
			adapter string
			count   int64
		)
		if err := adapterRows.Scan(&adapter, &count); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		stats.ByAdapter[adapter] = count
	}
	return stats, adapterRows.Err()
}

// IncrementCounter bumps the daily per-adapter print counter.
func (s *Store) IncrementCounter(ctx context.Context, adapter string, day time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO print_counters (adapter, date, count) VALUES (?, ?, 1)
		ON CONFLICT(adapter, date) DO UPDATE SET count = count + 1
	`, adapter, day.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("increment counter: %w", err)
	}
	return nil
}

// Prune deletes history rows finished before the cutoff and returns
// how many went away.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM print_history WHERE finished_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// GetSetting reads one settings row. sql.ErrNoRows surfaces unwrapped
// so callers can distinguish absence.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}
