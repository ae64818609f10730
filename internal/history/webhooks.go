package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Webhook is one registered event receiver.
type Webhook struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Secret     string    `json:"secret,omitempty"`
	EventsJSON string    `json:"events"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (s *Store) CreateWebhook(ctx context.Context, w *Webhook) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO webhooks (name, url, secret, events_json, enabled)
		VALUES (?, ?, ?, ?, ?)
	`, w.Name, w.URL, w.Secret, w.EventsJSON, boolToInt(w.Enabled))
	if err != nil {
		return fmt.Errorf("insert webhook: %w", err)
	}
	w.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("webhook id: %w", err)
	}
	return nil
}

func (s *Store) GetWebhook(ctx context.Context, id int64) (*Webhook, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks WHERE id = ?
	`, id)
	return scanWebhook(row)
}

func (s *Store) ListWebhooks(ctx context.Context) ([]*Webhook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query webhooks: %w", err)
	}
	defer rows.Close()

	var hooks []*Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, w)
	}
	return hooks, rows.Err()
}

// ListActiveWebhooksForEvent returns enabled webhooks whose event list
// names the event.
func (s *Store) ListActiveWebhooksForEvent(ctx context.Context, event string) ([]*Webhook, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks WHERE enabled = 1 AND events_json LIKE ?
	`, fmt.Sprintf("%%%q%%", event))
	if err != nil {
		return nil, fmt.Errorf("query webhooks for event: %w", err)
	}
	defer rows.Close()

	var hooks []*Webhook
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, w)
	}
	return hooks, rows.Err()
}

func (s *Store) UpdateWebhook(ctx context.Context, w *Webhook) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE webhooks SET name = ?, url = ?, secret = ?, events_json = ?, enabled = ?
		WHERE id = ?
	`, w.Name, w.URL, w.Secret, w.EventsJSON, boolToInt(w.Enabled), w.ID)
	if err != nil {
		return fmt.Errorf("update webhook %d: %w", w.ID, err)
	}
	return nil
}

func (s *Store) DeleteWebhook(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM webhooks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete webhook %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanWebhook(row rowScanner) (*Webhook, error) {
	w := &Webhook{}
	var enabled int
	err := row.Scan(&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &enabled, &w.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan webhook: %w", err)
	}
	w.Enabled = enabled == 1
	return w, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
