package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pretyflaco/voucherprint/internal/printing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening must not re-apply migrations.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
}

func TestInsertAndGetEntry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	started := time.Now().Add(-2 * time.Second).UTC()
	entry := &Entry{
		JobID:      "job-1",
		SatsAmount: 5000,
		Adapter:    "network printer",
		Status:     "COMPLETED",
		Attempts:   1,
		PaperWidth: 80,
		StartedAt:  &started,
	}
	require.NoError(t, s.InsertEntry(ctx, entry))
	assert.NotZero(t, entry.ID)

	got, err := s.GetEntry(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), got.SatsAmount)
	assert.Equal(t, "COMPLETED", got.Status)
	assert.NotNil(t, got.StartedAt)
}

func TestListEntriesFilterAndOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, status := range []string{"COMPLETED", "FAILED", "COMPLETED"} {
		require.NoError(t, s.InsertEntry(ctx, &Entry{
			JobID:      "job-" + string(rune('1'+i)),
			SatsAmount: int64(1000 * (i + 1)),
			Status:     status,
		}))
	}

	all, err := s.ListEntries(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "job-3", all[0].JobID, "newest first")

	failed, err := s.ListEntries(ctx, "FAILED", 10, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "job-2", failed[0].JobID)
}

func TestStatsAggregation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEntry(ctx, &Entry{JobID: "a", SatsAmount: 1000, Status: "COMPLETED"}))
	require.NoError(t, s.InsertEntry(ctx, &Entry{JobID: "b", SatsAmount: 2000, Status: "COMPLETED"}))
	require.NoError(t, s.InsertEntry(ctx, &Entry{JobID: "c", SatsAmount: 500, Status: "FAILED"}))
	require.NoError(t, s.IncrementCounter(ctx, "usb", time.Now()))
	require.NoError(t, s.IncrementCounter(ctx, "usb", time.Now()))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(3000), stats.TotalSats, "failed jobs do not count printed sats")
	assert.Equal(t, int64(2), stats.ByAdapter["usb"])
}

func TestPruneDeletesOldRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertEntry(ctx, &Entry{JobID: "old", Status: "COMPLETED"}))
	require.NoError(t, s.InsertEntry(ctx, &Entry{JobID: "new", Status: "COMPLETED"}))
	_, err := s.DB().Exec(
		"UPDATE print_history SET finished_at = ? WHERE job_id = 'old'",
		time.Now().AddDate(0, 0, -120))
	require.NoError(t, err)

	deleted, err := s.Prune(ctx, time.Now().AddDate(0, 0, -90))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := s.ListEntries(ctx, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "new", remaining[0].JobID)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetSetting(ctx, "admin_password")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, s.SetSetting(ctx, "admin_password", "hash-1"))
	require.NoError(t, s.SetSetting(ctx, "admin_password", "hash-2"))

	value, err := s.GetSetting(ctx, "admin_password")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", value)

	require.NoError(t, s.DeleteSetting(ctx, "admin_password"))
	_, err = s.GetSetting(ctx, "admin_password")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestWebhookRegistry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	w := &Webhook{
		Name:       "ops",
		URL:        "https://example.com/hook",
		Secret:     "s3cret",
		EventsJSON: `["job_completed","job_failed"]`,
		Enabled:    true,
	}
	require.NoError(t, s.CreateWebhook(ctx, w))
	require.NotZero(t, w.ID)

	forCompleted, err := s.ListActiveWebhooksForEvent(ctx, "job_completed")
	require.NoError(t, err)
	require.Len(t, forCompleted, 1)

	forStarted, err := s.ListActiveWebhooksForEvent(ctx, "job_started")
	require.NoError(t, err)
	assert.Empty(t, forStarted)

	w.Enabled = false
	require.NoError(t, s.UpdateWebhook(ctx, w))
	forCompleted, err = s.ListActiveWebhooksForEvent(ctx, "job_completed")
	require.NoError(t, err)
	assert.Empty(t, forCompleted, "disabled webhooks are skipped")

	require.NoError(t, s.DeleteWebhook(ctx, w.ID))
	assert.ErrorIs(t, s.DeleteWebhook(ctx, w.ID), sql.ErrNoRows)
}

func TestRecorderWritesTerminalEvents(t *testing.T) {
	s := openTestStore(t)
	r := NewRecorder(s, nil)
	started := time.Now()

	r.handleStarted(printing.Event{Name: printing.EventJobStarted, JobID: "job-9", Timestamp: started})
	r.handleFinished(printing.Event{
		Name:       printing.EventJobCompleted,
		JobID:      "job-9",
		Status:     printing.StatusCompleted,
		Adapter:    "serial printer",
		Attempt:    2,
		SatsAmount: 2500,
		Timestamp:  time.Now(),
	})

	entry, err := s.GetEntry(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", entry.Status)
	assert.Equal(t, int64(2500), entry.SatsAmount)
	assert.Equal(t, 2, entry.Attempts)
	assert.NotNil(t, entry.StartedAt)

	stats, err := s.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ByAdapter["serial printer"])
}

func TestRecorderRecordsFailureError(t *testing.T) {
	s := openTestStore(t)
	r := NewRecorder(s, nil)

	r.handleFinished(printing.Event{
		Name:      printing.EventJobFailed,
		JobID:     "job-10",
		Status:    printing.StatusFailed,
		Error:     "voucher has no LNURL",
		Timestamp: time.Now(),
	})

	entry, err := s.GetEntry(context.Background(), "job-10")
	require.NoError(t, err)
	assert.Equal(t, "FAILED", entry.Status)
	assert.Contains(t, entry.ErrorMessage, "LNURL")
}
