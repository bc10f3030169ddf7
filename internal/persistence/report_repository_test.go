package persistence

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IliaW/util-cli/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	query string
	args  []any
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (f *fakeExecer) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.calls = append(f.calls, execCall{query: query, args: args})
	if f.err != nil {
		return nil, f.err
	}
	return driverResult(1), nil
}

type driverResult int64

func (r driverResult) LastInsertId() (int64, error) { return int64(r), nil }
func (r driverResult) RowsAffected() (int64, error) { return 1, nil }

func newTestRepo(db execer) *ReportRepository {
	return &ReportRepository{db: db, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestSave(t *testing.T) {
	db := &fakeExecer{}
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	summary := &model.CrawlSummary{
		CrawlSettings: model.CrawlSettings{SeedURL: "http://example.com", Mechanism: "curl"},
		Total:         3,
		Successful:    2,
		Failed:        1,
		StartedAt:     started,
		FinishedAt:    started.Add(time.Second),
	}

	require.NoError(t, newTestRepo(db).Save(context.Background(), summary, "https://link"))

	require.Len(t, db.calls, 1)
	assert.Equal(t, insertReport, db.calls[0].query)
	assert.Equal(t, []any{"http://example.com", 3, 2, 1, false, "curl", started, started.Add(time.Second), "https://link"},
		db.calls[0].args)
}

func TestSaveError(t *testing.T) {
	db := &fakeExecer{err: errors.New("connection refused")}

	err := newTestRepo(db).Save(context.Background(), &model.CrawlSummary{}, "")
	assert.ErrorContains(t, err, "connection refused")
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeExecer{}
	require.NoError(t, newTestRepo(db).EnsureSchema(context.Background()))
	assert.Contains(t, db.calls[0].query, "CREATE TABLE IF NOT EXISTS crawl_report")
}
