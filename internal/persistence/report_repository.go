package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/IliaW/util-cli/internal/model"
)

const createReportTable = `CREATE TABLE IF NOT EXISTS crawl_report (
	id            BIGINT AUTO_INCREMENT PRIMARY KEY,
	seed_url      VARCHAR(2048) NOT NULL,
	total         INT NOT NULL,
	successful    INT NOT NULL,
	failed        INT NOT NULL,
	interrupted   BOOLEAN NOT NULL,
	mechanism     VARCHAR(32) NOT NULL,
	started_at    DATETIME(3) NOT NULL,
	finished_at   DATETIME(3) NOT NULL,
	report_link   VARCHAR(2048) NOT NULL DEFAULT ''
)`

const insertReport = "INSERT INTO crawl_report (seed_url, total, successful, failed, interrupted, mechanism, started_at, finished_at, report_link) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"

type ReportStorage interface {
	Save(ctx context.Context, summary *model.CrawlSummary, reportLink string) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type ReportRepository struct {
	db  execer
	log *slog.Logger
}

func NewReportRepository(db *sql.DB, log *slog.Logger) *ReportRepository {
	return &ReportRepository{db: db, log: log}
}

func (rr *ReportRepository) EnsureSchema(ctx context.Context) error {
	if _, err := rr.db.ExecContext(ctx, createReportTable); err != nil {
		return fmt.Errorf("failed to create crawl_report table: %w", err)
	}
	return nil
}

func (rr *ReportRepository) Save(ctx context.Context, summary *model.CrawlSummary, reportLink string) error {
	_, err := rr.db.ExecContext(ctx, insertReport,
		summary.SeedURL,
		summary.Total,
		summary.Successful,
		summary.Failed,
		summary.Interrupted,
		summary.Mechanism,
		summary.StartedAt,
		summary.FinishedAt,
		reportLink)
	if err != nil {
		return fmt.Errorf("failed to save crawl report to database: %w", err)
	}
	rr.log.Debug("crawl report saved to db.")
	return nil
}
