package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IliaW/util-cli/internal/aws_s3"
	"github.com/IliaW/util-cli/internal/cache"
	"github.com/IliaW/util-cli/internal/model"
	"github.com/IliaW/util-cli/internal/persistence"
	jsoniter "github.com/json-iterator/go"
)

// Pipeline writes a finished crawl report to every configured destination. Nil
// destinations are skipped. A failing destination does not stop the next one.
type Pipeline struct {
	OutputPath string
	S3         aws_s3.BucketClient
	Cache      cache.CachedClient
	Db         persistence.ReportStorage
	Log        *slog.Logger
}

func (p *Pipeline) Export(ctx context.Context, report *model.CrawlReport) error {
	var errs []error
	if p.OutputPath != "" {
		if err := WriteFile(p.OutputPath, report); err != nil {
			p.Log.Error("failed to write report file.", slog.String("err", err.Error()))
			errs = append(errs, err)
		} else {
			p.Log.Info("report written.", slog.String("path", p.OutputPath))
		}
	}

	link := ""
	if p.S3 != nil {
		var err error
		link, err = p.S3.WriteReport(ctx, report)
		if err != nil {
			p.Log.Error("failed to upload report.", slog.String("err", err.Error()))
			errs = append(errs, err)
		}
	}
	if p.Cache != nil && link != "" {
		p.Cache.SaveReportLink(report.Summary.SeedURL, link)
	}

	if p.Db != nil {
		if err := p.Db.Save(ctx, &report.Summary, link); err != nil {
			p.Log.Error("failed to save report metadata.", slog.String("err", err.Error()))
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ReportLink returns the link of the latest report uploaded for seedURL.
func (p *Pipeline) ReportLink(seedURL string) (string, bool) {
	if p.Cache == nil {
		return "", false
	}
	return p.Cache.ReportLink(seedURL)
}

// WriteFile stores the report as indented JSON, creating parent directories.
func WriteFile(path string, report *model.CrawlReport) error {
	body, err := jsoniter.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling failed: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err = os.WriteFile(path, append(body, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
