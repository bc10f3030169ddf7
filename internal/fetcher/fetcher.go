package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/IliaW/util-cli/config"
	"github.com/IliaW/util-cli/internal/model"
)

// Page is a fetched document reduced to what the crawler needs.
type Page struct {
	URL        string // final url after redirects
	StatusCode int
	Links      []string // absolute, in document order
}

// Fetcher downloads a page and extracts its anchors. Implementations must be safe
// for concurrent use: one Fetcher serves every in-flight request of a batch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
	Name() string
	Close()
}

type Options struct {
	Timeout        time.Duration
	ConnectTimeout time.Duration
	UserAgent      string
}

func OptionsFromConfig(cfg *config.CrawlConfig) Options {
	return Options{
		Timeout:        cfg.Timeout,
		ConnectTimeout: cfg.ConnectTimeout,
		UserAgent:      cfg.UserAgent,
	}
}

// FetchError is a network, timeout or HTTP status failure for a single url.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode >= http.StatusBadRequest {
		return fmt.Sprintf("fetch %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError means the response arrived but its body could not be parsed for links.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// New builds the fetcher for the given mechanism.
func New(ctx context.Context, mechanism model.ScrapeMechanism, opts Options, log *slog.Logger) (Fetcher, error) {
	switch mechanism {
	case model.Curl:
		return NewCollyFetcher(opts, log), nil
	case model.HeadlessBrowser:
		return NewBrowserFetcher(ctx, opts, log)
	default:
		return nil, fmt.Errorf("unsupported scrape mechanism %d", mechanism)
	}
}
