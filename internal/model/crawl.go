package model

import (
	"fmt"
	"strings"
	"time"
)

type ScrapeMechanism int

const (
	Curl ScrapeMechanism = iota
	HeadlessBrowser
)

func (sm ScrapeMechanism) String() string {
	return [...]string{"curl", "browser"}[sm]
}

// ParseScrapeMechanism accepts the names printed by String. "headless" is kept as
// an alias of "browser".
func ParseScrapeMechanism(name string) (ScrapeMechanism, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "curl":
		return Curl, nil
	case "browser", "headless":
		return HeadlessBrowser, nil
	default:
		return Curl, fmt.Errorf("unsupported scrape mechanism %q", name)
	}
}

// CrawlSettings is the immutable part of a crawl job, as shown in the start banner.
type CrawlSettings struct {
	SeedURL       string `json:"seed_url"`
	SeedDomain    string `json:"seed_domain"`
	MaxDepth      int    `json:"max_depth"`
	StayInDomain  bool   `json:"stay_in_domain"`
	MaxConcurrent int    `json:"max_concurrent"`
	Mechanism     string `json:"mechanism"`
}

// PageResult is the outcome of processing one frontier entry.
type PageResult struct {
	URL        string `json:"url"`
	SeedURL    string `json:"seed_url"`
	Depth      int    `json:"depth"`
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"` // depth cutoff, not fetched
	LinksFound int    `json:"links_found"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
	ElapsedMs  int64  `json:"elapsed_ms"`
	Mechanism  string `json:"mechanism"`
}

type CrawlSummary struct {
	CrawlSettings
	Total       int       `json:"total"`
	Successful  int       `json:"successful"`
	Failed      int       `json:"failed"`
	FailedURLs  []string  `json:"failed_urls"`
	Interrupted bool      `json:"interrupted"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// CrawlReport is what the exporters write: the summary plus every page result of the run.
type CrawlReport struct {
	Summary CrawlSummary `json:"summary"`
	Pages   []PageResult `json:"pages"`
}
