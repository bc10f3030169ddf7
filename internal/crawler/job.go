package crawler

import (
	"fmt"
	"net/url"

	"github.com/IliaW/util-cli/internal/model"
)

type Options struct {
	MaxDepth      int // 0 means unlimited
	StayInDomain  bool
	MaxConcurrent int
}

type frontierEntry struct {
	url   string
	depth int
}

// CrawlJob is the configuration and mutable state of one crawl. Only the
// coordinating goroutine of Crawler.Run touches frontier, visited and failed.
type CrawlJob struct {
	seedURL       string
	seedDomain    string
	maxDepth      int
	stayInDomain  bool
	maxConcurrent int

	frontier []frontierEntry
	queued   map[string]struct{} // urls currently in frontier
	visited  map[string]bool     // url -> fetch succeeded
	failed   []string
}

// NewCrawlJob validates the seed and enqueues it at depth 0. The seed must already
// carry a scheme; defaulting one is the caller's business.
func NewCrawlJob(seedURL string, opts Options) (*CrawlJob, error) {
	u, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q must have a scheme and a host", ErrInvalidSeed, seedURL)
	}
	if opts.MaxDepth < 0 {
		return nil, fmt.Errorf("max depth must not be negative, got %d", opts.MaxDepth)
	}
	if opts.MaxConcurrent < 1 {
		return nil, fmt.Errorf("max concurrent must be positive, got %d", opts.MaxConcurrent)
	}

	j := &CrawlJob{
		seedURL:       seedURL,
		seedDomain:    u.Host,
		maxDepth:      opts.MaxDepth,
		stayInDomain:  opts.StayInDomain,
		maxConcurrent: opts.MaxConcurrent,
		queued:        make(map[string]struct{}),
		visited:       make(map[string]bool),
	}
	j.push(seedURL, 0)

	return j, nil
}

func (j *CrawlJob) SeedURL() string    { return j.seedURL }
func (j *CrawlJob) SeedDomain() string { return j.seedDomain }

func (j *CrawlJob) Settings(mechanism string) model.CrawlSettings {
	return model.CrawlSettings{
		SeedURL:       j.seedURL,
		SeedDomain:    j.seedDomain,
		MaxDepth:      j.maxDepth,
		StayInDomain:  j.stayInDomain,
		MaxConcurrent: j.maxConcurrent,
		Mechanism:     mechanism,
	}
}

func (j *CrawlJob) push(u string, depth int) {
	j.frontier = append(j.frontier, frontierEntry{url: u, depth: depth})
	j.queued[u] = struct{}{}
}

// enqueue appends link at depth if it passes the link-queueing filter.
func (j *CrawlJob) enqueue(link string, depth int) bool {
	if !j.shouldEnqueue(link) {
		return false
	}
	j.push(link, depth)
	return true
}

// nextBatch dequeues up to maxConcurrent entries from the front of the frontier.
func (j *CrawlJob) nextBatch() []frontierEntry {
	n := min(j.maxConcurrent, len(j.frontier))
	batch := make([]frontierEntry, n)
	copy(batch, j.frontier[:n])
	j.frontier = j.frontier[n:]
	for _, e := range batch {
		delete(j.queued, e.url)
	}

	return batch
}

func (j *CrawlJob) isVisited(u string) bool {
	_, ok := j.visited[u]
	return ok
}

// record stores the outcome of u. A url is recorded at most once.
func (j *CrawlJob) record(u string, success bool) {
	if j.isVisited(u) {
		return
	}
	j.visited[u] = success
	if !success {
		j.failed = append(j.failed, u)
	}
}

func (j *CrawlJob) depthExhausted(depth int) bool {
	return j.maxDepth > 0 && depth >= j.maxDepth
}

func (j *CrawlJob) FrontierLen() int {
	return len(j.frontier)
}

// Visited returns a copy of the visited map.
func (j *CrawlJob) Visited() map[string]bool {
	out := make(map[string]bool, len(j.visited))
	for k, v := range j.visited {
		out[k] = v
	}
	return out
}

// Failed returns the failed urls in order of first failure.
func (j *CrawlJob) Failed() []string {
	return append([]string(nil), j.failed...)
}

func (j *CrawlJob) summary(mechanism string) model.CrawlSummary {
	successful := 0
	for _, ok := range j.visited {
		if ok {
			successful++
		}
	}

	return model.CrawlSummary{
		CrawlSettings: j.Settings(mechanism),
		Total:         len(j.visited),
		Successful:    successful,
		Failed:        len(j.failed),
		FailedURLs:    j.Failed(),
	}
}
