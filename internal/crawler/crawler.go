package crawler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/IliaW/util-cli/internal/fetcher"
	"github.com/IliaW/util-cli/internal/model"
)

type Crawler struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Crawler {
	return &Crawler{log: log}
}

type task struct {
	index     int
	entry     frontierEntry
	visited   bool // already recorded when the batch was dequeued
	exhausted bool // at or beyond the depth limit
}

type outcome struct {
	index  int
	url    string
	result model.PageResult
	links  []string
	err    error
	noop   bool
}

// Run drains the job's frontier batch by batch. Per-url failures end up in the
// summary, never in the returned error. On cancellation the outcomes received so far
// are applied and ErrInterrupted is returned with the partial summary.
func (c *Crawler) Run(ctx context.Context, job *CrawlJob, f fetcher.Fetcher, r Reporter) (model.CrawlSummary, error) {
	if r == nil {
		r = Reporters(nil)
	}
	mechanism := f.Name()
	startedAt := time.Now()
	r.Started(job.Settings(mechanism))
	c.log.Info("crawl started.", slog.String("seed", job.SeedURL()), slog.Int("max_depth", job.maxDepth),
		slog.Int("max_concurrent", job.maxConcurrent))

	finish := func(interrupted bool) model.CrawlSummary {
		s := job.summary(mechanism)
		s.Interrupted = interrupted
		s.StartedAt = startedAt
		s.FinishedAt = time.Now()
		return s
	}

	for job.FrontierLen() > 0 {
		if ctx.Err() != nil {
			return finish(true), ErrInterrupted
		}

		batch := job.nextBatch()
		results := make(chan outcome, len(batch))
		for i, e := range batch {
			t := task{index: i, entry: e, visited: job.isVisited(e.url), exhausted: job.depthExhausted(e.depth)}
			go func() {
				results <- c.processURL(ctx, f, job.seedURL, mechanism, t)
			}()
		}

		received := make([]*outcome, len(batch))
		for pending := len(batch); pending > 0; pending-- {
			select {
			case o := <-results:
				received[o.index] = &o
			case <-ctx.Done():
				drain(results, received)
				c.apply(job, received, r, false)
				r.Progress(len(job.visited))
				c.log.Warn("crawl interrupted.", slog.Int("visited", len(job.visited)))
				return finish(true), ErrInterrupted
			}
		}
		c.apply(job, received, r, true)
		r.Progress(len(job.visited))
		c.log.Debug("batch done.", slog.Int("size", len(batch)), slog.Int("visited", len(job.visited)),
			slog.Int("frontier", job.FrontierLen()))
	}

	s := finish(false)
	c.log.Info("crawl finished.", slog.Int("total", s.Total), slog.Int("failed", s.Failed))
	return s, nil
}

func drain(results <-chan outcome, received []*outcome) {
	for {
		select {
		case o := <-results:
			received[o.index] = &o
		default:
			return
		}
	}
}

// apply records every outcome of a batch before any link is enqueued, so a page
// fetched in this batch is never queued again by a sibling.
func (c *Crawler) apply(job *CrawlJob, received []*outcome, r Reporter, enqueue bool) {
	for _, o := range received {
		if o == nil || o.noop || cancelled(o.err) {
			continue
		}
		if job.isVisited(o.url) {
			continue
		}
		job.record(o.url, o.result.Success)
		r.Recorded(o.result)
	}
	if !enqueue {
		return
	}
	for _, o := range received {
		if o == nil || !o.result.Success {
			continue
		}
		added := 0
		for _, link := range o.links {
			if job.enqueue(link, o.result.Depth+1) {
				added++
			}
		}
		if added > 0 {
			c.log.Debug("links queued.", slog.String("url", o.url), slog.Int("added", added))
		}
	}
}

// processURL runs without touching job state; the coordinator snapshots what it
// needs into t.
func (c *Crawler) processURL(ctx context.Context, f fetcher.Fetcher, seed, mechanism string, t task) outcome {
	o := outcome{
		index: t.index,
		url:   t.entry.url,
		result: model.PageResult{
			URL:       t.entry.url,
			SeedURL:   seed,
			Depth:     t.entry.depth,
			Mechanism: mechanism,
		},
	}
	switch {
	case t.visited:
		o.noop = true
		o.result.Success = true
		return o
	case t.exhausted:
		o.result.Success = true
		o.result.Skipped = true
		return o
	}

	start := time.Now()
	page, err := f.Fetch(ctx, t.entry.url)
	o.result.ElapsedMs = time.Since(start).Milliseconds()
	if err != nil {
		c.log.Debug("failed to process url.", slog.String("url", t.entry.url), slog.String("err", err.Error()))
		o.err = err
		o.result.Error = err.Error()
		var fetchErr *fetcher.FetchError
		if errors.As(err, &fetchErr) {
			o.result.StatusCode = fetchErr.StatusCode
		}
		return o
	}

	o.result.Success = true
	o.result.StatusCode = page.StatusCode
	o.result.LinksFound = len(page.Links)
	o.links = page.Links
	return o
}

// cancelled reports a fetch aborted by the operator rather than failed by the server.
func cancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
