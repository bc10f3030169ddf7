package export

import "github.com/IliaW/util-cli/internal/model"

// Collector keeps every page result of a run for the final report.
type Collector struct {
	pages []model.PageResult
}

func (c *Collector) Started(model.CrawlSettings) {
	c.pages = c.pages[:0]
}

func (c *Collector) Recorded(p model.PageResult) {
	c.pages = append(c.pages, p)
}

func (c *Collector) Progress(int) {}

func (c *Collector) Report(summary model.CrawlSummary) *model.CrawlReport {
	return &model.CrawlReport{
		Summary: summary,
		Pages:   append([]model.PageResult(nil), c.pages...),
	}
}
