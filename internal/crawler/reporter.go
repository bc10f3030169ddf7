package crawler

import "github.com/IliaW/util-cli/internal/model"

// Reporter observes a crawl. All calls come from the coordinating goroutine.
type Reporter interface {
	Started(model.CrawlSettings)
	Recorded(model.PageResult)
	Progress(visited int)
}

// Reporters fans every call out to each element in order.
type Reporters []Reporter

func (rs Reporters) Started(s model.CrawlSettings) {
	for _, r := range rs {
		r.Started(s)
	}
}

func (rs Reporters) Recorded(p model.PageResult) {
	for _, r := range rs {
		r.Recorded(p)
	}
}

func (rs Reporters) Progress(visited int) {
	for _, r := range rs {
		r.Progress(visited)
	}
}
