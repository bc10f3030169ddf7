package broker

import "github.com/IliaW/util-cli/internal/model"

// ChannelSink forwards every recorded page result to the producer channel.
type ChannelSink struct {
	pageChan chan<- *model.PageResult
}

func NewChannelSink(pageChan chan<- *model.PageResult) *ChannelSink {
	return &ChannelSink{pageChan: pageChan}
}

func (s *ChannelSink) Started(model.CrawlSettings) {}

func (s *ChannelSink) Recorded(p model.PageResult) {
	s.pageChan <- &p
}

func (s *ChannelSink) Progress(int) {}
