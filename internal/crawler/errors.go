package crawler

import "errors"

var (
	// ErrInvalidSeed is returned before any fetch when the seed url is not absolute.
	ErrInvalidSeed = errors.New("invalid seed url")
	// ErrInterrupted is returned with the partial summary when the run is cancelled.
	ErrInterrupted = errors.New("crawl interrupted")
)
