package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/IliaW/util-cli/internal/model"
	"github.com/gocolly/colly"
)

// CollyFetcher fetches pages over plain HTTP. Every Fetch clones the base collector
// so callbacks stay per request while the HTTP backend and its connection pool are shared.
type CollyFetcher struct {
	base *colly.Collector
	log  *slog.Logger
}

func NewCollyFetcher(opts Options, log *slog.Logger) *CollyFetcher {
	c := colly.NewCollector()
	c.UserAgent = opts.UserAgent
	c.AllowURLRevisit = true // dedup is the crawler's job
	c.IgnoreRobotsTxt = true
	c.ParseHTTPErrorResponse = true
	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})
	c.SetRequestTimeout(opts.Timeout)

	return &CollyFetcher{base: c, log: log}
}

func (f *CollyFetcher) Name() string {
	return model.Curl.String()
}

func (f *CollyFetcher) Close() {}

func (f *CollyFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	c := f.base.Clone()
	page := &Page{URL: url}
	var hrefs []string

	c.OnResponse(func(resp *colly.Response) {
		page.StatusCode = resp.StatusCode
		if resp.Request != nil && resp.Request.URL != nil {
			page.URL = resp.Request.URL.String()
		}
	})
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		hrefs = append(hrefs, e.Attr("href"))
	})
	c.OnError(func(resp *colly.Response, err error) {
		if resp != nil && resp.StatusCode > 0 {
			page.StatusCode = resp.StatusCode
		}
	})

	err := c.Visit(url)
	switch {
	case err != nil && page.StatusCode == 0:
		return nil, &FetchError{URL: url, Err: err}
	case page.StatusCode >= http.StatusBadRequest:
		return nil, &FetchError{URL: url, StatusCode: page.StatusCode, Err: errors.New(http.StatusText(page.StatusCode))}
	case err != nil:
		return nil, &ParseError{URL: url, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: url, StatusCode: page.StatusCode, Err: err}
	}

	page.Links = ResolveLinks(page.URL, hrefs)
	f.log.Debug("found links.", slog.String("url", url), slog.Int("count", len(page.Links)))

	return page, nil
}
