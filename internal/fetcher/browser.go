package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/IliaW/util-cli/internal/model"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in one shared headless Chrome, one tab per fetch.
type BrowserFetcher struct {
	browserCtx context.Context
	cancel     context.CancelFunc
	opts       Options
	log        *slog.Logger
}

func NewBrowserFetcher(ctx context.Context, opts Options, log *slog.Logger) (*BrowserFetcher, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	log.Info("starting headless browser...")
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start headless browser: %w", err)
	}

	return &BrowserFetcher{
		browserCtx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		opts: opts,
		log:  log,
	}, nil
}

func (f *BrowserFetcher) Name() string {
	return model.HeadlessBrowser.String()
}

func (f *BrowserFetcher) Close() {
	f.log.Info("closing headless browser.")
	f.cancel()
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()
	tCtx, cancelTimeout := context.WithTimeout(tabCtx, f.opts.Timeout)
	defer cancelTimeout()

	var (
		mu     sync.Mutex
		status int
	)
	chromedp.ListenTarget(tCtx, func(event interface{}) {
		switch ev := event.(type) {
		case *network.EventResponseReceived:
			if ev.Type != network.ResourceTypeDocument || ev.Response == nil {
				return
			}
			mu.Lock()
			status = int(ev.Response.Status)
			mu.Unlock()
		case *network.EventRequestWillBeSent:
			if ev.RedirectResponse != nil {
				f.log.Debug("redirected.", slog.String("from", ev.RedirectResponse.URL),
					slog.String("to", ev.Request.URL))
			}
		}
	})

	var finalURL, html string
	err := chromedp.Run(tCtx,
		network.Enable(),
		enableLifeCycleEvents(),
		navigateAndWaitFor(url, "networkIdle"),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	mu.Lock()
	code := status
	mu.Unlock()
	if err != nil {
		if ctx.Err() != nil {
			err = errors.Join(err, ctx.Err())
		}
		return nil, &FetchError{URL: url, StatusCode: code, Err: err}
	}
	if code >= http.StatusBadRequest {
		return nil, &FetchError{URL: url, StatusCode: code, Err: errors.New(http.StatusText(code))}
	}

	hrefs, err := ExtractHrefs(strings.NewReader(html))
	if err != nil {
		return nil, &ParseError{URL: url, Err: err}
	}
	if finalURL == "" {
		finalURL = url
	}
	links := ResolveLinks(finalURL, hrefs)
	f.log.Debug("found links.", slog.String("url", url), slog.Int("count", len(links)))

	return &Page{URL: finalURL, StatusCode: code, Links: links}, nil
}

func enableLifeCycleEvents() chromedp.ActionFunc {
	return func(ctx context.Context) error {
		err := page.Enable().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetLifecycleEventsEnabled(true).Do(ctx)
	}
}

// navigateAndWaitFor listens for the lifecycle event before navigating, so a fast page
// cannot fire it unobserved.
func navigateAndWaitFor(url string, eventName string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		fired := listenFor(ctx, eventName)
		_, _, errorText, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return errors.New(errorText)
		}
		select {
		case <-fired:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func listenFor(ctx context.Context, eventName string) <-chan struct{} {
	ch := make(chan struct{})
	var once sync.Once
	cctx, cancel := context.WithCancel(ctx)
	chromedp.ListenTarget(cctx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == eventName {
			once.Do(func() {
				cancel()
				close(ch)
			})
		}
	})
	return ch
}
