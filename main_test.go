package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/IliaW/util-cli/internal/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), func() {}, args...)
}

func executeContext(t *testing.T, ctx context.Context, stop context.CancelFunc, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := newRootCommand(ctx, stop, &buf).Execute(args)
	return buf.String(), err
}

func readReport(t *testing.T, path string) model.CrawlReport {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got model.CrawlReport
	require.NoError(t, jsoniter.Unmarshal(raw, &got))
	return got
}

// chainServer serves /, /1, /2, ... each page linking to the next one.
func chainServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		next := 1
		if r.URL.Path != "/" {
			n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/"))
			if err != nil {
				http.NotFound(w, r)
				return
			}
			next = n + 1
		}
		fmt.Fprintf(w, `<a href="/%d">next</a>`, next)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNormalizeSeed(t *testing.T) {
	seed, defaulted := normalizeSeed("example.com/path")
	assert.Equal(t, "http://example.com/path", seed)
	assert.True(t, defaulted)

	seed, defaulted = normalizeSeed("https://example.com")
	assert.Equal(t, "https://example.com", seed)
	assert.False(t, defaulted)
}

func TestConfigSetGetShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".utilrc")

	out, err := execute(t, "-c", path, "config", "set", "--section", "CRAWL", "--key", "depth", "--value", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Set CRAWL:depth = 3")

	_, err = execute(t, "-c", path, "config", "set", "--section", "GEMINI", "--key", "api_key", "--value", "secret")
	require.NoError(t, err)

	out, err = execute(t, "-c", path, "config", "get", "--section", "crawl", "--key", "DEPTH")
	require.NoError(t, err)
	assert.Contains(t, out, "crawl:DEPTH = 3")

	out, err = execute(t, "-c", path, "config", "get", "--section", "GEMINI", "--key", "api_key")
	require.NoError(t, err)
	assert.Contains(t, out, "***")
	assert.NotContains(t, out, "secret")

	out, err = execute(t, "-c", path, "config", "get", "--key", "missing")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration not found")

	out, err = execute(t, "-c", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "CRAWL")
	assert.Contains(t, out, "GEMINI")
	assert.NotContains(t, out, "secret")
}

func TestConfigCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", ".utilrc")

	out, err := execute(t, "-c", path, "config", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration file created at: "+path)
	assert.FileExists(t, path)

	out, err = execute(t, "-c", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No configuration found")
}

func TestConfigCommandsSurviveUndecodableValue(t *testing.T) {
	srv := chainServer(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".utilrc")

	out, err := execute(t, "-c", path, "config", "set", "--section", "CRAWL", "--key", "timeout", "--value", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Set CRAWL:timeout = 10")
	assert.Contains(t, out, "crawl cannot use the configuration")

	out, err = execute(t, "-c", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "timeout")

	out, err = execute(t, "-c", path, "config", "get", "--section", "CRAWL", "--key", "timeout")
	require.NoError(t, err)
	assert.Contains(t, out, "CRAWL:timeout = 10")

	_, err = execute(t, "-c", path, "crawl", "-u", srv.URL+"/", "--no-progress")
	assert.ErrorContains(t, err, "error unmarshalling config")

	out, err = execute(t, "-c", path, "config", "set", "--section", "CRAWL", "--key", "timeout", "--value", "10s")
	require.NoError(t, err)
	assert.NotContains(t, out, "crawl cannot use the configuration")

	_, err = execute(t, "-c", path, "crawl", "-u", srv.URL+"/", "-d", "1", "--no-progress",
		"-o", filepath.Join(dir, "report.json"))
	require.NoError(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "util-cli "+Version)
}

func TestCrawlCommandWritesReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<a href="/a">a</a><a href="/gone">gone</a><a href="#">#</a>`)
		case "/a":
			fmt.Fprint(w, `<p>leaf</p>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	report := filepath.Join(dir, "report.json")
	out, err := execute(t, "-c", filepath.Join(dir, ".utilrc"), "scrape", "-u", srv.URL+"/", "-d", "2",
		"--no-progress", "-o", report)
	require.NoError(t, err)

	assert.Contains(t, out, "Starting crawl of "+srv.URL+"/")
	assert.Contains(t, out, "Max depth: 2")
	assert.Contains(t, out, "Failed URLs (1):")
	assert.Contains(t, out, srv.URL+"/gone")

	got := readReport(t, report)
	assert.Equal(t, 3, got.Summary.Total)
	assert.Equal(t, 2, got.Summary.Successful)
	assert.Equal(t, 1, got.Summary.Failed)
	assert.Len(t, got.Pages, 3)
}

func TestCrawlCommandInvalidURL(t *testing.T) {
	out, err := execute(t, "-c", filepath.Join(t.TempDir(), ".utilrc"), "crawl", "-u", "http://", "--no-progress")
	require.Error(t, err)
	assert.Contains(t, out, "Invalid URL")
}

func TestCrawlCommandRequiresURL(t *testing.T) {
	_, err := execute(t, "-c", filepath.Join(t.TempDir(), ".utilrc"), "crawl")
	assert.ErrorContains(t, err, "url")
}

func TestCrawlCommandAllowExternal(t *testing.T) {
	external := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<p>elsewhere</p>`)
	}))
	defer external.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<a href="%s/page">out</a>`, external.URL)
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".utilrc")

	report := filepath.Join(dir, "default.json")
	out, err := execute(t, "-c", cfgPath, "crawl", "-u", srv.URL+"/", "-d", "2", "--no-progress", "-o", report)
	require.NoError(t, err)
	assert.Contains(t, out, "Stay in domain: true")
	assert.Equal(t, 1, readReport(t, report).Summary.Total)

	report = filepath.Join(dir, "external.json")
	out, err = execute(t, "-c", cfgPath, "crawl", "-u", srv.URL+"/", "-d", "2", "--allow-external",
		"--no-progress", "-o", report)
	require.NoError(t, err)
	assert.Contains(t, out, "Stay in domain: false")
	got := readReport(t, report)
	assert.Equal(t, 2, got.Summary.Total)
	assert.Equal(t, 2, got.Summary.Successful)
	assert.False(t, got.Summary.StayInDomain)
}

func TestCrawlCommandRejectsZeroConcurrency(t *testing.T) {
	srv := chainServer(t)

	_, err := execute(t, "-c", filepath.Join(t.TempDir(), ".utilrc"), "crawl", "-u", srv.URL+"/",
		"--max-concurrent", "0", "--no-progress")
	assert.ErrorContains(t, err, "max concurrent must be positive")
}

func TestCrawlCommandConfigDefaultsAndFlagOverrides(t *testing.T) {
	srv := chainServer(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, ".utilrc")
	report := filepath.Join(dir, "report.json")

	for key, value := range map[string]string{"depth": "1", "max_concurrent": "2", "output": report} {
		_, err := execute(t, "-c", cfgPath, "config", "set", "--section", "CRAWL", "--key", key, "--value", value)
		require.NoError(t, err)
	}

	out, err := execute(t, "-c", cfgPath, "crawl", "-u", srv.URL+"/", "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Max depth: 1")
	assert.Contains(t, out, "Max concurrent requests: 2")
	got := readReport(t, report)
	assert.Equal(t, 1, got.Summary.MaxDepth)
	assert.Equal(t, 2, got.Summary.Total, "seed fetched, /1 cut off by depth")

	out, err = execute(t, "-c", cfgPath, "crawl", "-u", srv.URL+"/", "-d", "3", "--max-concurrent", "4",
		"--no-progress")
	require.NoError(t, err)
	assert.Contains(t, out, "Max depth: 3")
	assert.Contains(t, out, "Max concurrent requests: 4")
	got = readReport(t, report)
	assert.Equal(t, 3, got.Summary.MaxDepth)
	assert.Equal(t, 4, got.Summary.Total)
	assert.Equal(t, 4, got.Summary.Successful)
}

func TestCrawlCommandInterruptReleasesSignalHandler(t *testing.T) {
	srv := chainServer(t)
	report := filepath.Join(t.TempDir(), "report.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stops := 0
	out, err := executeContext(t, ctx, func() { stops++ }, "-c", filepath.Join(t.TempDir(), ".utilrc"),
		"crawl", "-u", srv.URL+"/", "--no-progress", "-o", report)
	require.NoError(t, err)

	assert.Equal(t, 1, stops)
	assert.Contains(t, out, "Crawl interrupted by user")
	assert.True(t, readReport(t, report).Summary.Interrupted)
}
