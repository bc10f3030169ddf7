package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/IliaW/util-cli/config"
	"github.com/IliaW/util-cli/internal/aws_s3"
	"github.com/IliaW/util-cli/internal/broker"
	"github.com/IliaW/util-cli/internal/cache"
	"github.com/IliaW/util-cli/internal/cli"
	"github.com/IliaW/util-cli/internal/console"
	"github.com/IliaW/util-cli/internal/crawler"
	"github.com/IliaW/util-cli/internal/export"
	"github.com/IliaW/util-cli/internal/fetcher"
	"github.com/IliaW/util-cli/internal/model"
	"github.com/IliaW/util-cli/internal/persistence"
	"github.com/spf13/pflag"
)

const exportTimeout = time.Minute

type globalParams struct {
	configPath string
	logLevel   string
	logType    string
}

// newRootCommand builds the command tree. stop releases the interrupt handler
// bound to ctx.
func newRootCommand(ctx context.Context, stop context.CancelFunc, out io.Writer) *cli.Command {
	var params globalParams
	return &cli.Command{
		Name:    "util",
		Summary: "Utility CLI: crawl websites and manage the configuration file.",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("util", pflag.ContinueOnError)
			fs.StringVarP(&params.configPath, "config", "c", config.DefaultPath(), "path to the configuration file")
			fs.StringVar(&params.logLevel, "log-level", "", "log level: debug, info, warn or error")
			fs.StringVar(&params.logType, "log-type", "", "log format: text or json")
			return fs
		},
		Before: func() error {
			return loadGlobals(params)
		},
		Subcommands: []*cli.Command{
			newCrawlCommand(ctx, stop, out),
			newConfigCommand(out),
			{
				Name:    "version",
				Summary: "Print the version.",
				Run: func([]string) error {
					fmt.Fprintf(out, "util-cli %s\n", Version)
					return nil
				},
			},
		},
	}
}

// loadGlobals opens the config file and sets up logging. Flags win over the file.
// The typed configuration is decoded later by the commands that need it, so the
// config subcommands keep working on a file holding values the crawl cannot decode.
func loadGlobals(params globalParams) error {
	var err error
	store, err = config.Open(params.configPath)
	if err != nil {
		return err
	}
	defaults := config.Default().Global
	level := params.logLevel
	if level == "" {
		level = store.String(config.DefaultSection, "log_level", defaults.LogLevel)
	}
	logType := params.logType
	if logType == "" {
		logType = store.String(config.DefaultSection, "log_type", defaults.LogType)
	}
	log = setupLogger(level, logType, os.Stderr)
	log.Debug("configuration opened.", slog.String("path", store.Path()))
	return nil
}

type crawlParams struct {
	url           string
	depth         int
	stayInDomain  bool
	allowExternal bool
	maxConcurrent int
	timeout       time.Duration
	userAgent     string
	mechanism     string
	output        string
	noProgress    bool
}

func newCrawlCommand(ctx context.Context, stop context.CancelFunc, out io.Writer) *cli.Command {
	var (
		params crawlParams
		fs     *pflag.FlagSet
	)
	return &cli.Command{
		Name:    "crawl",
		Aliases: []string{"scrape"},
		Summary: "Crawl a website breadth-first and report dead links.",
		Flags: func() *pflag.FlagSet {
			defaults := config.Default().CrawlSettings
			fs = pflag.NewFlagSet("crawl", pflag.ContinueOnError)
			fs.StringVarP(&params.url, "url", "u", "", "starting URL to crawl (required)")
			fs.IntVarP(&params.depth, "depth", "d", defaults.Depth, "maximum crawl depth (0 for unlimited)")
			fs.BoolVar(&params.stayInDomain, "stay-in-domain", defaults.StayInDomain, "stay within the starting domain")
			fs.BoolVar(&params.allowExternal, "allow-external", false, "follow links to other domains")
			fs.IntVar(&params.maxConcurrent, "max-concurrent", defaults.MaxConcurrent, "maximum concurrent requests")
			fs.DurationVar(&params.timeout, "timeout", defaults.Timeout, "per-request timeout")
			fs.StringVar(&params.userAgent, "user-agent", defaults.UserAgent, "User-Agent header")
			fs.StringVar(&params.mechanism, "mechanism", defaults.Mechanism, "fetch mechanism: curl or browser")
			fs.StringVarP(&params.output, "output", "o", defaults.Output, "write the JSON report to this file")
			fs.BoolVar(&params.noProgress, "no-progress", false, "disable the progress spinner")
			return fs
		},
		Run: func([]string) error {
			var err error
			if cfg, err = store.Load(); err != nil {
				return err
			}
			applyConfigDefaults(fs, &params, &cfg.CrawlSettings)
			if fs.Changed("allow-external") && params.allowExternal {
				params.stayInDomain = false
			}
			return runCrawl(ctx, stop, out, params)
		},
	}
}

// applyConfigDefaults takes every crawl setting not given on the command line from
// the [CRAWL] section.
func applyConfigDefaults(fs *pflag.FlagSet, p *crawlParams, c *config.CrawlConfig) {
	if !fs.Changed("depth") {
		p.depth = c.Depth
	}
	if !fs.Changed("stay-in-domain") {
		p.stayInDomain = c.StayInDomain
	}
	if !fs.Changed("max-concurrent") {
		p.maxConcurrent = c.MaxConcurrent
	}
	if !fs.Changed("timeout") {
		p.timeout = c.Timeout
	}
	if !fs.Changed("user-agent") {
		p.userAgent = c.UserAgent
	}
	if !fs.Changed("mechanism") {
		p.mechanism = c.Mechanism
	}
	if !fs.Changed("output") {
		p.output = c.Output
	}
}

// normalizeSeed prepends http:// when the url carries no scheme.
func normalizeSeed(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		return raw, false
	}
	return "http://" + raw, true
}

func runCrawl(ctx context.Context, stop context.CancelFunc, out io.Writer, params crawlParams) error {
	if params.url == "" {
		return errors.New("required flag \"url\" not set")
	}
	seed, defaulted := normalizeSeed(params.url)
	mechanism, err := model.ParseScrapeMechanism(params.mechanism)
	if err != nil {
		return err
	}
	job, err := crawler.NewCrawlJob(seed, crawler.Options{
		MaxDepth:      params.depth,
		StayInDomain:  params.stayInDomain,
		MaxConcurrent: params.maxConcurrent,
	})
	if err != nil {
		if errors.Is(err, crawler.ErrInvalidSeed) {
			console.Error(out, "Invalid URL: "+seed)
		}
		return err
	}
	log.Debug("starting crawl with options.", slog.String("url", seed), slog.Int("depth", params.depth),
		slog.Bool("stay_in_domain", params.stayInDomain), slog.Int("max_concurrent", params.maxConcurrent))

	crawlCfg := cfg.CrawlSettings
	crawlCfg.Timeout = params.timeout
	crawlCfg.UserAgent = params.userAgent
	f, err := fetcher.New(ctx, mechanism, fetcher.OptionsFromConfig(&crawlCfg), log)
	if err != nil {
		return err
	}
	defer f.Close()

	interactive := !params.noProgress
	if file, ok := out.(*os.File); ok {
		interactive = interactive && console.IsTerminal(file)
	} else {
		interactive = false
	}
	reporter := console.NewReporter(out, interactive)
	defer reporter.Stop()
	if defaulted {
		reporter.SchemeDefaulted(seed)
	}
	collector := &export.Collector{}
	reporters := crawler.Reporters{reporter, collector}

	var (
		pageChan chan *model.PageResult
		kafkaWg  sync.WaitGroup
	)
	if cfg.KafkaSettings.Enabled() {
		pageChan = make(chan *model.PageResult, 100)
		kafkaWg.Add(1)
		go broker.NewKafkaProducer(pageChan, &cfg.KafkaSettings, log, &kafkaWg).Run()
		reporters = append(reporters, broker.NewChannelSink(pageChan))
	}

	summary, runErr := crawler.New(log).Run(ctx, job, f, reporters)
	if pageChan != nil {
		close(pageChan)
		kafkaWg.Wait()
	}
	switch {
	case errors.Is(runErr, crawler.ErrInterrupted):
		// A second interrupt kills the process instead of waiting for the export.
		stop()
		reporter.Interrupted(summary)
	case runErr != nil:
		console.Error(out, "Crawl failed: "+runErr.Error())
		return runErr
	default:
		reporter.Summary(summary)
	}

	exportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exportTimeout)
	defer cancel()
	pipeline, closePipeline := setupExport(exportCtx, params.output)
	defer closePipeline()
	if err = pipeline.Export(exportCtx, collector.Report(summary)); err != nil {
		log.Warn("report export incomplete.", slog.String("err", err.Error()))
	}
	if link, ok := pipeline.ReportLink(summary.SeedURL); ok {
		console.Success(out, "Report uploaded: "+link)
	}

	return nil
}

// setupExport wires every configured report destination. A destination that
// cannot be set up is logged and left out.
func setupExport(ctx context.Context, output string) (*export.Pipeline, func()) {
	p := &export.Pipeline{OutputPath: output, Log: log}
	var closers []func()

	if cfg.S3Settings.Enabled() {
		bucket, err := aws_s3.NewS3BucketClient(ctx, &cfg.S3Settings, log)
		if err != nil {
			log.Error("s3 is unavailable.", slog.String("err", err.Error()))
		} else {
			p.S3 = bucket
			c := cache.New(&cfg.CacheSettings, log)
			p.Cache = c
			closers = append(closers, c.Close)
		}
	}

	if cfg.DbSettings.Enabled() {
		db, err := setupDatabase(ctx, &cfg.DbSettings)
		if err != nil {
			log.Error("database is unavailable.", slog.String("err", err.Error()))
		} else {
			closers = append(closers, func() { closeDatabase(db) })
			repo := persistence.NewReportRepository(db, log)
			if err = repo.EnsureSchema(ctx); err != nil {
				log.Error("failed to prepare database schema.", slog.String("err", err.Error()))
			} else {
				p.Db = repo
			}
		}
	}

	return p, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

type configParams struct {
	section string
	key     string
	value   string
}

func newConfigCommand(out io.Writer) *cli.Command {
	var params configParams
	sectionKeyFlags := func(name string, withValue bool) func() *pflag.FlagSet {
		return func() *pflag.FlagSet {
			fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
			fs.StringVar(&params.section, "section", config.DefaultSection, "configuration section")
			fs.StringVar(&params.key, "key", "", "configuration key (required)")
			if withValue {
				fs.StringVar(&params.value, "value", "", "configuration value (required)")
			}
			return fs
		}
	}

	return &cli.Command{
		Name:    "config",
		Summary: "Show and edit the configuration file.",
		Subcommands: []*cli.Command{
			{
				Name:    "show",
				Summary: "Display the current configuration.",
				Run: func([]string) error {
					console.ConfigTable(out, store.Sections())
					return nil
				},
			},
			{
				Name:    "get",
				Summary: "Get a configuration value.",
				Flags:   sectionKeyFlags("get", false),
				Run: func([]string) error {
					return configGet(out, store, params.section, params.key)
				},
			},
			{
				Name:    "set",
				Summary: "Set a configuration value and save the file.",
				Flags:   sectionKeyFlags("set", true),
				Run: func([]string) error {
					return configSet(out, store, params.section, params.key, params.value)
				},
			},
			{
				Name:    "create",
				Summary: "Create the configuration file.",
				Run: func([]string) error {
					if err := store.Save(); err != nil {
						return err
					}
					console.Success(out, "Configuration file created at: "+store.Path())
					return nil
				},
			},
		},
	}
}

func configGet(out io.Writer, s *config.Store, section, key string) error {
	if key == "" {
		return errors.New("required flag \"key\" not set")
	}
	value, err := s.Get(section, key)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			console.Error(out, "Configuration not found: "+err.Error())
			return nil
		}
		return err
	}
	console.ConfigValue(out, section, key, value)
	return nil
}

func configSet(out io.Writer, s *config.Store, section, key, value string) error {
	if key == "" {
		return errors.New("required flag \"key\" not set")
	}
	s.Set(section, key, value)
	if err := s.Save(); err != nil {
		return err
	}
	console.Success(out, fmt.Sprintf("Set %s:%s = %s", section, key, console.MaskValue(key, value)))
	if _, err := s.Load(); err != nil {
		console.Warn(out, "Saved, but crawl cannot use the configuration until it is fixed: "+err.Error())
	}
	return nil
}
