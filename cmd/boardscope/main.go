package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/onlhub/boardscope/pkg/cache"
	"github.com/onlhub/boardscope/pkg/config"
	"github.com/onlhub/boardscope/pkg/extract"
	"github.com/onlhub/boardscope/pkg/normalize"
	"github.com/onlhub/boardscope/pkg/proxy"
	"github.com/onlhub/boardscope/pkg/repository"
	"github.com/onlhub/boardscope/pkg/scheduler"
	"github.com/onlhub/boardscope/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"f" long:"config" env:"CONFIG" default:"boardscope.yml" description:"config file path"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug, opts.NoColor)

	log.Printf("[INFO] starting boardscope version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}

	store, err := repository.New(repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("[WARN] failed to close snapshot store: %v", err)
		}
	}()

	endpoints := make([]proxy.Endpoint, 0, len(cfg.Proxy.Endpoints))
	for _, ep := range cfg.Proxy.Endpoints {
		endpoints = append(endpoints, proxy.Endpoint{URL: ep.URL, Kind: proxy.EndpointKind(ep.Kind)})
	}
	client := proxy.New(endpoints, cfg.Proxy.AttemptTimeout, cfg.Proxy.MaxBodySize)

	snapshots := cache.New(cfg.Cache.TTL)
	prewarmCache(ctx, store, snapshots)

	sources := cfg.DomainSources()
	sched := scheduler.NewScheduler(client, extract.DefaultRegistry(),
		normalize.New(cfg.Normalize.MinTitleLength, cfg.Normalize.MaxTitleLength),
		snapshots, store, sources, scheduler.Config{
			RefreshInterval: cfg.Schedule.RefreshInterval,
			RunBudget:       cfg.Schedule.RunBudget,
			MaxWorkers:      cfg.Schedule.MaxWorkers,
		})
	sched.Start(ctx)
	defer sched.Stop()

	contentExtractor := extract.NewContentExtractor(client, cfg.Cache.ContentTTL)

	srv := server.New(cfg, snapshots, sched, contentExtractor, revision, opts.Debug)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// prewarmCache loads persisted snapshots so stale-while-revalidate works
// across restarts; failures degrade to a cold cache
func prewarmCache(ctx context.Context, store *repository.SnapshotStore, snapshots *cache.Cache) {
	results, err := store.LoadAll(ctx)
	if err != nil {
		log.Printf("[WARN] failed to load persisted snapshots: %v", err)
		return
	}
	for _, res := range results {
		snapshots.Put(res.FeedKey, res)
	}
	if len(results) > 0 {
		log.Printf("[INFO] cache pre-warmed with %d persisted snapshots", len(results))
	}
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
