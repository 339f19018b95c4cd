package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"pulso/internal/cache"
	"pulso/internal/classify"
	"pulso/internal/config"
	"pulso/internal/fetch"
	"pulso/internal/health"
	"pulso/internal/logging"
	"pulso/internal/news"
	"pulso/internal/parse"
	"pulso/internal/refresh"
	"pulso/internal/snapshot"
	"pulso/internal/sources"
	"pulso/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", config.ConfigPath(), "path to config file")
		categories = flag.String("categories", "", "comma-separated categories to refresh (default: all)")
		cleanup    = flag.Bool("cleanup", false, "delete items older than the configured max age and exit")
		client     = flag.String("client", "default", "checkpoint namespace")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	if err := logging.Init(cfg.DataDir); err != nil {
		log.Fatalf("Failed to init logging: %v", err)
	}
	defer logging.Close()

	st, err := store.Open(filepath.Join(cfg.DataDir, "pulso.db"))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	if *cleanup {
		deleted, err := st.DeleteOldNews(cfg.Refresh.MaxAgeDays)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		fmt.Printf("deleted %d items older than %d days\n", deleted, cfg.Refresh.MaxAgeDays)
		return
	}

	registry := sources.NewRegistry()
	if cfg.SourcesFile != "" {
		registry, err = sources.LoadRegistry(cfg.SourcesFile)
		if err != nil {
			log.Fatalf("Failed to load source registry: %v", err)
		}
	}

	fetcher := fetch.New(registry, parse.New(classify.Default()), health.NewMemoryTracker(), fetch.Options{
		SourceTimeout:  cfg.SourceTimeout(),
		SearchEndpoint: cfg.Search.Endpoint,
		SearchAPIKey:   cfg.Search.APIKey,
	})

	var snap refresh.SnapshotClient
	if cfg.Snapshot.Endpoint != "" {
		snap = snapshot.NewClient(cfg.Snapshot.Endpoint, cfg.SnapshotTimeout())
	}

	orch := &refresh.Orchestrator{
		Registry:    registry,
		Cache:       cache.New(st),
		Fetcher:     fetcher,
		Snapshot:    snap,
		Checkpoints: st,
		Client:      *client,
		TTL:         cfg.CacheTTL(),
		Concurrency: cfg.Refresh.Concurrency,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cats := parseCategories(*categories)
	start := time.Now()
	for event := range orch.Refresh(ctx, cats, nil) {
		printEvent(event)
		if event.Kind == refresh.EventFresh && len(event.Items) > 0 {
			if _, err := st.SaveItems(event.Items); err != nil {
				logging.Warn("persist items failed", "category", event.Category, "error", err)
			}
		}
	}
	fmt.Printf("refresh finished in %s\n", time.Since(start).Round(time.Millisecond))
}

// parseCategories resolves the -categories flag, dropping unknown names.
func parseCategories(raw string) []news.Category {
	if raw == "" {
		return news.AllCategories()
	}

	var cats []news.Category
	for _, part := range strings.Split(raw, ",") {
		cat := news.Category(strings.TrimSpace(part))
		if !cat.Valid() {
			fmt.Fprintf(os.Stderr, "skipping unknown category %q\n", cat)
			continue
		}
		cats = append(cats, cat)
	}
	if len(cats) == 0 {
		return news.AllCategories()
	}
	return cats
}

func printEvent(e refresh.Event) {
	switch e.Kind {
	case refresh.EventCached:
		fmt.Printf("[cached] %-10s %3d items (stale=%v origin=%s)\n", e.Category, len(e.Items), e.Stale, e.Origin)
	case refresh.EventFresh:
		fmt.Printf("[fresh]  %-10s %3d items\n", e.Category, len(e.Items))
	case refresh.EventError:
		fmt.Printf("[error]  %-10s %v\n", e.Category, e.Err)
	case refresh.EventCheckpoint:
		fmt.Printf("[ckpt]   %-10s watermark=%d\n", e.Category, e.Watermark)
	}
}
