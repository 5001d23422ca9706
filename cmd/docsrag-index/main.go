package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"docsrag/internal/app"
	"docsrag/internal/config"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath   string
		framework string
		check     bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docsrag/config.yaml if not provided)")
	flag.StringVar(&framework, "framework", "", "Framework to crawl and index (default: all configured frameworks)")
	flag.BoolVar(&check, "check", false, "Report stored chunk counts instead of crawling")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := context.Background()

	engine, err := app.BuildEngine(ctx, cfg, logger, false)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	frameworks := targetFrameworks(cfg, framework)
	if len(frameworks) == 0 {
		log.Fatalf("unknown framework %q; configured: %s", framework, frameworkNames(cfg))
	}

	if check {
		for _, fw := range frameworks {
			count, err := engine.Count(ctx, fw.Name)
			if err != nil {
				log.Fatalf("count %s: %v", fw.Name, err)
			}
			fmt.Printf("%-12s %d chunks\n", fw.Name, count)
		}
		return
	}

	crawl := app.BuildCrawler(cfg, logger)
	for _, fw := range frameworks {
		logger.Info("crawling", "framework", fw.Name, "sitemap", fw.SitemapURL)
		docs, err := crawl.FetchDocuments(ctx, fw.Name)
		if err != nil {
			log.Fatalf("crawl %s: %v", fw.Name, err)
		}

		report, err := engine.Ingest(ctx, docs)
		if err != nil {
			log.Fatalf("ingest %s: %v", fw.Name, err)
		}

		fmt.Printf("%s: %d documents (%d skipped), %d chunks, %d stored, %d failed\n",
			fw.Name, report.Documents, report.SkippedDocs, report.Chunks, report.Stored, report.Failed)
		for _, f := range report.Failures {
			fmt.Printf("  failed %s#%d: %v\n", f.URL, f.Index, f.Err)
		}
	}
}

func targetFrameworks(cfg *config.AppConfig, name string) []config.Framework {
	if name == "" {
		return cfg.Frameworks
	}
	if fw := cfg.Framework(strings.ToLower(name)); fw != nil {
		return []config.Framework{*fw}
	}
	return nil
}

func frameworkNames(cfg *config.AppConfig) string {
	names := make([]string, 0, len(cfg.Frameworks))
	for _, fw := range cfg.Frameworks {
		names = append(names, fw.Name)
	}
	return strings.Join(names, ", ")
}
