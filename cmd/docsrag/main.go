package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docsrag/internal/app"
	"docsrag/internal/config"
	"docsrag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docsrag/config.yaml if not provided)")
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

	// The TUI owns the terminal, so logs go to a file instead of stderr.
	logger := slog.New(slog.NewTextHandler(logWriter(), nil))

	engine, err := app.BuildEngine(context.Background(), cfg, logger, true)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	m := tui.New(engine, cfg.Frameworks)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}

func logWriter() *os.File {
	f, err := os.OpenFile("docsrag.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return os.Stderr
	}
	return f
}
