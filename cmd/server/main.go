package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/config"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/server"
)

func main() {
	// Config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// Logger
	logger, closeLog, err := config.SetupLogger(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to set up logging:", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	if err := server.Run(context.Background(), cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}
