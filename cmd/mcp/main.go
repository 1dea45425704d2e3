package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/mcp"
)

func main() {
	serverURL := os.Getenv("MEMORY_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8741"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(serverURL, os.Stdin, os.Stdout)
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "mcp server error: %s\n", err)
		os.Exit(1)
	}
}
