package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"knowledgebot/internal/bootstrap"
	"knowledgebot/internal/config"
	"knowledgebot/internal/transport/cli"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, newServices, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newServices builds the application without the chat cache or the queue.
func newServices(ctx context.Context) (*cli.Services, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config failed: %w", err)
	}
	cfg.Redis.Enabled = false
	cfg.RabbitMQ.Enabled = false

	a, err := bootstrap.New(ctx, cfg, bootstrap.NewLogger(cfg.Log, os.Stderr))
	if err != nil {
		return nil, nil, err
	}
	return &cli.Services{
		Documents: a.Ingest,
		Knowledge: a.RAG,
		Stats:     a.Index,
	}, a.Close, nil
}
