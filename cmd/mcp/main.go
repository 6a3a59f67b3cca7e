package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpadapter "github.com/akozhevnikov/rule-assistant/internal/adapters/mcp"
	"github.com/akozhevnikov/rule-assistant/internal/bootstrap"
	"github.com/akozhevnikov/rule-assistant/internal/config"
	"github.com/akozhevnikov/rule-assistant/internal/observability/logging"
)

// The MCP binary serves the rule tools over stdio, so logs must stay off
// stdout; they go to stderr instead.
func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "rule-assistant-mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	server := mcpadapter.New(app.Assistant, app.Searcher)
	logger.Info("mcp_serving_stdio")
	if err := mcpadapter.ServeStdio(server); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
