package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/roastmail/internal/config"
	"github.com/vbonduro/roastmail/internal/db"
	"github.com/vbonduro/roastmail/internal/logging"
	"github.com/vbonduro/roastmail/internal/roast"
	clauderoast "github.com/vbonduro/roastmail/internal/roast/claude"
	geminiroast "github.com/vbonduro/roastmail/internal/roast/gemini"
	ollamaroast "github.com/vbonduro/roastmail/internal/roast/ollama"
	openairoast "github.com/vbonduro/roastmail/internal/roast/openai"
	"github.com/vbonduro/roastmail/internal/service"
	"github.com/vbonduro/roastmail/internal/session"
	"github.com/vbonduro/roastmail/internal/session/memory"
	redisstore "github.com/vbonduro/roastmail/internal/session/redis"
	"github.com/vbonduro/roastmail/internal/store"
	"github.com/vbonduro/roastmail/internal/web"
	"github.com/vbonduro/roastmail/internal/web/templates"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	sessions, closeSessions, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize session store", "error", err)
		return
	}
	defer closeSessions()

	roaster, closeRoaster, err := newRoaster(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize roast backend", "error", err)
		return
	}
	defer closeRoaster()

	roastService := service.NewRoastService(sessions, store.NewAttemptStore(database), roaster, logger)
	server := web.NewServer(roastService, templates.FS, logger)

	if err := server.Run(ctx, cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (session.Store, func(), error) {
	switch cfg.SessionBackend {
	case "redis":
		client, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis session store", "ttl", cfg.SessionTTL.String())
		return redisstore.NewRedisStore(client, cfg.SessionTTL), func() { closeWithLog(client, "redis client", logger) }, nil
	case "memory":
		logger.Info("using in-memory session store", "ttl", cfg.SessionTTL.String())
		return memory.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}
}

func newRoaster(ctx context.Context, cfg *config.Config, logger *slog.Logger) (roast.Roaster, func(), error) {
	if cfg.NeedsAPIKey() && cfg.APIKey() == "" {
		logger.Warn("no API key configured; roast requests will fail authentication", "backend", cfg.RoastBackend)
	}

	noop := func() {}
	switch cfg.RoastBackend {
	case "openai":
		logger.Info("using OpenAI roast backend", "model", cfg.OpenAIModel)
		return openairoast.NewOpenAIRoaster(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.MaxOutputTokens), noop, nil
	case "claude":
		logger.Info("using Claude roast backend", "model", cfg.ClaudeModel)
		return clauderoast.NewClaudeRoaster(cfg.ClaudeAPIKey, cfg.ClaudeModel, cfg.MaxOutputTokens), noop, nil
	case "ollama":
		logger.Info("using Ollama roast backend", "model", cfg.OllamaModel)
		return ollamaroast.NewOllamaRoaster(cfg.OllamaHost, cfg.OllamaModel, cfg.MaxOutputTokens), noop, nil
	case "gemini":
		logger.Info("using Gemini roast backend", "model", cfg.GeminiModel)
		g, err := geminiroast.NewGeminiRoaster(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxOutputTokens)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { closeWithLog(g, "gemini client", logger) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown ROAST_BACKEND %q", cfg.RoastBackend)
	}
}

func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
