package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RichardoC/bizchat/internal/api"
	"github.com/RichardoC/bizchat/internal/chat"
	"github.com/RichardoC/bizchat/internal/config"
	"github.com/RichardoC/bizchat/internal/db"
	"github.com/RichardoC/bizchat/internal/intent"
	"github.com/RichardoC/bizchat/internal/llm"
	"github.com/RichardoC/bizchat/internal/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	hashPassword := flag.String("hash-password", "", "print a bcrypt hash for ADMIN_PASSWORD_HASH and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := api.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database",
			zap.Error(err),
			zap.String("dbPath", cfg.DBPath))
	}
	defer database.Close()

	llmService, err := llm.New(
		cfg.OpenAIBaseURL,
		cfg.OpenAIAPIKey,
		cfg.OpenAIModel,
		llm.WithTemperature(cfg.LLMTemperature),
		llm.WithTimeout(cfg.LLMTimeout),
	)
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}

	chatService, err := chat.NewService(
		database,
		intent.DefaultMatcher(),
		llm.NewAssembler(database, cfg.HistoryLimit),
		llmService,
		logger,
		cfg.MaxMessageLength,
	)
	if err != nil {
		logger.Fatal("failed to initialize chat service", zap.Error(err))
	}

	cookies, err := session.NewCookies(cfg.CookieSecret, cfg.CookieSecure, cfg.CookieMaxAge)
	if err != nil {
		logger.Fatal("failed to initialize session cookies", zap.Error(err))
	}

	if !cfg.ExportEnabled() {
		logger.Warn("ADMIN_PASSWORD_HASH is not set, /export is disabled")
	}
	handler := api.NewHandler(chatService, cookies, database, api.NewAdminAuth(cfg.AdminUser, cfg.AdminPasswordHash), logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(cfg.StaticDir),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.LLMTimeout + 15*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr), zap.String("model", cfg.OpenAIModel))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
