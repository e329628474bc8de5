// ABOUTME: Wiring for the ragchat client: config, logger, store, answerer, and session controllers
// ABOUTME: Every subcommand that touches conversations opens an app and closes it when done

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/2389/ragchat/internal/answer"
	"github.com/2389/ragchat/internal/auth"
	"github.com/2389/ragchat/internal/config"
	"github.com/2389/ragchat/internal/conversation"
	"github.com/2389/ragchat/internal/ids"
	"github.com/2389/ragchat/internal/session"
	"github.com/2389/ragchat/internal/store"
)

type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  store.Store
	repo   *conversation.Repository
	log    *conversation.MessageLog
	locks  *conversation.KeyedMutex
}

// openApp resolves the config and opens the configured store.
func openApp(configPath string, logOut io.Writer) (*app, error) {
	cfg, _, err := config.Resolve(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging, logOut)
	slog.SetDefault(logger)
	return newApp(cfg, logger)
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	s, err := store.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	gen := ids.NewSequence()

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  s,
		repo:   conversation.NewRepository(s, gen, logger),
		log:    conversation.NewMessageLog(s, gen, logger),
		locks:  conversation.NewKeyedMutex(),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// newController builds a chat view backed by the configured answer service.
func (a *app) newController() (*session.Controller, error) {
	answerer, err := newAnswerer(a.cfg.Answerer, a.logger)
	if err != nil {
		return nil, err
	}
	return a.controllerWith(answerer), nil
}

func (a *app) controllerWith(answerer answer.Answerer) *session.Controller {
	return session.New(session.Deps{
		Conversations: a.repo,
		Messages:      a.log,
		Answerer:      answerer,
		Locks:         a.locks,
		Logger:        a.logger,
	})
}

// newAnswerer selects the answer service client named by cfg.Provider.
func newAnswerer(cfg config.AnswererConfig, logger *slog.Logger) (answer.Answerer, error) {
	switch cfg.Provider {
	case answer.ProviderHTTP, "":
		httpCfg := answer.HTTPConfig{
			BaseURL:           cfg.BaseURL,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}
		// Leave Signer as a nil interface when no secret is configured
		if cfg.JWTSecret != "" {
			httpCfg.Signer = auth.NewJWTVerifier([]byte(cfg.JWTSecret))
		}
		client, err := answer.NewHTTPClient(httpCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("creating answer client: %w", err)
		}
		return client, nil
	case answer.ProviderOpenAI:
		client, err := answer.NewOpenAIClient(answer.OpenAIConfig{
			APIKey:            cfg.OpenAI.APIKey,
			Model:             cfg.OpenAI.Model,
			BaseURL:           cfg.OpenAI.BaseURL,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating answer client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown answer provider %q", cfg.Provider)
	}
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	if out == nil {
		out = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}
