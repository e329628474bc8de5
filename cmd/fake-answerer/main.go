// ABOUTME: Local stand-in for the remote answer service
// ABOUTME: serve runs the /chat endpoint with an echo responder; token mints bearer tokens for it

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/2389/ragchat/internal/answerserver"
	"github.com/2389/ragchat/internal/auth"
	"github.com/2389/ragchat/internal/config"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "fake-answerer",
		Short:         "Local answer service for developing against ragchat",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/ragchat/config.yaml)")

	root.AddCommand(newServeCmd(opts), newTokenCmd(opts))
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve POST /chat until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Resolve(opts.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if addr != "" {
				cfg.Server.HTTPAddr = addr
			}
			logger := setupLogger(cfg.Logging, cmd.ErrOrStderr())

			l, err := net.Listen("tcp", cfg.Server.HTTPAddr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.Server.HTTPAddr, err)
			}

			green := color.New(color.FgGreen)
			green.Fprint(cmd.OutOrStdout(), "    ▶ ")
			fmt.Fprintf(cmd.OutOrStdout(), "Listening: http://%s\n", l.Addr())

			return serve(cmd.Context(), l, serverConfig(cfg.Server), logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.http_addr)")
	return cmd
}

func serverConfig(cfg config.ServerConfig) answerserver.Config {
	sc := answerserver.Config{
		Addr:      cfg.HTTPAddr,
		DedupeTTL: cfg.DedupeTTL,
	}
	// Leave Verifier as a nil interface when authentication is off
	if cfg.JWTSecret != "" {
		sc.Verifier = auth.NewJWTVerifier([]byte(cfg.JWTSecret))
	}
	return sc
}

// serve runs the answer service on l until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, l net.Listener, cfg answerserver.Config, logger *slog.Logger) error {
	srv := answerserver.New(cfg, nil, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(l)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down answer service")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with server.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Resolve(opts.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if cfg.Server.JWTSecret == "" {
				return errors.New("server.jwt_secret is not set")
			}
			token, err := auth.NewJWTVerifier([]byte(cfg.Server.JWTSecret)).Generate(subject, ttl)
			if err != nil {
				return fmt.Errorf("generating token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "ragchat", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func setupLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
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
