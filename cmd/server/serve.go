package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"recipe_hub/internal/api"
	"recipe_hub/internal/platform/session"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", ":"+a.cfg.APIPort)
			if err != nil {
				return fmt.Errorf("could not listen on %s: %w", a.cfg.APIPort, err)
			}
			return a.serve(ctx, ln)
		},
	}
}

// serve prepares storage, opens the view store and runs the API on ln until
// ctx is cancelled.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	a.ensureStorage()
	if n, err := a.auth.MigratePlaintextPasswords(ctx); err != nil {
		a.logger.Warn("Password migration failed", zap.Error(err))
	} else if n > 0 {
		a.logger.Info("Password migration finished", zap.Int("migrated", n))
	}

	views := a.openViewStore(ctx)
	defer views.Close()

	server := &http.Server{
		Handler: api.NewRouter(api.Dependencies{
			AuthService:    a.auth,
			RecipeService:  a.catalog,
			Views:          views,
			Tokens:         a.tokens,
			AllowedOrigins: a.cfg.CORSAllowedOrigins,
			Logger:         a.logger,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Server starting", zap.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}

// openViewStore prefers Redis when configured and falls back to process
// memory if it is unreachable.
func (a *app) openViewStore(ctx context.Context) session.Store {
	if a.cfg.RedisAddr == "" {
		return session.NewMemoryStore()
	}
	store, err := session.ConnectRedis(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB, a.tokens.Expiration())
	if err != nil {
		a.logger.Warn("Redis unavailable, keeping view state in memory", zap.Error(err))
		return session.NewMemoryStore()
	}
	a.logger.Info("Redis connected", zap.String("addr", a.cfg.RedisAddr))
	return store
}
