package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	specpkg "github.com/webbase/adminapi/api"
	"github.com/webbase/adminapi/internal/api"
	"github.com/webbase/adminapi/internal/auth"
	"github.com/webbase/adminapi/internal/config"
	"github.com/webbase/adminapi/internal/organization"
	"github.com/webbase/adminapi/internal/permission"
	"github.com/webbase/adminapi/internal/refcheck"
	"github.com/webbase/adminapi/internal/role"
	"github.com/webbase/adminapi/internal/store"
	"github.com/webbase/adminapi/internal/user"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			setupLogger(cfg.LogLevel)
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		n, err := db.MigrateUp(ctx)
		if err != nil {
			return err
		}
		slog.Info("migrations applied", "count", n)
	}

	checker := refcheck.NewRegistry(db)
	if err := checker.Register(ctx, refcheck.Defaults()...); err != nil {
		return fmt.Errorf("registering reference checks: %w", err)
	}
	slog.Debug("reference checks registered", "keys", checker.Keys())

	users := user.NewRepository(db)

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	}, users)
	if err != nil {
		return err
	}

	authService, err := auth.NewService(users, tokens, cfg.BcryptCost)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.RouterDeps{
		DBPinger:           db,
		Driver:             db.Driver(),
		Version:            cfg.Version,
		OpenAPISpec:        specpkg.OpenAPISpec,
		Tokens:             tokens,
		Auth:               authService,
		Checker:            checker,
		Users:              users,
		Roles:              role.NewRepository(db),
		Permissions:        permission.NewRepository(db),
		Organizations:      organization.NewRepository(db),
		AdminRole:          cfg.AdminRole,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting adminapi server", "port", cfg.Port, "version", cfg.Version, "driver", cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
