// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Verifid Contributors

package main

import (
	"context"
	cryptotls "crypto/tls"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/verifid/verifid/internal/auth"
	"github.com/verifid/verifid/internal/config"
	"github.com/verifid/verifid/internal/logging"
	"github.com/verifid/verifid/internal/observability"
	"github.com/verifid/verifid/internal/tls"
	"github.com/verifid/verifid/internal/token"
	"github.com/verifid/verifid/internal/web"
)

// NewServeCmd creates the serve subcommand. A nil deps uses the defaults.
func NewServeCmd(deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API for registration, login and email verification,
along with the metrics and health server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, true)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cmd, cfg, deps)
		},
	}

	cmd.Flags().String("http-addr", ":8080", "API listen address")
	cmd.Flags().String("metrics-addr", ":9100", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("storage-driver", config.StorageMemory, "credential store (memory or postgres)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.Flags().Bool("auto-migrate", false, "apply pending migrations on startup")
	cmd.Flags().String("mail-driver", config.MailLog, "notifier (smtp or log)")
	cmd.Flags().String("tls-cert-file", "", "PEM certificate for serving HTTPS")
	cmd.Flags().String("tls-key-file", "", "PEM private key for serving HTTPS")

	return cmd
}

// runServe wires the services and blocks until ctx is cancelled, a signal
// arrives or a listener fails.
func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.StoreFactory == nil {
		deps.StoreFactory = openStore
	}
	if deps.NotifierFactory == nil {
		deps.NotifierFactory = newNotifier
	}
	if deps.RateLimiterFactory == nil {
		deps.RateLimiterFactory = newRateLimiter
	}
	if deps.LogOutput == nil {
		deps.LogOutput = cmd.ErrOrStderr()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger := logging.Setup("verifid", version, cfg.Log.Format, cfg.Log.Level, deps.LogOutput)
	logger.Info("starting verifid",
		"http_addr", cfg.HTTP.Addr,
		"storage_driver", cfg.Storage.Driver,
		"mail_driver", cfg.Mail.Driver,
		"ratelimit_backend", cfg.RateLimit.Backend,
	)

	var tlsConfig *cryptotls.Config
	if cfg.HTTP.TLSEnabled() {
		var err error
		if tlsConfig, err = tls.LoadServerConfig(cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, release, err := deps.StoreFactory(ctx, cfg.Storage, logger)
	if err != nil {
		return oops.With("operation", "open credential store").Wrap(err)
	}
	defer release()

	routerDeps, err := buildRouterDeps(ctx, cfg, st, deps, logger)
	if err != nil {
		return err
	}
	limiter := routerDeps.Limiter
	if limiter != nil {
		defer func() {
			if closeErr := limiter.Close(); closeErr != nil {
				logger.Warn("error closing rate limiter", "error", closeErr)
			}
		}()
	}

	var obsServer *observability.Server
	var obsErrCh <-chan error
	if cfg.Observability.Addr != "" {
		obsServer = observability.NewServer(cfg.Observability.Addr, st.Ping, logger)
		auth.RegisterMetrics(obsServer.Registry())
		routerDeps.Metrics = obsServer.Metrics()
		if obsErrCh, err = obsServer.Start(); err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
	}

	router, err := web.NewRouter(routerDeps)
	if err != nil {
		stopServers(cfg, logger, nil, obsServer)
		return err
	}

	apiServer := web.NewServer(web.ServerConfig{
		Addr:         cfg.HTTP.Addr,
		ReadTimeout:  cfg.HTTP.ReadTimeout.Std(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Std(),
		TLS:          tlsConfig,
	}, router, logger)
	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopServers(cfg, logger, nil, obsServer)
		return oops.With("operation", "start api server").Wrap(err)
	}

	metricsAddr := ""
	if obsServer != nil {
		metricsAddr = obsServer.Addr()
	}
	cmd.Println("verifid started")
	logger.Info("verifid ready", "http_addr", apiServer.Addr(), "metrics_addr", metricsAddr)
	if deps.OnReady != nil {
		deps.OnReady(apiServer.Addr(), metricsAddr)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err, ok := <-apiErrCh:
		if ok && err != nil {
			serveErr = oops.With("server", "api").Wrap(err)
		}
	case err, ok := <-obsErrCh:
		if ok && err != nil {
			serveErr = oops.With("server", "observability").Wrap(err)
		}
	}

	stopServers(cfg, logger, apiServer, obsServer)
	logger.Info("shutdown complete")
	return serveErr
}

// buildRouterDeps creates the auth services and the rate limiter.
func buildRouterDeps(ctx context.Context, cfg *config.Config, st CredentialStore, deps *ServeDeps, logger *slog.Logger) (web.Deps, error) {
	hasher, err := auth.NewPasswordHasher(cfg.Password.Algorithm, cfg.Password.BcryptCost)
	if err != nil {
		return web.Deps{}, err
	}
	signer, err := token.NewHMACSigner([]byte(cfg.Token.Secret), token.WithIssuer(cfg.Token.Issuer))
	if err != nil {
		return web.Deps{}, err
	}
	notifier, err := deps.NotifierFactory(cfg, logger)
	if err != nil {
		return web.Deps{}, err
	}
	codeCfg, err := cfg.Codes.CodeConfig()
	if err != nil {
		return web.Deps{}, err
	}

	opts := []auth.Option{auth.WithLogger(logger)}
	codes, err := auth.NewCodeIssuer(st, notifier, codeCfg, opts...)
	if err != nil {
		return web.Deps{}, err
	}
	sessions, err := auth.NewSessionManager(st, signer, cfg.Token.TTL.Std(), opts...)
	if err != nil {
		return web.Deps{}, err
	}
	service, err := auth.NewAuthService(st, hasher, codes, sessions, opts...)
	if err != nil {
		return web.Deps{}, err
	}

	limiter, err := deps.RateLimiterFactory(ctx, cfg.RateLimit, logger)
	if err != nil {
		return web.Deps{}, err
	}

	return web.Deps{
		Auth:    service,
		Codes:   codes,
		Limiter: limiter,
		RateLimit: web.RateLimit{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window.Std(),
		},
		Logger: logger,
	}, nil
}

func stopServers(cfg *config.Config, logger *slog.Logger, apiServer *web.Server, obsServer *observability.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Std())
	defer cancel()

	if apiServer != nil {
		if err := apiServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping api server", "error", err)
		}
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}
}
