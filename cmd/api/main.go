package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"google.golang.org/grpc"

	"opsboard.org/internal/audit"
	"opsboard.org/internal/auth"
	"opsboard.org/internal/config"
	"opsboard.org/internal/httpapi"
	"opsboard.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)
	logger := obs.Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	var db *sql.DB
	if cfg.Database.DSN != "" {
		db, err = sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			logger.Error("open db", "error", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnLifetime)
	}

	// The auth subsystem either comes up fully configured or not at all.
	// Without key material the process still serves health and metrics but
	// refuses authentication traffic.
	var svc *auth.Service
	var notifier *auth.Notifier
	if err := cfg.ValidateAuth(); err != nil {
		logger.Error("authentication disabled", "error", err)
	} else if db == nil {
		logger.Error("authentication disabled", "error", "no database configured")
	} else {
		keyring, err := auth.NewKeyring([]byte(cfg.JWT.Secret), cfg.JWT.Issuer, cfg.JWT.Leeway)
		if err != nil {
			logger.Error("build keyring", "error", err)
			os.Exit(1)
		}
		store := auth.NewPGStore(db)
		notifier = auth.NewNotifier(cfg.EventBuffer, tokenEventSink(store), obs.TokenEventDropped)

		svc, err = auth.NewService(store, keyring,
			auth.WithTokenTTL(cfg.JWT.TTL),
			auth.WithAudience(cfg.JWT.Audience),
			auth.WithTracker(auth.NewTracker()),
			auth.WithNotifier(notifier),
			auth.WithVerifyConcurrency(cfg.VerifyConcurrency),
		)
		if err != nil {
			logger.Error("build auth service", "error", err)
			os.Exit(1)
		}
	}

	probe := httpapi.ReadyProbe{DB: db}
	api := httpapi.New(probe, version, svc,
		httpapi.WithRateLimit(cfg.Rate.PerSecond, cfg.Rate.Burst),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Error("grpc listen", "error", err)
			os.Exit(1)
		}
		grpcServer = grpc.NewServer()
		healthSvc := httpapi.NewGRPCHealth(probe)
		healthSvc.Register(grpcServer)
		go healthSvc.Watch(rootCtx, 10*time.Second)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("grpc serve", "error", err)
			}
		}()
		logger.Info("grpc health listening", "addr", cfg.GRPCAddr)
	}

	logger.Info("starting opsboard-api", "version", version, "addr", srv.Addr, "auth_enabled", svc != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if notifier != nil {
		notifier.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	logger.Info("stopped")
}

// tokenEventSink journals issuance events and emits the audit line. Runs on
// the notifier's drain goroutine, never on a request path.
func tokenEventSink(logs auth.LoginLogStore) auth.EventSink {
	return func(ctx context.Context, ev auth.TokenEvent) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		ctx = audit.WithRequestID(ctx, ev.RequestID)
		_ = audit.LogEvent(ctx, "auth.token.issued", map[string]any{
			"token_id":   ev.TokenID,
			"user_id":    ev.UserID,
			"username":   ev.Username,
			"domain":     ev.Domain,
			"audience":   ev.Audience,
			"expires_at": ev.ExpiresAt.UTC().Format(time.RFC3339),
		})

		err := logs.Append(ctx, &auth.LoginLog{
			UserID:    ev.UserID,
			Username:  ev.Username,
			Domain:    ev.Domain,
			LoginAt:   ev.IssuedAt,
			IP:        ev.IP,
			UserAgent: ev.UserAgent,
			RequestID: ev.RequestID,
		})
		if err != nil {
			obs.Logger().Warn("login journal write failed", "error", err)
		}
	}
}
