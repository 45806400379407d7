package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sportsbro/sportsbro/internal/api"
	"github.com/sportsbro/sportsbro/internal/auth"
	"github.com/sportsbro/sportsbro/internal/config"
	"github.com/sportsbro/sportsbro/internal/events"
	"github.com/sportsbro/sportsbro/internal/metrics"
	"github.com/sportsbro/sportsbro/internal/ratelimit"
	"github.com/sportsbro/sportsbro/internal/team"
	"github.com/sportsbro/sportsbro/internal/user"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SportsBro API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()

	m := metrics.New()
	if be.poolStats != nil {
		m.RegisterDBPoolCollector(cfg.Database.Driver, be.poolStats)
	}

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if cfg.Events.NATSURL != "" {
		jsCfg := events.DefaultJetStreamConfig()
		jsCfg.URL = cfg.Events.NATSURL
		jsCfg.StreamName = cfg.Events.Stream
		jsCfg.SubjectPrefix = cfg.Events.SubjectPrefix
		js, err := events.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return err
		}
		defer js.Close()
		publisher = js
		slog.Info("publishing team events to nats", "stream", jsCfg.StreamName)
	}

	profiles := user.NewProfileAdapter(be.users)
	teams := team.NewService(team.ServiceDeps{
		Store:     be.teams,
		Users:     profiles,
		Publisher: publisher,
		Observer:  m,
		Policy: team.Policy{
			DirectJoinRequiresPublic: cfg.Teams.DirectJoinRequiresPublic,
		},
		MaxWriteAttempts: cfg.Teams.MaxWriteAttempts,
	})

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, nil)

	// Memory storage starts empty, so nobody could log in without demo users.
	if cfg.Database.Driver == config.DriverMemory {
		if err := seedDemo(ctx, cmd.OutOrStdout(), cfg.Server.Port, be.users, teams, tokens); err != nil {
			return err
		}
	}

	router := api.NewRouter(api.RouterDeps{
		Teams:          teams,
		Projector:      team.NewProjector(profiles),
		Users:          be.users,
		Tokens:         tokens,
		Limiter:        ratelimit.New(cfg.RateLimit.Default, cfg.RateLimit.Window, nil),
		Metrics:        m,
		HealthCheck:    be.ping,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}
