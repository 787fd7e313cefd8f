// proctorwatch keeps a live connection to the proctoring server, prints
// lifecycle and proctoring events, and optionally archives them.
// Usage: go run ./cmd/proctorwatch --config configs/proctorwatch.example.yaml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/proctor-live/internal/archive"
	"github.com/rickgao/proctor-live/internal/auth"
	"github.com/rickgao/proctor-live/internal/config"
	"github.com/rickgao/proctor-live/internal/connection"
	"github.com/rickgao/proctor-live/internal/database"
	"github.com/rickgao/proctor-live/internal/metrics"
	"github.com/rickgao/proctor-live/internal/model"
	"github.com/rickgao/proctor-live/internal/proctor"
	"github.com/rickgao/proctor-live/internal/subscription"
	"github.com/rickgao/proctor-live/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "configs/proctorwatch.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "enable debug logging (frame traffic)")
	flag.Parse()

	// Set up structured logging
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := run(*configPath, logger); err != nil {
		logger.Error("proctorwatch failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	logger.Info("starting proctorwatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return err
	}

	token, err := auth.LoadToken(cfg.Server.Token, cfg.Server.TokenFile)
	if errors.Is(err, auth.ErrNoToken) {
		logger.Warn("no token configured, connecting anonymously")
	} else if err != nil {
		return err
	}

	logger.Info("configuration loaded",
		"url", cfg.Server.URL,
		"client_type", cfg.Server.ClientType,
		"client_id", cfg.Server.ClientID,
	)

	// Shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	mgr, err := connection.NewManager(managerConfig(cfg), nil,
		connection.WithLogger(logger),
		connection.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("create connection manager: %w", err)
	}

	watch(mgr, cfg.Server.ClientType, logger)

	// Tracked now, sent once connected.
	for _, c := range startupChannels(cfg.Subscriptions) {
		if err := mgr.SubscribeChannel(c); err != nil {
			return fmt.Errorf("subscribe %s: %w", c, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	var writer *archive.Writer
	if cfg.Archive.Enabled {
		logger.Info("connecting to archive database",
			"host", cfg.Archive.Database.Host,
			"port", cfg.Archive.Database.Port,
			"database", cfg.Archive.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Archive.Database)
		if err != nil {
			return fmt.Errorf("connect archive database: %w", err)
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		writer = archive.NewWriter(archiveConfig(cfg.Archive), pool, logger, m)
		writer.Attach(mgr)
		if err := writer.Start(gctx); err != nil {
			return fmt.Errorf("start archive writer: %w", err)
		}
	}

	if cfg.Metrics.Enabled() {
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: newHTTPHandler(mgr, reg, cfg.Metrics.Path),
		}

		g.Go(func() error {
			logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	mgr.Connect(token)

	// Wait for shutdown
	<-gctx.Done()
	logger.Info("shutting down...")

	mgr.Disconnect()

	if writer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := writer.Stop(shutdownCtx); err != nil {
			logger.Warn("archive writer stop failed", "error", err)
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("proctorwatch stopped")
	return nil
}

// managerConfig maps file configuration onto the connection manager.
func managerConfig(cfg *config.Config) connection.ManagerConfig {
	return connection.ManagerConfig{
		URL:                   cfg.Server.URL,
		ClientType:            cfg.Server.ClientType,
		ClientID:              cfg.Server.ClientID,
		BaseReconnectInterval: cfg.Channel.BaseReconnectInterval,
		MaxReconnectAttempts:  *cfg.Channel.MaxReconnectAttempts,
		PingInterval:          cfg.Channel.PingInterval,
		PongTimeout:           cfg.Channel.PongTimeout,
		Client: connection.ClientConfig{
			HandshakeTimeout: cfg.Server.HandshakeTimeout,
			WriteTimeout:     cfg.Server.WriteTimeout,
			BufferSize:       cfg.Server.ReadBuffer,
			UserAgent:        version.UserAgent(),
		},
	}
}

func archiveConfig(cfg config.ArchiveConfig) archive.Config {
	return archive.Config{
		EventTypes:    cfg.EventTypes,
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
		BufferSize:    cfg.BufferSize,
	}
}

func startupChannels(cfg config.SubscriptionsConfig) []subscription.Channel {
	out := make([]subscription.Channel, 0, len(cfg.Exams)+len(cfg.Rooms))
	for _, id := range cfg.Exams {
		out = append(out, subscription.Exam(id))
	}
	for _, id := range cfg.Rooms {
		out = append(out, subscription.Room(id))
	}
	return out
}

// watch logs lifecycle and proctoring events.
func watch(mgr *connection.Manager, clientType string, logger *slog.Logger) {
	for _, eventType := range []string{
		model.EventConnected,
		model.EventDisconnected,
		model.EventReconnecting,
		model.EventConnectError,
		model.EventWarning,
	} {
		eventType := eventType
		mgr.On(eventType, func(payload json.RawMessage) error {
			logger.Info("channel event", "event_type", eventType, "payload", string(payload))
			return nil
		})
	}

	mgr.On(model.EventMaxReconnectAttempts, func(payload json.RawMessage) error {
		logger.Error("reconnect attempts exhausted, restart to retry", "payload", string(payload))
		return nil
	})

	// Admin dashboards ask for a fresh overview on every connection.
	if clientType == auth.ClientAdmin {
		mgr.On(model.EventConnected, func(json.RawMessage) error {
			return proctor.RequestAnalytics(mgr, proctor.AnalyticsRequest{})
		})
	}

	proctor.OnConnectionEstablished(mgr, func(w proctor.Welcome) {
		logger.Info("server welcome", "message", w.Message)
	})
	proctor.OnViolationAlert(mgr, func(v proctor.Violation) {
		logger.Warn("violation alert",
			"student_id", v.StudentID,
			"exam_id", v.ExamID,
			"type", v.Type,
			"severity", v.Severity,
			"confidence", v.Confidence,
		)
	})
	proctor.OnAnalyticsData(mgr, func(a proctor.Analytics) {
		logger.Info("analytics",
			"total_exams", a.Overview.TotalExams,
			"active_users", a.Overview.ActiveUsers,
			"violations", a.Overview.Violations,
			"trust_score", a.Overview.TrustScore,
		)
	})
	proctor.OnServerError(mgr, func(e proctor.ServerError) {
		logger.Error("server error", "message", e.Message)
	})
}
