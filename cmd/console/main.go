package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/oversight-labs/fleetwatch/internal/alerts"
	"github.com/oversight-labs/fleetwatch/internal/capture"
	"github.com/oversight-labs/fleetwatch/internal/catalog"
	"github.com/oversight-labs/fleetwatch/internal/command"
	"github.com/oversight-labs/fleetwatch/internal/config"
	"github.com/oversight-labs/fleetwatch/internal/riskanalysis"
	"github.com/oversight-labs/fleetwatch/internal/server"
	"github.com/oversight-labs/fleetwatch/internal/session"
	"github.com/oversight-labs/fleetwatch/internal/telemetry"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)

	cfg := config.DefaultConsoleConfig()

	seed := catalog.Default()
	if cfg.CatalogPath != "" {
		loaded, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.WithError(err).WithField("path", cfg.CatalogPath).Warn("Catalog load failed, using built-in seed")
		} else {
			seed = loaded
		}
	}

	state := session.New(cfg.CommandLogLimit, cfg.TranscriptLimit)
	state.Seed(seed.Devices, seed.Conversations, seed.Rules, seed.Alerts)

	gateway := riskanalysis.NewClient(riskanalysis.Config{
		APIEndpoint: cfg.RiskAPIEndpoint,
		APIKey:      cfg.RiskAPIKey,
		Timeout:     cfg.RiskAPITimeout,
	}, log)
	engine := alerts.NewEngine(state, log)
	pipeline := command.New(command.Config{
		DispatchDelay:       cfg.DispatchDelay,
		AckDelay:            cfg.AckDelay,
		ProvisionStageDelay: cfg.ProvisionStageDelay,
		DecryptDelay:        cfg.DecryptDelay,
	}, state, log, nil)
	captures := capture.NewManager(capture.Config{SegmentInterval: cfg.TranscriptInterval}, state, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sim := telemetry.New(telemetry.Config{Interval: cfg.TickInterval, Drift: cfg.Drift}, state, log)
	sim.Start(ctx)

	if cfg.CatalogPath != "" {
		watcher, err := catalog.NewWatcher(cfg.CatalogPath, log, state.SetRules)
		if err != nil {
			log.WithError(err).Warn("Catalog watcher unavailable")
		} else {
			go watcher.Start(ctx)
		}
	}

	srv := server.New(cfg, server.Deps{
		State:    state,
		Pipeline: pipeline,
		Gateway:  gateway,
		Engine:   engine,
		Captures: captures,
	}, log)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Console server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down console")
	cancel()
	sim.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
