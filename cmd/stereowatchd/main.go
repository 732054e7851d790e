package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stereowatch/internal/config"
	"stereowatch/internal/daemon"
	"stereowatch/internal/endpoint"
	"stereowatch/internal/events"
	"stereowatch/internal/ipc"
	"stereowatch/internal/logging"
	"stereowatch/internal/monitor"
	"stereowatch/internal/notifications"
	"stereowatch/internal/probe"
	"stereowatch/internal/pulse"
	"stereowatch/internal/sessions"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := events.Open(cfg)
	if err != nil {
		logger.Error("open event store", logging.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	audio := pulse.NewClient()

	mon := monitor.New(monitor.Config{
		PollInterval:       cfg.PollInterval(),
		ProbeTimeout:       cfg.ProbeTimeout(),
		AttributionTimeout: cfg.AttributionTimeout(),
		DebounceCount:      cfg.Monitor.DebounceCount,
		FailureThreshold:   cfg.Monitor.FailureThreshold,
	},
		endpoint.NewBluezWatcher(logger),
		probe.NewPulseProber(audio, logger),
		sessions.NewPulseAttributor(audio, logger),
		daemon.NewAlertSink(notifier, logger),
		logger,
	)

	d, err := daemon.New(cfg, mon, store, notifier, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, cancel, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		os.Exit(1)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		if errors.Is(err, endpoint.ErrSubsystemUnreachable) {
			logger.Error("bluetooth subsystem unreachable",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "start bluetooth.service and retry"))
			os.Exit(1)
		}
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("stereowatchd shutting down")
}
