package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

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

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the monitor daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := events.Open(cfg)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
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
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	server, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, cancel, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer server.Close()
	server.Serve()

	if err := d.Start(signalCtx); err != nil {
		if errors.Is(err, endpoint.ErrSubsystemUnreachable) {
			return fmt.Errorf("bluetooth subsystem unreachable: %w", err)
		}
		return fmt.Errorf("start daemon: %w", err)
	}

	<-signalCtx.Done()
	logger.Info("stereowatch shutting down")
	return nil
}
