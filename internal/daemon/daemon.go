package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"stereowatch/internal/config"
	"stereowatch/internal/endpoint"
	"stereowatch/internal/events"
	"stereowatch/internal/logging"
	"stereowatch/internal/monitor"
	"stereowatch/internal/notifications"
	"stereowatch/internal/sessions"
	"stereowatch/internal/tracker"
)

// dispatchBuffer bounds queued events between the monitor's poll goroutine
// and the persistence/notification worker. The monitor never blocks on a
// slow subscriber; overflow drops the side effects, not the state change.
const dispatchBuffer = 64

// Daemon coordinates the monitor, event persistence, and notifications, and
// enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	monitor  *monitor.Monitor
	store    *events.Store
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time

	dispatch   chan monitor.Event
	workerDone chan struct{}
	hotplug    *endpoint.HotplugListener
}

// Status represents daemon runtime information.
type Status struct {
	Running     bool
	PID         int
	StartedAt   time.Time
	EventDBPath string
	LockPath    string
	Endpoints   []monitor.EndpointStatus
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, mon *monitor.Monitor, store *events.Store, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || mon == nil || store == nil || notifier == nil || logger == nil {
		return nil, errors.New("daemon requires config, monitor, store, notifier, and logger")
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		monitor:  mon,
		store:    store,
		notifier: notifier,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.hotplug = endpoint.NewHotplugListener(logger, mon.Nudge)
	return d, nil
}

// Start acquires the daemon lock and brings up the monitor pipeline.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another stereowatch daemon instance is already running")
	}

	d.dispatch = make(chan monitor.Event, dispatchBuffer)
	d.workerDone = make(chan struct{})
	d.monitor.Subscribe(d.enqueue)
	go d.worker(d.dispatch, d.workerDone)

	if err := d.monitor.Start(ctx); err != nil {
		close(d.dispatch)
		<-d.workerDone
		_ = d.lock.Unlock()
		return fmt.Errorf("start monitor: %w", err)
	}
	d.hotplug.Start()

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("stereowatch daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop tears down the pipeline and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	d.hotplug.Stop()
	d.monitor.Stop()
	close(d.dispatch)
	<-d.workerDone

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String("lock", d.lockPath))
	}
	d.running.Store(false)
	d.logger.Info("stereowatch daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// enqueue hands a published event to the worker without blocking the
// monitor. Dropped events lose persistence and notification only; the state
// change itself is already committed.
func (d *Daemon) enqueue(ev monitor.Event) {
	select {
	case d.dispatch <- ev:
	default:
		d.logger.Warn("event dispatch queue full, dropping side effects",
			logging.String(logging.FieldEventType, "dispatch_dropped"),
			logging.String(logging.FieldEndpoint, ev.EndpointID),
			logging.String(logging.FieldImpact, "transition not persisted or notified"))
	}
}

func (d *Daemon) worker(queue <-chan monitor.Event, done chan<- struct{}) {
	defer close(done)

	prune := time.NewTicker(time.Hour)
	defer prune.Stop()

	d.pruneEvents()
	for {
		select {
		case ev, ok := <-queue:
			if !ok {
				return
			}
			d.handleEvent(ev)
		case <-prune.C:
			d.pruneEvents()
		}
	}
}

func (d *Daemon) handleEvent(ev monitor.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rec := events.Record{
		ID:                    ev.ID,
		EndpointID:            ev.EndpointID,
		EndpointName:          ev.EndpointName,
		Previous:              ev.Previous.String(),
		Current:               ev.Current.String(),
		At:                    ev.At,
		Sessions:              ev.Sessions,
		AttributionIncomplete: ev.AttributionIncomplete,
	}
	if err := d.store.Save(ctx, rec); err != nil {
		d.logger.Error("failed to persist mode event",
			logging.Error(err),
			logging.String(logging.FieldEventType, "event_persist_failed"),
			logging.String(logging.FieldEndpoint, ev.EndpointID),
			logging.String(logging.FieldErrorHint, "check the event database and disk space"))
	}

	if err := d.notifier.NotifyModeChanged(ctx, ev.EndpointName, ev.Previous.String(), ev.Current.String()); err != nil {
		d.logger.Warn("mode change notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"))
	}
	if ev.Current == tracker.StateHandsFree {
		if err := d.notifier.NotifyHandsFreeApps(ctx, ev.EndpointName, ev.Sessions, ev.AttributionIncomplete); err != nil {
			d.logger.Warn("culprit notification failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "notification_failed"))
		}
	}
}

func (d *Daemon) pruneEvents() {
	retention := d.cfg.EventRetention()
	if retention <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pruned, err := d.store.PruneOlderThan(ctx, time.Now().Add(-retention))
	if err != nil {
		d.logger.Warn("event pruning failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "event_prune_failed"))
		return
	}
	if pruned > 0 {
		d.logger.Debug("pruned old mode events", logging.Int64("pruned", pruned))
	}
}

// Events returns recent mode transitions, newest first. An endpoint id
// narrows the result to one device.
func (d *Daemon) Events(ctx context.Context, endpointID string, limit int) ([]events.Record, error) {
	if endpointID != "" {
		return d.store.ForEndpoint(ctx, endpointID, limit)
	}
	return d.store.Recent(ctx, limit)
}

// ClearEvents removes all persisted mode transitions.
func (d *Daemon) ClearEvents(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// Apps returns the sessions streaming to an endpoint right now. With an
// empty id the first connected endpoint is used.
func (d *Daemon) Apps(ctx context.Context, endpointID string) (string, []sessions.Session, error) {
	if endpointID == "" {
		for _, status := range d.monitor.Endpoints() {
			if status.Endpoint.Connected {
				endpointID = status.Endpoint.ID
				break
			}
		}
	}
	if endpointID == "" {
		return "", nil, errors.New("no connected endpoint")
	}
	apps, err := d.monitor.AttributedApps(ctx, endpointID)
	return endpointID, apps, err
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	return Status{
		Running:     d.running.Load(),
		PID:         os.Getpid(),
		StartedAt:   d.startedAt,
		EventDBPath: d.cfg.EventDBPath(),
		LockPath:    d.lockPath,
		Endpoints:   d.monitor.Endpoints(),
	}
}
