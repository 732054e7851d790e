package monitor

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"stereowatch/internal/endpoint"
	"stereowatch/internal/logging"
	"stereowatch/internal/probe"
	"stereowatch/internal/sessions"
	"stereowatch/internal/tracker"
)

// Config carries the poll loop's timing and debounce settings.
type Config struct {
	PollInterval       time.Duration
	ProbeTimeout       time.Duration
	AttributionTimeout time.Duration
	DebounceCount      int
	FailureThreshold   int
}

// Event is one confirmed mode transition.
type Event struct {
	ID           string
	EndpointID   string
	EndpointName string
	Previous     tracker.State
	Current      tracker.State
	At           time.Time
	// Sessions is populated on transitions into hands-free.
	Sessions              []sessions.Session
	AttributionIncomplete bool
}

// EndpointStatus is a point-in-time view of one tracked endpoint.
type EndpointStatus struct {
	Endpoint      endpoint.Endpoint
	State         tracker.State
	FailureStreak int
}

// Subscriber receives published events. Implementations must return quickly;
// they run on the poll goroutine.
type Subscriber func(Event)

// AlertSink receives out-of-band monitor health alerts.
type AlertSink interface {
	PersistentProbeFailure(ctx context.Context, ep endpoint.Endpoint, failures int)
}

// snapshotEvery bounds how many ticks may pass between full endpoint
// re-enumerations; signal-driven updates cover the gaps.
const snapshotEvery = 60

// Monitor owns the poll loop.
type Monitor struct {
	cfg        Config
	watcher    endpoint.Watcher
	prober     probe.Prober
	attributor sessions.Attributor
	alerts     AlertSink
	logger     *slog.Logger

	mu              sync.Mutex
	endpoints       map[string]endpoint.Endpoint
	trackers        map[string]*tracker.Tracker
	failures        map[string]int
	failureReported map[string]bool
	subscribers     []Subscriber
	running         bool

	nudge chan struct{}
	quit  chan struct{}
	done  chan struct{}

	now   func() time.Time
	newID func() string
}

// New assembles a monitor. alerts may be nil.
func New(cfg Config, watcher endpoint.Watcher, prober probe.Prober, attributor sessions.Attributor, alerts AlertSink, logger *slog.Logger) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.ProbeTimeout <= 0 || cfg.ProbeTimeout >= cfg.PollInterval {
		cfg.ProbeTimeout = cfg.PollInterval / 2
	}
	if cfg.AttributionTimeout <= 0 {
		cfg.AttributionTimeout = time.Second
	}
	if cfg.DebounceCount < 1 {
		cfg.DebounceCount = 1
	}
	return &Monitor{
		cfg:             cfg,
		watcher:         watcher,
		prober:          prober,
		attributor:      attributor,
		alerts:          alerts,
		logger:          logging.NewComponentLogger(logger, "monitor"),
		endpoints:       make(map[string]endpoint.Endpoint),
		trackers:        make(map[string]*tracker.Tracker),
		failures:        make(map[string]int),
		failureReported: make(map[string]bool),
		nudge:           make(chan struct{}, 1),
		now:             time.Now,
		newID:           uuid.NewString,
	}
}

// Subscribe registers a synchronous event subscriber. Subscribers added
// after Start only see subsequent events.
func (m *Monitor) Subscribe(fn Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Start brings up the endpoint watcher, seeds state from a snapshot, and
// launches the poll goroutine.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.quit = make(chan struct{})
	m.done = make(chan struct{})
	m.running = true
	m.mu.Unlock()

	if err := m.watcher.Start(ctx); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return err
	}
	m.refreshEndpoints(ctx)

	go m.run()

	m.logger.Info("monitor started",
		logging.String(logging.FieldEventType, "monitor_started"),
		logging.Duration("poll_interval", m.cfg.PollInterval),
		logging.Int("debounce_count", m.cfg.DebounceCount))
	return nil
}

// Stop terminates the poll loop and the watcher.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	quit, done := m.quit, m.done
	m.mu.Unlock()

	close(quit)
	<-done
	m.watcher.Close()
	m.logger.Info("monitor stopped",
		logging.String(logging.FieldEventType, "monitor_stopped"))
}

// Nudge requests an endpoint re-enumeration on the next tick. It never
// blocks; redundant nudges coalesce.
func (m *Monitor) Nudge() {
	select {
	case m.nudge <- struct{}{}:
	default:
	}
}

// CurrentState reports the confirmed state of an endpoint. Endpoints the
// monitor has never tracked report NoDevice.
func (m *Monitor) CurrentState(endpointID string) tracker.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.trackers[endpointID]
	if !ok {
		return tracker.StateNoDevice
	}
	return tr.Confirmed()
}

// Endpoints returns the tracked endpoints sorted by name.
func (m *Monitor) Endpoints() []EndpointStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	statuses := make([]EndpointStatus, 0, len(m.endpoints))
	for id, ep := range m.endpoints {
		status := EndpointStatus{Endpoint: ep, State: tracker.StateNoDevice, FailureStreak: m.failures[id]}
		if tr, ok := m.trackers[id]; ok {
			status.State = tr.Confirmed()
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Endpoint.Name < statuses[j].Endpoint.Name
	})
	return statuses
}

// AttributedApps enumerates the sessions holding an endpoint in hands-free
// mode. Unless the endpoint's confirmed state is hands-free the result is
// empty and the audio server is never queried.
func (m *Monitor) AttributedApps(ctx context.Context, endpointID string) ([]sessions.Session, error) {
	m.mu.Lock()
	ep, known := m.endpoints[endpointID]
	state := tracker.StateNoDevice
	if tr, ok := m.trackers[endpointID]; ok {
		state = tr.Confirmed()
	}
	m.mu.Unlock()

	if state != tracker.StateHandsFree {
		return nil, nil
	}
	if !known {
		ep = endpoint.Endpoint{ID: endpointID}
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.AttributionTimeout)
	defer cancel()
	return m.attributor.Attribute(ctx, ep)
}

func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-m.quit:
			return
		case <-m.nudge:
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PollInterval)
			m.refreshEndpoints(ctx)
			cancel()
		case <-ticker.C:
			ticks++
			ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PollInterval)
			if ticks%snapshotEvery == 0 {
				m.refreshEndpoints(ctx)
			}
			m.tick(ctx)
			cancel()
		}
	}
}

// tick drains pending endpoint changes, then probes every connected endpoint.
func (m *Monitor) tick(ctx context.Context) {
	m.drainEndpointEvents()

	for _, ep := range m.connectedEndpoints() {
		probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
		sample := m.prober.Sample(probeCtx, ep)
		cancel()

		m.recordProbeOutcome(ctx, ep, sample)

		m.mu.Lock()
		tr, ok := m.trackers[ep.ID]
		m.mu.Unlock()
		if !ok {
			continue
		}

		if transition, changed := tr.Observe(sample); changed {
			m.publishTransition(ctx, ep, transition)
		}
	}
}

// drainEndpointEvents applies all queued watcher events before probing, so
// removals observed during this tick take effect immediately.
func (m *Monitor) drainEndpointEvents() {
	for {
		select {
		case ev := <-m.watcher.Events():
			m.applyEndpointEvent(ev)
		default:
			return
		}
	}
}

func (m *Monitor) applyEndpointEvent(ev endpoint.Event) {
	switch ev.Type {
	case endpoint.Added:
		m.mu.Lock()
		ep := ev.Endpoint
		ep.Connected = true
		wasConnected := m.endpoints[ep.ID].Connected
		m.endpoints[ep.ID] = ep
		if !wasConnected {
			// A connection always starts a fresh debounce window; nothing
			// from a previous attachment carries over.
			m.trackers[ep.ID] = tracker.New(m.cfg.DebounceCount)
		}
		m.mu.Unlock()
		if wasConnected {
			return
		}
		m.logger.Info("endpoint connected",
			logging.String(logging.FieldEventType, "endpoint_connected"),
			logging.String(logging.FieldEndpoint, ev.Endpoint.ID),
			logging.String("name", ev.Endpoint.Name))

	case endpoint.Removed:
		m.mu.Lock()
		ep, known := m.endpoints[ev.Endpoint.ID]
		if known {
			ep.Connected = false
			m.endpoints[ep.ID] = ep
		} else {
			ep = ev.Endpoint
		}
		// The tracker dies with the endpoint; only display metadata in
		// m.endpoints survives a disconnect.
		tr, tracked := m.trackers[ev.Endpoint.ID]
		delete(m.trackers, ev.Endpoint.ID)
		delete(m.failures, ev.Endpoint.ID)
		delete(m.failureReported, ev.Endpoint.ID)
		m.mu.Unlock()

		m.logger.Info("endpoint disconnected",
			logging.String(logging.FieldEventType, "endpoint_disconnected"),
			logging.String(logging.FieldEndpoint, ev.Endpoint.ID))

		if tracked {
			if transition, changed := tr.Remove(m.now()); changed {
				m.publishTransition(context.Background(), ep, transition)
			}
		}
	}
}

// connectedEndpoints returns the endpoints to probe this tick.
func (m *Monitor) connectedEndpoints() []endpoint.Endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	eps := make([]endpoint.Endpoint, 0, len(m.endpoints))
	for _, ep := range m.endpoints {
		if ep.Connected {
			eps = append(eps, ep)
		}
	}
	sort.Slice(eps, func(i, j int) bool { return eps[i].ID < eps[j].ID })
	return eps
}

// recordProbeOutcome tracks consecutive probe failures per endpoint and
// raises a single alert when the streak crosses the threshold. The streak
// keeps counting; a success resets it and re-arms the alert.
func (m *Monitor) recordProbeOutcome(ctx context.Context, ep endpoint.Endpoint, sample probe.Sample) {
	if m.cfg.FailureThreshold <= 0 {
		return
	}

	m.mu.Lock()
	if sample.Reason == "" {
		m.failures[ep.ID] = 0
		m.failureReported[ep.ID] = false
		m.mu.Unlock()
		return
	}
	m.failures[ep.ID]++
	streak := m.failures[ep.ID]
	shouldReport := streak >= m.cfg.FailureThreshold && !m.failureReported[ep.ID]
	if shouldReport {
		m.failureReported[ep.ID] = true
	}
	m.mu.Unlock()

	if !shouldReport {
		return
	}
	m.logger.Warn("endpoint probe failing persistently",
		logging.String(logging.FieldEventType, "probe_failure_streak"),
		logging.String(logging.FieldEndpoint, ep.ID),
		logging.Int("failures", streak),
		logging.String("reason", sample.Reason),
		logging.String(logging.FieldErrorHint, "check the audio server and bluetooth link"),
		logging.String(logging.FieldImpact, "mode state is stale until probing recovers"))
	if m.alerts != nil {
		m.alerts.PersistentProbeFailure(ctx, ep, streak)
	}
}

// publishTransition attributes hands-free switches and delivers the event to
// every subscriber on the poll goroutine.
func (m *Monitor) publishTransition(ctx context.Context, ep endpoint.Endpoint, transition tracker.Transition) {
	event := Event{
		ID:           m.newID(),
		EndpointID:   ep.ID,
		EndpointName: ep.Name,
		Previous:     transition.From,
		Current:      transition.To,
		At:           transition.At,
	}

	if transition.To == tracker.StateHandsFree {
		attrCtx, cancel := context.WithTimeout(ctx, m.cfg.AttributionTimeout)
		sessions, err := m.attributor.Attribute(attrCtx, ep)
		cancel()
		if err != nil {
			event.AttributionIncomplete = true
			m.logger.Warn("session attribution incomplete",
				logging.Error(err),
				logging.String(logging.FieldEventType, "attribution_incomplete"),
				logging.String(logging.FieldEndpoint, ep.ID),
				logging.String(logging.FieldImpact, "event published without a culprit list"))
		} else {
			event.Sessions = sessions
		}
	}

	m.logger.Info("mode transition",
		logging.String(logging.FieldEventType, "mode_transition"),
		logging.String(logging.FieldEndpoint, ep.ID),
		logging.String("name", ep.Name),
		logging.String("previous", transition.From.String()),
		logging.String(logging.FieldMode, transition.To.String()))

	m.mu.Lock()
	subscribers := make([]Subscriber, len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	for _, fn := range subscribers {
		fn(event)
	}
}

// refreshEndpoints reconciles tracked endpoints against a full enumeration.
func (m *Monitor) refreshEndpoints(ctx context.Context) {
	connected, err := m.watcher.Snapshot(ctx)
	if err != nil {
		m.logger.Warn("endpoint snapshot failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "snapshot_failed"),
			logging.String(logging.FieldImpact, "endpoint set may be stale until the next snapshot"))
		return
	}

	seen := make(map[string]bool, len(connected))
	for _, ep := range connected {
		seen[ep.ID] = true
		m.applyEndpointEvent(endpoint.Event{Type: endpoint.Added, Endpoint: ep})
	}

	m.mu.Lock()
	var vanished []endpoint.Endpoint
	for id, ep := range m.endpoints {
		if ep.Connected && !seen[id] {
			vanished = append(vanished, ep)
		}
	}
	m.mu.Unlock()

	for _, ep := range vanished {
		m.applyEndpointEvent(endpoint.Event{Type: endpoint.Removed, Endpoint: ep})
	}
}
