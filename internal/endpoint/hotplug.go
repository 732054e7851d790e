package endpoint

import (
	"log/slog"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"stereowatch/internal/logging"
)

// HotplugListener watches kernel udev events for the bluetooth subsystem and
// nudges the poll scheduler so a freshly paired or powered adapter is picked
// up without waiting for the next tick. It is a best-effort accelerator; the
// D-Bus watcher remains the source of truth.
type HotplugListener struct {
	logger *slog.Logger
	nudge  func()

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewHotplugListener creates a listener that invokes nudge on bluetooth
// hotplug activity.
func NewHotplugListener(logger *slog.Logger, nudge func()) *HotplugListener {
	return &HotplugListener{
		logger: logging.NewComponentLogger(logger, "hotplug"),
		nudge:  nudge,
	}
}

// Start begins listening for udev netlink events. Failure to bind the netlink
// socket is non-fatal; detection falls back to the regular poll cadence.
func (l *HotplugListener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		l.logger.Warn("failed to connect to netlink socket; relying on poll cadence",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon may open netlink sockets"),
			logging.String(logging.FieldImpact, "adapter hotplug detected only on the next tick"))
		return
	}

	l.conn = conn
	l.quit = make(chan struct{})
	l.running = true

	quit := l.quit
	go l.listen(conn, quit)

	l.logger.Info("hotplug listener started",
		logging.String(logging.FieldEventType, "hotplug_started"))
}

// Stop shuts the listener down.
func (l *HotplugListener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return
	}
	close(l.quit)
	l.quit = nil
	if l.conn != nil {
		_ = l.conn.Close()
		l.conn = nil
	}
	l.running = false
}

func (l *HotplugListener) listen(conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, bluetoothMatcher())

	for {
		select {
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			l.logger.Debug("bluetooth hotplug event",
				logging.String("action", string(uevent.Action)),
				logging.String("kobj", uevent.KObj))
			if l.nudge != nil {
				l.nudge()
			}
		case err := <-errs:
			l.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "hotplug acceleration may be unavailable"))
		}
	}
}

func bluetoothMatcher() netlink.Matcher {
	action := "add|remove|change"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "bluetooth",
		},
	})
	return rules
}
