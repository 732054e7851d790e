package ipc

import "time"

// StatusRequest asks for daemon runtime information.
type StatusRequest struct{}

// EndpointStatus is the wire form of one tracked endpoint.
type EndpointStatus struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Connected     bool   `json:"connected"`
	State         string `json:"state"`
	FailureStreak int    `json:"failure_streak,omitempty"`
}

// StatusResponse carries daemon runtime information.
type StatusResponse struct {
	Running     bool             `json:"running"`
	PID         int              `json:"pid"`
	StartedAt   time.Time        `json:"started_at"`
	EventDBPath string           `json:"event_db_path"`
	LockPath    string           `json:"lock_path"`
	Endpoints   []EndpointStatus `json:"endpoints,omitempty"`
}

// AppsRequest asks which applications stream to an endpoint. An empty
// endpoint id selects the first connected endpoint.
type AppsRequest struct {
	EndpointID string `json:"endpoint_id,omitempty"`
}

// App is the wire form of one attributed session.
type App struct {
	PID      int32   `json:"pid"`
	Name     string  `json:"name"`
	Resolved bool    `json:"resolved"`
	Peak     float64 `json:"peak"`
}

// AppsResponse lists the sessions on the chosen endpoint, ranked most likely
// culprit first.
type AppsResponse struct {
	EndpointID string `json:"endpoint_id"`
	Apps       []App  `json:"apps,omitempty"`
}

// EventsRequest asks for recent mode transitions.
type EventsRequest struct {
	EndpointID string `json:"endpoint_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// ModeEvent is the wire form of one persisted transition.
type ModeEvent struct {
	ID                    string    `json:"id"`
	EndpointID            string    `json:"endpoint_id"`
	EndpointName          string    `json:"endpoint_name"`
	Previous              string    `json:"previous"`
	Current               string    `json:"current"`
	At                    time.Time `json:"at"`
	Apps                  []App     `json:"apps,omitempty"`
	AttributionIncomplete bool      `json:"attribution_incomplete,omitempty"`
}

// EventsResponse lists persisted transitions, newest first.
type EventsResponse struct {
	Events []ModeEvent `json:"events,omitempty"`
}

// EventsClearRequest removes the persisted transition history.
type EventsClearRequest struct{}

// EventsClearResponse reports how many records were removed.
type EventsClearResponse struct {
	Removed int64 `json:"removed"`
}

// StopRequest asks the daemon to shut down.
type StopRequest struct{}

// StopResponse acknowledges a shutdown request.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the outcome of a notification test.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
