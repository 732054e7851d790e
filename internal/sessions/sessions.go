package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"stereowatch/internal/endpoint"
	"stereowatch/internal/logging"
	"stereowatch/internal/pulse"
)

// Session is one application holding an audio stream on an endpoint.
type Session struct {
	PID      int32   `json:"pid"`
	Name     string  `json:"name"`
	Resolved bool    `json:"resolved"`
	Peak     float64 `json:"peak"`
}

// Attributor enumerates the sessions active on an endpoint, ranked most
// likely culprit first.
type Attributor interface {
	Attribute(ctx context.Context, ep endpoint.Endpoint) ([]Session, error)
}

// audioQuerier is the slice of the pulse client the attributor needs.
type audioQuerier interface {
	ListSinks(ctx context.Context) ([]pulse.Sink, error)
	ListSinkInputs(ctx context.Context) ([]pulse.SinkInput, error)
}

// PulseAttributor resolves sessions from the audio server's stream list.
type PulseAttributor struct {
	audio  audioQuerier
	logger *slog.Logger

	procName func(pid int32) (string, bool)

	// appeared records the pass at which each pid's current stream run began.
	// Ties in peak level go to the stream that appeared most recently.
	appeared map[int32]uint64
	present  map[int32]bool
	seq      uint64
}

// NewPulseAttributor builds an attributor backed by the given pulse client.
func NewPulseAttributor(client audioQuerier, logger *slog.Logger) *PulseAttributor {
	return &PulseAttributor{
		audio:    client,
		logger:   logging.NewComponentLogger(logger, "sessions"),
		procName: commName,
		appeared: make(map[int32]uint64),
		present:  make(map[int32]bool),
	}
}

// Attribute lists the sessions audibly streaming to ep. Corked, muted, and
// otherwise silent streams are excluded; an empty result means nothing is
// making sound there right now. Enumeration failures return an error so the
// caller can flag the attribution as incomplete.
func (a *PulseAttributor) Attribute(ctx context.Context, ep endpoint.Endpoint) ([]Session, error) {
	sinks, err := a.audio.ListSinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate sinks: %w", err)
	}

	sinkIndex := -1
	for _, sink := range sinks {
		if sink.MatchesAddress(ep.ID) {
			sinkIndex = sink.Index
			break
		}
	}
	if sinkIndex < 0 {
		return nil, nil
	}

	inputs, err := a.audio.ListSinkInputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate streams: %w", err)
	}

	a.seq++
	nowPresent := make(map[int32]bool)
	byPID := make(map[int32]*Session)
	var sessions []*Session
	for _, input := range inputs {
		if input.Sink != sinkIndex {
			continue
		}
		if input.PeakLevel() == 0 {
			continue
		}
		s := a.sessionFor(input)
		if s.PID > 0 {
			if !a.present[s.PID] {
				a.appeared[s.PID] = a.seq
			}
			nowPresent[s.PID] = true
			if existing, ok := byPID[s.PID]; ok {
				if s.Peak > existing.Peak {
					existing.Peak = s.Peak
				}
				continue
			}
			byPID[s.PID] = &s
		}
		sessions = append(sessions, &s)
	}
	a.present = nowPresent

	a.rank(sessions)
	a.pruneStale()

	out := make([]Session, len(sessions))
	for i, s := range sessions {
		out[i] = *s
	}
	return out, nil
}

func (a *PulseAttributor) sessionFor(input pulse.SinkInput) Session {
	s := Session{Peak: input.PeakLevel()}
	if pid, ok := input.ProcessID(); ok {
		s.PID = pid
	}

	if name := input.ApplicationName(); name != "" {
		s.Name = humanizeName(name)
		s.Resolved = true
		return s
	}
	if s.PID > 0 {
		if name, ok := a.procName(s.PID); ok {
			s.Name = humanizeName(name)
			s.Resolved = true
			return s
		}
	}

	s.Name = "unknown process"
	if s.PID > 0 {
		s.Name = fmt.Sprintf("pid %d", s.PID)
	}
	return s
}

// rank orders sessions loudest first; equal peaks fall back to the stream
// that appeared most recently, then PID for determinism.
func (a *PulseAttributor) rank(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].Peak != sessions[j].Peak {
			return sessions[i].Peak > sessions[j].Peak
		}
		si, sj := a.appeared[sessions[i].PID], a.appeared[sessions[j].PID]
		if si != sj {
			return si > sj
		}
		return sessions[i].PID > sessions[j].PID
	})
}

// pruneStale drops appearance records for pids that are no longer streaming.
func (a *PulseAttributor) pruneStale() {
	for pid := range a.appeared {
		if !a.present[pid] {
			delete(a.appeared, pid)
		}
	}
}

// commName reads the process's short name from procfs.
func commName(pid int32) (string, bool) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return "", false
	}
	name := strings.TrimSpace(string(data))
	return name, name != ""
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// humanizeName turns process-style names like "pipewire-pulse" or "firefox"
// into display names.
func humanizeName(raw string) string {
	name := strings.TrimSpace(raw)
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return titleCaser.String(name)
}
