package probe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stereowatch/internal/endpoint"
	"stereowatch/internal/logging"
	"stereowatch/internal/pulse"
)

// sinkLister is the slice of the pulse client the prober needs.
type sinkLister interface {
	ListSinks(ctx context.Context) ([]pulse.Sink, error)
}

// PulseProber classifies endpoint mode from the channel layout of the
// endpoint's render sink.
type PulseProber struct {
	sinks  sinkLister
	logger *slog.Logger
	now    func() time.Time
}

// NewPulseProber builds a prober backed by the given pulse client.
func NewPulseProber(client sinkLister, logger *slog.Logger) *PulseProber {
	return &PulseProber{
		sinks:  client,
		logger: logging.NewComponentLogger(logger, "probe"),
		now:    time.Now,
	}
}

// Sample probes one endpoint. Timeouts, query failures, and missing sinks
// all yield an Unknown candidate with a reason.
func (p *PulseProber) Sample(ctx context.Context, ep endpoint.Endpoint) Sample {
	sample := Sample{EndpointID: ep.ID, At: p.now()}

	sinks, err := p.sinks.ListSinks(ctx)
	if err != nil {
		sample.Reason = ReasonTimeout
		if !errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			sample.Reason = err.Error()
		}
		p.logger.Debug("probe failed",
			logging.String(logging.FieldEndpoint, ep.ID),
			logging.String("reason", sample.Reason))
		return sample
	}

	for _, sink := range sinks {
		if !sink.MatchesAddress(ep.ID) {
			continue
		}
		sample.Channels = sink.Channels()
		sample.Candidate = Classify(sample.Channels)
		if sample.Candidate == CandidateUnknown {
			// A sink with a malformed layout counts as a failed probe so a
			// persistent streak of them gets reported.
			sample.Reason = ReasonChannelCount
		}
		return sample
	}

	sample.Reason = ReasonUnavailable
	return sample
}
