package probe

import (
	"context"
	"time"

	"stereowatch/internal/endpoint"
)

// Candidate is the raw mode classification of a single probe.
type Candidate int

const (
	CandidateUnknown Candidate = iota
	CandidateStereo
	CandidateHandsFree
)

// String implements fmt.Stringer.
func (c Candidate) String() string {
	switch c {
	case CandidateStereo:
		return "stereo"
	case CandidateHandsFree:
		return "hands-free"
	default:
		return "unknown"
	}
}

// Failure reasons recorded on Unknown samples.
const (
	ReasonTimeout      = "probe timed out"
	ReasonUnavailable  = "device has no render sink"
	ReasonChannelCount = "unexpected channel count"
)

// Sample is one observation of an endpoint's audio mode.
type Sample struct {
	EndpointID string
	At         time.Time
	Channels   int
	Candidate  Candidate
	// Reason explains an Unknown candidate caused by a probe failure.
	// It is empty for successful probes.
	Reason string
}

// Classify maps a channel count to a mode candidate. Exactly one channel is
// hands-free, exactly two is stereo, anything else is unknown.
func Classify(channels int) Candidate {
	switch channels {
	case 1:
		return CandidateHandsFree
	case 2:
		return CandidateStereo
	default:
		return CandidateUnknown
	}
}

// Prober samples the current mode of one endpoint. Implementations must
// honor ctx cancellation and must never block past it; all failure modes are
// reported inside the returned Sample rather than as errors.
type Prober interface {
	Sample(ctx context.Context, ep endpoint.Endpoint) Sample
}
