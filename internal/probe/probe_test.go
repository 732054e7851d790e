package probe

import (
	"context"
	"testing"
	"time"

	"stereowatch/internal/endpoint"
	"stereowatch/internal/logging"
	"stereowatch/internal/pulse"
)

type stubSinks struct {
	sinks []pulse.Sink
	err   error
}

func (s *stubSinks) ListSinks(context.Context) ([]pulse.Sink, error) {
	return s.sinks, s.err
}

func newTestProber(sinks sinkLister) *PulseProber {
	p := NewPulseProber(sinks, logging.NewNop())
	p.now = func() time.Time { return time.Unix(1700000000, 0) }
	return p
}

func budsEndpoint() endpoint.Endpoint {
	return endpoint.Endpoint{ID: "AA:BB:CC:DD:EE:FF", Name: "Buds Pro", Connected: true}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		channels int
		want     Candidate
	}{
		{0, CandidateUnknown},
		{1, CandidateHandsFree},
		{2, CandidateStereo},
		{3, CandidateUnknown},
		{6, CandidateUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.channels); got != tc.want {
			t.Errorf("Classify(%d) = %v, want %v", tc.channels, got, tc.want)
		}
	}
}

func TestSampleClassifiesStereoSink(t *testing.T) {
	sinks := &stubSinks{sinks: []pulse.Sink{{
		Name:       "bluez_output.AA_BB_CC_DD_EE_FF.1",
		ChannelMap: "front-left,front-right",
	}}}
	sample := newTestProber(sinks).Sample(context.Background(), budsEndpoint())

	if sample.Candidate != CandidateStereo {
		t.Fatalf("expected stereo, got %v", sample.Candidate)
	}
	if sample.Channels != 2 {
		t.Fatalf("expected 2 channels, got %d", sample.Channels)
	}
	if sample.Reason != "" {
		t.Fatalf("expected no failure reason, got %q", sample.Reason)
	}
}

func TestSampleClassifiesHandsFreeSink(t *testing.T) {
	sinks := &stubSinks{sinks: []pulse.Sink{{
		Name:       "bluez_output.AA_BB_CC_DD_EE_FF.1",
		ChannelMap: "mono",
	}}}
	sample := newTestProber(sinks).Sample(context.Background(), budsEndpoint())

	if sample.Candidate != CandidateHandsFree {
		t.Fatalf("expected hands-free, got %v", sample.Candidate)
	}
}

func TestSampleMissingSinkYieldsUnknown(t *testing.T) {
	sinks := &stubSinks{sinks: []pulse.Sink{{
		Name:       "alsa_output.pci-0000_00_1f.3.analog-stereo",
		ChannelMap: "front-left,front-right",
	}}}
	sample := newTestProber(sinks).Sample(context.Background(), budsEndpoint())

	if sample.Candidate != CandidateUnknown {
		t.Fatalf("expected unknown, got %v", sample.Candidate)
	}
	if sample.Reason != ReasonUnavailable {
		t.Fatalf("expected unavailable reason, got %q", sample.Reason)
	}
}

func TestSampleSurroundSinkCarriesFailureReason(t *testing.T) {
	sinks := &stubSinks{sinks: []pulse.Sink{{
		Name:       "bluez_output.AA_BB_CC_DD_EE_FF.1",
		ChannelMap: "front-left,front-right,front-center,lfe,rear-left,rear-right",
	}}}
	sample := newTestProber(sinks).Sample(context.Background(), budsEndpoint())

	if sample.Candidate != CandidateUnknown {
		t.Fatalf("expected unknown, got %v", sample.Candidate)
	}
	if sample.Channels != 6 {
		t.Fatalf("expected 6 channels, got %d", sample.Channels)
	}
	if sample.Reason != ReasonChannelCount {
		t.Fatalf("expected channel count reason, got %q", sample.Reason)
	}
}

func TestSampleTimeoutYieldsUnknown(t *testing.T) {
	sinks := &stubSinks{err: context.DeadlineExceeded}
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	sample := newTestProber(sinks).Sample(ctx, budsEndpoint())

	if sample.Candidate != CandidateUnknown {
		t.Fatalf("expected unknown, got %v", sample.Candidate)
	}
	if sample.Reason != ReasonTimeout {
		t.Fatalf("expected timeout reason, got %q", sample.Reason)
	}
}

func TestCandidateString(t *testing.T) {
	if CandidateStereo.String() != "stereo" {
		t.Fatal("unexpected stereo label")
	}
	if CandidateHandsFree.String() != "hands-free" {
		t.Fatal("unexpected hands-free label")
	}
	if CandidateUnknown.String() != "unknown" {
		t.Fatal("unexpected unknown label")
	}
}
