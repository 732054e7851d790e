// Package pulse is a thin client for the PulseAudio/PipeWire command surface.
//
// It shells out to pactl with JSON output and exposes the two queries the
// monitor needs: render sinks (for channel-count probing) and sink inputs
// (for session attribution). Callers bound every query with a context; the
// client performs exactly one OS invocation per call and never retries.
package pulse
