// Package probe determines the current audio mode of a Bluetooth endpoint by
// inspecting its render sink's channel layout. A single channel means the
// device is in the hands-free telephony profile; two channels mean full
// stereo playback. Probe failures never surface as errors; they fold into an
// Unknown sample with a reason so the scheduler can debounce them like any
// other observation.
package probe
