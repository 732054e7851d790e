// Package tracker debounces raw probe samples into confirmed mode state for
// a single endpoint. A candidate mode must be observed in consecutive samples
// before it is committed; a lone flapping sample never produces a transition.
// Device removal bypasses debouncing and moves the tracker to NoDevice
// immediately.
package tracker
