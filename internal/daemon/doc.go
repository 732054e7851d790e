// Package daemon wires the monitor pipeline together and manages its
// lifecycle: the single-instance lock, the event persistence and
// notification worker, and the status surface the IPC layer exposes.
package daemon
