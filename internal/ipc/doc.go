// Package ipc exposes daemon control and queries over JSON-RPC on a Unix
// domain socket. Connections are restricted to the daemon's own user via
// SO_PEERCRED.
package ipc
