// Package events persists confirmed mode transitions to a local SQLite
// database so past switches can be inspected after the fact.
package events
