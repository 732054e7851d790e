// Package monitor runs the poll loop that ties endpoint discovery, mode
// probing, debouncing, and session attribution together. A single goroutine
// owns all tracker state; each tick drains pending endpoint changes first,
// then probes every connected endpoint. Confirmed transitions are published
// synchronously to subscribers, at most once per transition.
package monitor
