// Package sessions identifies which applications hold active audio streams
// on an endpoint, so a hands-free switch can be attributed to a likely
// culprit. Sessions are ranked by activity level, loudest first, with ties
// broken toward the stream seen most recently. Processes that cannot be
// resolved to a name are still reported.
package sessions
