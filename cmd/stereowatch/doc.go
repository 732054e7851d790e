// Command stereowatch is the control CLI for the stereowatch daemon. It
// talks to a running stereowatchd over its Unix socket and can also run the
// monitor in the foreground.
package main
