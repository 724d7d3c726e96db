// Package manager supervises one protocol session per connected printer.
// It is the single source of truth for connection status and last-known
// state, routes commands to sessions, and fans session events out to any
// number of subscribers.
package manager
