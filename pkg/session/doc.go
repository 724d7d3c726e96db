// Package session implements the protocol session for one printer: the
// MQTT-over-TLS connect/subscribe handshake, decoding of inbound reports
// into normalized state snapshots, translation of commands into wire
// requests, and the flat-delay reconnect loop that keeps the link alive
// until an explicit stop.
package session
