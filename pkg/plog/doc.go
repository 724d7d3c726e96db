// Package plog captures protocol-level events from printer sessions: decoded
// messages, connection state changes, and errors.
//
// Applications choose where events go by supplying a Logger: SlogAdapter for
// console output during development, FileLogger for compact CBOR capture
// files, MultiLogger to combine sinks, or NoopLogger to disable capture.
// Reader streams captured files back for inspection.
package plog
