// Package printer defines the domain model shared by the session, manager,
// and discovery packages: printer configuration, the normalized state
// snapshot derived from device reports, commands, and lifecycle events.
package printer
