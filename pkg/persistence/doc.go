// Package persistence stores the known-printer registry as a JSON file.
// The registry remembers which printers have been configured or discovered
// so they can be reconnected after a restart.
package persistence
