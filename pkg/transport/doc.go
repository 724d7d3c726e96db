// Package transport builds the MQTT-over-TLS client configuration for
// printer links: broker addressing, topic names, credentials, and the TLS
// settings appropriate for LAN printers with self-signed certificates.
package transport
