package transport

import (
	"crypto/tls"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/spoolbuddy/bamlink-go/pkg/printer"
)

// MQTT constants for the vendor printer protocol.
const (
	// DefaultPort is the fixed MQTT-over-TLS port the printers listen on.
	DefaultPort = 8883

	// Username is the fixed client identity; the per-device access code is
	// the password.
	Username = "bblp"

	// ClientIDPrefix prefixes the printer serial to form the MQTT client id.
	ClientIDPrefix = "bamlink-"

	// DefaultKeepAlive is the MQTT keep-alive interval.
	DefaultKeepAlive = 30 * time.Second

	// QoS is the quality-of-service level used for subscribe and publish.
	QoS byte = 1
)

// ReportTopic returns the topic a printer publishes its reports on.
func ReportTopic(serial string) string {
	return fmt.Sprintf("device/%s/report", serial)
}

// RequestTopic returns the topic a printer accepts requests on.
func RequestTopic(serial string) string {
	return fmt.Sprintf("device/%s/request", serial)
}

// BrokerURL returns the broker URL for a printer address.
func BrokerURL(address string) string {
	return fmt.Sprintf("ssl://%s:%d", address, DefaultPort)
}

// NewPrinterTLSConfig returns the TLS configuration for printer links.
//
// Certificate verification is disabled on purpose: the printers are
// LAN-local devices with self-signed certificates, so there is no chain to
// validate. The link is encrypted but device identity is not authenticated
// via certificates. Do not "fix" this by enabling verification; it breaks
// connectivity to real devices. Pinning known device certificates is a
// possible future alternative.
func NewPrinterTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, //nolint:gosec // see doc comment
	}
}

// NewClientOptions builds paho client options for one printer session.
// Automatic reconnection is disabled: the session owns the reconnect loop so
// that lifecycle events are emitted at the right points.
func NewClientOptions(cfg printer.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(BrokerURL(cfg.Address))
	opts.SetClientID(ClientIDPrefix + cfg.Serial)
	opts.SetUsername(Username)
	opts.SetPassword(cfg.AccessCode)
	opts.SetTLSConfig(NewPrinterTLSConfig())
	opts.SetKeepAlive(DefaultKeepAlive)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	return opts
}
