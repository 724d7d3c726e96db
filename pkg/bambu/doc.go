// Package bambu implements the vendor MQTT message model: the report payloads
// a printer publishes on its report topic and the request payloads sent to its
// request topic.
//
// The protocol mixes several message families on a single channel and encodes
// a number of numeric fields as decimal or hexadecimal strings. This package
// captures those quirks as explicit (de)serialization contracts so the rest of
// the module only sees typed values.
package bambu
