// Package discovery passively locates printers on the local broadcast
// domain. Printers periodically announce themselves with SSDP-style NOTIFY
// packets on a fixed multicast group; the service joins the group, parses
// the announcements, and broadcasts discovered devices to subscribers. It
// never sends a packet and never mutates a device.
package discovery
