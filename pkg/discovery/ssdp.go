package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spoolbuddy/bamlink-go/pkg/events"
	"github.com/spoolbuddy/bamlink-go/pkg/plog"
)

const (
	// MulticastGroup is the standard SSDP multicast address.
	MulticastGroup = "239.255.255.250"

	// deviceURN marks an announcement as coming from a printer. Packets
	// whose NT header does not contain it are ignored.
	deviceURN = "urn:bambulab-com:device:3dprinter"

	readDeadline = 500 * time.Millisecond
	loopInterval = 100 * time.Millisecond

	maxPacketSize = 4096
)

// Ports lists the UDP ports printers announce on. Older firmware uses 1990,
// newer firmware 2021; both are watched.
var Ports = []int{1990, 2021}

// Options configures a discovery Service. All fields are optional.
type Options struct {
	// Log receives operational messages. Defaults to slog.Default().
	Log *slog.Logger

	// ProtocolLog captures discovered devices alongside connection
	// traffic. Defaults to the no-op logger.
	ProtocolLog plog.Logger
}

// Service is a passive SSDP listener. Create one with NewService, call
// Start to begin listening and Subscribe to receive devices. The service
// deduplicates nothing: every valid announcement is delivered, and callers
// that want a stable device set keep their own map keyed by serial.
type Service struct {
	log  *slog.Logger
	plog plog.Logger

	bus     *events.Broadcaster[Device]
	running atomic.Bool

	mu    sync.Mutex
	conns []*net.UDPConn
	wg    sync.WaitGroup
}

// NewService returns a stopped discovery service.
func NewService(opts Options) *Service {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	pl := opts.ProtocolLog
	if pl == nil {
		pl = plog.NoopLogger{}
	}
	return &Service{
		log:  log,
		plog: pl,
		bus:  events.NewBroadcaster[Device](),
	}
}

// Subscribe registers a consumer of discovered devices. The returned cancel
// function releases the subscription.
func (s *Service) Subscribe() (<-chan Device, func()) {
	return s.bus.Subscribe()
}

// Start joins the multicast group on each announcement port and begins
// parsing packets. Calling Start on a running service is a no-op. An error
// is returned only when no port could be bound at all; a partial bind is
// logged and tolerated.
func (s *Service) Start() error {
	if s.running.Swap(true) {
		return nil
	}

	group := net.ParseIP(MulticastGroup)
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, port := range Ports {
		addr := &net.UDPAddr{IP: group, Port: port}
		conn, err := net.ListenMulticastUDP("udp4", nil, addr)
		if err != nil {
			s.log.Warn("discovery: bind failed", "port", port, "error", err)
			continue
		}
		s.conns = append(s.conns, conn)
		s.wg.Add(1)
		go s.listen(conn, port)
	}

	if len(s.conns) == 0 {
		s.running.Store(false)
		return fmt.Errorf("discovery: no announcement port could be bound")
	}
	s.log.Info("discovery: listening", "group", MulticastGroup, "ports", len(s.conns))
	return nil
}

// Stop halts listening and closes all sockets. It blocks until the listener
// goroutines have exited. Stopping a stopped service is a no-op.
func (s *Service) Stop() {
	if !s.running.Swap(false) {
		return
	}
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
	s.wg.Wait()
}

// Close stops the service and tears down the subscriber channels.
func (s *Service) Close() {
	s.Stop()
	s.bus.Close()
}

func (s *Service) listen(conn *net.UDPConn, port int) {
	defer s.wg.Done()

	buf := make([]byte, maxPacketSize)
	for s.running.Load() {
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				time.Sleep(loopInterval)
				continue
			}
			if !s.running.Load() {
				return
			}
			s.log.Debug("discovery: read failed", "port", port, "error", err)
			time.Sleep(loopInterval)
			continue
		}

		dev, ok := ParseAnnouncement(string(buf[:n]))
		if !ok {
			continue
		}
		s.logDiscovered(dev)
		s.bus.Publish(dev)
	}
}

// ParseAnnouncement extracts a Device from a raw SSDP NOTIFY packet. The
// second return value is false when the packet is not a printer
// announcement, lacks a serial number, or carries no parseable Location
// address.
func ParseAnnouncement(packet string) (Device, bool) {
	var (
		nt       string
		location string
		usn      string
		custom   = map[string]string{}
	)

	for _, line := range strings.Split(packet, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "NOTIFY") {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], strings.TrimSpace(parts[1])
		switch key {
		case "NT:":
			nt = value
		case "Location:":
			location = value
		case "USN:":
			usn = value
		case "HOST:", "Server:":
			// Uninteresting standard headers.
		default:
			custom[key] = value
		}
	}

	if !strings.Contains(nt, deviceURN) {
		return Device{}, false
	}
	if usn == "" {
		return Device{}, false
	}
	if net.ParseIP(location) == nil {
		return Device{}, false
	}

	code := customHeader(custom, "DevModel.bambu.com")
	dev := Device{
		Serial:    usn,
		Name:      customHeader(custom, "DevName.bambu.com"),
		Address:   location,
		Model:     ModelName(code),
		ModelCode: code,
	}
	return dev, true
}

// customHeader looks a vendor header up both with and without the trailing
// colon; firmware versions differ on which form they emit.
func customHeader(headers map[string]string, name string) string {
	if v, ok := headers[name+":"]; ok {
		return v
	}
	return headers[name]
}

func (s *Service) logDiscovered(dev Device) {
	s.log.Debug("discovery: printer announced",
		"serial", dev.Serial, "name", dev.Name, "address", dev.Address, "model", dev.Model)
	s.plog.Log(plog.Event{
		Timestamp:  time.Now(),
		Serial:     dev.Serial,
		Direction:  plog.DirectionIn,
		Category:   plog.CategoryDiscovery,
		RemoteAddr: dev.Address,
	})
}
