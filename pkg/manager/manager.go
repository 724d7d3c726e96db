package manager

import (
	"log/slog"
	"sync"
	"time"

	"github.com/spoolbuddy/bamlink-go/pkg/events"
	"github.com/spoolbuddy/bamlink-go/pkg/plog"
	"github.com/spoolbuddy/bamlink-go/pkg/printer"
	"github.com/spoolbuddy/bamlink-go/pkg/session"
)

// EventBuffer is the per-subscriber buffer of the event broadcast. The
// manager's own cache consumer shares the same fan-out, so the buffer is
// sized generously.
const EventBuffer = 64

// Options configure a Manager.
type Options struct {
	// ProtocolLog captures wire-level events from every session. Optional.
	ProtocolLog plog.Logger

	// Log is the operational logger. Defaults to slog.Default().
	Log *slog.Logger

	// ClientFactory overrides MQTT client construction for every session.
	// Tests inject fakes here.
	ClientFactory session.ClientFactory

	// ConnackAttempts, ConnackInterval, and ReconnectDelay override the
	// session timing. Zero values select the protocol defaults.
	ConnackAttempts int
	ConnackInterval time.Duration
	ReconnectDelay  time.Duration
}

// record is one entry of the connection cache.
type record struct {
	connected bool
	state     *printer.State
}

// Manager supervises printer sessions. The registry and cache are guarded by
// a read/write lock; query calls take the read side and never touch the
// network. Cache writes happen only on the event-consumption path and in
// Connect/Disconnect.
type Manager struct {
	opts Options
	log  *slog.Logger

	bus *events.Broadcaster[printer.Event]

	mu       sync.RWMutex
	sessions map[string]*session.Session
	records  map[string]*record
	closed   bool

	consumeDone chan struct{}
	cancelOwn   func()
}

// New creates a Manager and starts its event consumer.
func New(opts Options) *Manager {
	m := &Manager{
		opts:        opts,
		log:         opts.Log,
		bus:         events.NewBroadcasterWithBuffer[printer.Event](EventBuffer),
		sessions:    make(map[string]*session.Session),
		records:     make(map[string]*record),
		consumeDone: make(chan struct{}),
	}
	if m.log == nil {
		m.log = slog.Default()
	}

	ch, cancel := m.bus.Subscribe()
	m.cancelOwn = cancel
	go m.consumeEvents(ch)

	return m
}

// Subscribe returns an independent stream of session events. Delivery is
// best-effort: a subscriber that falls behind loses events rather than
// blocking a session, and there is no replay of missed events.
func (m *Manager) Subscribe() (<-chan printer.Event, func()) {
	return m.bus.Subscribe()
}

// Connect starts a session for the given printer. It returns
// ErrAlreadyConnected if a session for the serial is live, a validation
// error if the config is incomplete, and otherwise returns immediately
// without waiting for the session to reach its active state.
func (m *Manager) Connect(cfg printer.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return printer.ErrNotConnected
	}
	if _, ok := m.sessions[cfg.Serial]; ok {
		return printer.ErrAlreadyConnected
	}

	sess := session.New(cfg, session.Options{
		Events:          m.bus,
		ProtocolLog:     m.opts.ProtocolLog,
		Log:             m.log,
		ClientFactory:   m.opts.ClientFactory,
		ConnackAttempts: m.opts.ConnackAttempts,
		ConnackInterval: m.opts.ConnackInterval,
		ReconnectDelay:  m.opts.ReconnectDelay,
	})
	m.sessions[cfg.Serial] = sess
	m.records[cfg.Serial] = &record{}

	m.log.Info("starting printer session", "serial", cfg.Serial, "address", cfg.Address)
	go sess.Run()

	return nil
}

// Disconnect stops the session for the serial and clears its cache entry.
// Disconnecting an unknown serial is a no-op success.
func (m *Manager) Disconnect(serial string) error {
	m.mu.Lock()
	sess, ok := m.sessions[serial]
	delete(m.sessions, serial)
	delete(m.records, serial)
	m.mu.Unlock()

	if ok {
		m.log.Info("stopping printer session", "serial", serial)
		sess.Stop()
	}
	return nil
}

// SendCommand enqueues a command to the serial's session. It fails with
// ErrNotConnected when no session is live, and blocks only while the
// session's bounded queue is full, never on network I/O. It does not wait
// for the printer to acknowledge the command.
func (m *Manager) SendCommand(serial string, cmd printer.Command) error {
	m.mu.RLock()
	sess, ok := m.sessions[serial]
	m.mu.RUnlock()

	if !ok {
		return printer.ErrNotConnected
	}
	return sess.Enqueue(cmd)
}

// IsConnected reports whether the serial's session has reached its active
// state. Pure cache read.
func (m *Manager) IsConnected(serial string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[serial]
	return ok && rec.connected
}

// ConnectionStatuses returns the connected flag for every registered serial.
// Pure cache read.
func (m *Manager) ConnectionStatuses() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make(map[string]bool, len(m.records))
	for serial, rec := range m.records {
		statuses[serial] = rec.connected
	}
	return statuses
}

// GetState returns a copy of the last known state for the serial, or false
// when none is cached. Pure cache read.
func (m *Manager) GetState(serial string) (*printer.State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[serial]
	if !ok || rec.state == nil {
		return nil, false
	}
	return rec.state.Clone(), true
}

// Records returns the full connection record table, state included.
func (m *Manager) Records() []printer.ConnectionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]printer.ConnectionRecord, 0, len(m.records))
	for serial, rec := range m.records {
		out = append(out, printer.ConnectionRecord{
			Serial:    serial,
			Connected: rec.connected,
			State:     rec.state.Clone(),
		})
	}
	return out
}

// Close stops every session and shuts down event delivery.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := make([]*session.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.sessions = make(map[string]*session.Session)
	m.records = make(map[string]*record)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.Stop()
	}
	for _, sess := range sessions {
		<-sess.Done()
	}

	m.cancelOwn()
	<-m.consumeDone
	m.bus.Close()
}

// consumeEvents is the only writer of the connection cache. Events for
// serials that were disconnected in the meantime are dropped instead of
// resurrecting their records.
func (m *Manager) consumeEvents(ch <-chan printer.Event) {
	defer close(m.consumeDone)

	for ev := range ch {
		switch ev.Type {
		case printer.EventConnected:
			m.setConnected(ev.Serial, true)
		case printer.EventDisconnected:
			m.setConnected(ev.Serial, false)
		case printer.EventStateUpdated:
			m.setState(ev.Serial, ev.State)
		case printer.EventError:
			// Recoverable protocol-level problem; connection status is
			// unaffected.
			m.log.Warn("printer error", "serial", ev.Serial, "message", ev.Message)
		}
	}
}

func (m *Manager) setConnected(serial string, connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[serial]; ok {
		rec.connected = connected
	}
}

func (m *Manager) setState(serial string, state *printer.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[serial]; ok {
		rec.state = state
	}
}
