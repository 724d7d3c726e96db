package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/spoolbuddy/bamlink-go/pkg/bambu"
	"github.com/spoolbuddy/bamlink-go/pkg/events"
	"github.com/spoolbuddy/bamlink-go/pkg/plog"
	"github.com/spoolbuddy/bamlink-go/pkg/printer"
	"github.com/spoolbuddy/bamlink-go/pkg/transport"
)

// Timing and capacity constants of the session protocol behavior.
const (
	// ConnackAttempts bounds the connect-acknowledgement poll.
	ConnackAttempts = 30

	// ConnackInterval is the poll interval while waiting for the
	// acknowledgement.
	ConnackInterval = 1 * time.Second

	// ReconnectDelay is the flat delay between reconnect attempts. There is
	// deliberately no backoff growth and no attempt limit: LAN printers
	// power-cycle and reboot, and callers expect eventual reconnection.
	ReconnectDelay = 5 * time.Second

	// CommandQueueSize is the capacity of the per-session command queue.
	CommandQueueSize = 32

	// operationTimeout bounds subscribe and publish token waits.
	operationTimeout = 5 * time.Second

	// disconnectQuiesce is the paho disconnect quiesce time in milliseconds.
	disconnectQuiesce = 250
)

// errStopped signals that the stop channel was observed.
var errStopped = errors.New("session stopped")

// Client is the subset of the paho MQTT client a session uses. The concrete
// client is built by a ClientFactory so tests can substitute a fake and run
// the session logic without a broker.
type Client interface {
	Connect() mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// ClientFactory builds the MQTT client for one connection attempt.
// onLost is invoked once if the established connection is lost.
type ClientFactory func(cfg printer.Config, onLost func(error)) Client

// DefaultClientFactory builds a real paho client with the vendor transport
// settings.
func DefaultClientFactory(cfg printer.Config, onLost func(error)) Client {
	opts := transport.NewClientOptions(cfg)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		onLost(err)
	})
	return mqtt.NewClient(opts)
}

// Options configure a session beyond its printer config.
type Options struct {
	// Events receives the session's lifecycle and state events. Required.
	Events *events.Broadcaster[printer.Event]

	// ProtocolLog captures wire-level events. Optional.
	ProtocolLog plog.Logger

	// Log is the operational logger. Defaults to slog.Default().
	Log *slog.Logger

	// ClientFactory overrides the MQTT client construction. Defaults to
	// DefaultClientFactory. Tests inject fakes here.
	ClientFactory ClientFactory

	// ConnackAttempts, ConnackInterval, and ReconnectDelay override the
	// protocol timing. Zero values select the defaults. Tests shorten them.
	ConnackAttempts int
	ConnackInterval time.Duration
	ReconnectDelay  time.Duration
}

// Session is the live protocol session for one printer. Create it with New,
// run it with Run in its own goroutine, and end it with Stop.
type Session struct {
	config printer.Config

	bus      *events.Broadcaster[printer.Event]
	plogger  plog.Logger
	log      *slog.Logger
	factory  ClientFactory
	commands chan printer.Command

	connackAttempts int
	connackInterval time.Duration
	reconnectDelay  time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu     sync.RWMutex
	state  State
	connID string
}

// New creates a session for the given printer. The config must already be
// validated; sessions do not re-check it.
func New(cfg printer.Config, opts Options) *Session {
	s := &Session{
		config:          cfg,
		bus:             opts.Events,
		plogger:         opts.ProtocolLog,
		log:             opts.Log,
		factory:         opts.ClientFactory,
		commands:        make(chan printer.Command, CommandQueueSize),
		connackAttempts: opts.ConnackAttempts,
		connackInterval: opts.ConnackInterval,
		reconnectDelay:  opts.ReconnectDelay,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
		state:           StateConnecting,
	}
	if s.plogger == nil {
		s.plogger = plog.NoopLogger{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.factory == nil {
		s.factory = DefaultClientFactory
	}
	if s.connackAttempts <= 0 {
		s.connackAttempts = ConnackAttempts
	}
	if s.connackInterval <= 0 {
		s.connackInterval = ConnackInterval
	}
	if s.reconnectDelay <= 0 {
		s.reconnectDelay = ReconnectDelay
	}
	return s
}

// Serial returns the printer serial this session is bound to.
func (s *Session) Serial() string { return s.config.Serial }

// State returns the current session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Done is closed when Run has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stop requests the session to end. The signal is cooperative: it is
// observed at the next loop or timer boundary, including mid reconnect
// delay. Stop is safe to call multiple times and from any goroutine.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Enqueue places a command on the session's queue. It blocks only while the
// bounded queue is full, never on network I/O. Enqueue fails with
// ErrNotConnected once the session has stopped.
func (s *Session) Enqueue(cmd printer.Command) error {
	select {
	case <-s.done:
		return printer.ErrNotConnected
	default:
	}
	select {
	case s.commands <- cmd:
		return nil
	case <-s.done:
		return printer.ErrNotConnected
	}
}

// Run drives the session until Stop: connect, subscribe, steady state, and
// on any transport failure a flat-delay reconnect. Run blocks; callers start
// it in its own goroutine.
func (s *Session) Run() {
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			s.setState(StateStopped, "stop requested")
			return
		default:
		}

		wasActive, err := s.connectAndRun()
		stopped := errors.Is(err, errStopped)

		// A session that never reached the active state and was stopped
		// exits silently; every other way out of a connect attempt is a
		// disconnection the subscribers should hear about.
		if wasActive || !stopped {
			s.emit(printer.Event{Type: printer.EventDisconnected, Serial: s.config.Serial})
		}
		if stopped {
			s.setState(StateStopped, "stop requested")
			return
		}

		s.log.Warn("printer session failed, reconnecting",
			"serial", s.config.Serial, "delay", s.reconnectDelay, "error", err)
		s.setState(StateReconnecting, err.Error())

		select {
		case <-s.stop:
			s.setState(StateStopped, "stop requested")
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

// connectAndRun performs one full connection attempt. It returns whether the
// session reached the active state, and the error that ended the attempt
// (errStopped when Stop was observed).
func (s *Session) connectAndRun() (bool, error) {
	s.mu.Lock()
	s.connID = uuid.New().String()
	s.mu.Unlock()
	s.setState(StateConnecting, "")

	s.log.Info("connecting to printer",
		"serial", s.config.Serial, "address", s.config.Address, "port", transport.DefaultPort)

	lost := make(chan error, 1)
	client := s.factory(s.config, func(err error) {
		select {
		case lost <- err:
		default:
		}
	})
	defer client.Disconnect(disconnectQuiesce)

	// Poll for the connect acknowledgement at a fixed interval, a bounded
	// number of times.
	token := client.Connect()
	acked := false
	for attempt := 0; attempt < s.connackAttempts; attempt++ {
		if token.WaitTimeout(s.connackInterval) {
			if err := token.Error(); err != nil {
				return false, fmt.Errorf("connect: %w", err)
			}
			acked = true
			break
		}
		select {
		case <-s.stop:
			return false, errStopped
		default:
		}
	}
	if !acked {
		return false, errors.New("connect timeout: no acknowledgement received")
	}

	s.setState(StateSubscribing, "")

	reportTopic := transport.ReportTopic(s.config.Serial)
	sub := client.Subscribe(reportTopic, transport.QoS, s.handleMessage)
	if !sub.WaitTimeout(operationTimeout) {
		return false, fmt.Errorf("subscribe %s: timeout", reportTopic)
	}
	if err := sub.Error(); err != nil {
		return false, fmt.Errorf("subscribe %s: %w", reportTopic, err)
	}

	// Request a full state push immediately so the manager's cache is
	// populated without waiting for the next periodic report.
	if err := s.publish(client, printer.RequestFullState()); err != nil {
		return false, err
	}

	s.setState(StateActive, "")
	s.log.Info("printer connected", "serial", s.config.Serial)
	s.emit(printer.Event{Type: printer.EventConnected, Serial: s.config.Serial})

	for {
		select {
		case <-s.stop:
			return true, errStopped
		case err := <-lost:
			return true, fmt.Errorf("connection lost: %w", err)
		case cmd := <-s.commands:
			if err := s.publish(client, cmd); err != nil {
				// A failed publish is a protocol-level problem, not a
				// transport failure; the connection state is unchanged.
				s.log.Error("command publish failed",
					"serial", s.config.Serial, "command", cmd.Type, "error", err)
				s.emit(printer.Event{
					Type:    printer.EventError,
					Serial:  s.config.Serial,
					Message: fmt.Sprintf("command %s failed: %v", cmd.Type, err),
				})
				s.logError(err, "publish command")
			}
		}
	}
}

// handleMessage decodes one inbound report. Unrecognized message families
// are ignored; a recognized shape with an unparseable field is logged and
// discarded without affecting the connection.
func (s *Session) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	s.logMessage(plog.DirectionIn, msg.Topic(), "", payload)

	report, err := bambu.DecodeReport(payload)
	if err != nil {
		s.log.Debug("discarding malformed report", "serial", s.config.Serial, "error", err)
		s.logError(err, "decode report")
		return
	}
	if report == nil {
		return
	}

	switch {
	case report.Print != nil:
		s.emit(printer.Event{
			Type:   printer.EventStateUpdated,
			Serial: s.config.Serial,
			State:  report.Print.State(),
		})
	case report.Info != nil:
		s.log.Debug("info report",
			"serial", s.config.Serial,
			"command", report.Info.Command,
			"modules", len(report.Info.Modules))
	}
}

// publish translates a command into its wire request and publishes it.
func (s *Session) publish(client Client, cmd printer.Command) error {
	payload, err := bambu.EncodeCommand(cmd)
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Type, err)
	}

	topic := transport.RequestTopic(s.config.Serial)
	token := client.Publish(topic, transport.QoS, false, payload)
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	s.logMessage(plog.DirectionOut, topic, commandName(cmd), payload)
	return nil
}

func commandName(cmd printer.Command) string {
	switch cmd.Type {
	case printer.CommandRequestFullState:
		return bambu.CommandPushAll
	case printer.CommandRequestVersion:
		return bambu.CommandGetVersion
	case printer.CommandSetTraySlot:
		return bambu.CommandFilamentSetting
	default:
		return ""
	}
}

func (s *Session) emit(ev printer.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func (s *Session) setState(next State, reason string) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	connID := s.connID
	s.mu.Unlock()

	if prev == next {
		return
	}
	s.plogger.Log(plog.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Serial:       s.config.Serial,
		Direction:    plog.DirectionNone,
		Category:     plog.CategoryState,
		RemoteAddr:   s.config.Address,
		StateChange: &plog.StateChangeEvent{
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})
}

func (s *Session) logMessage(dir plog.Direction, topic, command string, payload []byte) {
	s.mu.RLock()
	connID := s.connID
	s.mu.RUnlock()

	captured, truncated := plog.CapturePayload(payload)
	s.plogger.Log(plog.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Serial:       s.config.Serial,
		Direction:    dir,
		Category:     plog.CategoryMessage,
		RemoteAddr:   s.config.Address,
		Message: &plog.MessageEvent{
			Topic:     topic,
			Command:   command,
			Size:      len(payload),
			Payload:   captured,
			Truncated: truncated,
		},
	})
}

func (s *Session) logError(err error, context string) {
	s.mu.RLock()
	connID := s.connID
	s.mu.RUnlock()

	s.plogger.Log(plog.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Serial:       s.config.Serial,
		Direction:    plog.DirectionNone,
		Category:     plog.CategoryError,
		RemoteAddr:   s.config.Address,
		Error: &plog.ErrorEventData{
			Message: err.Error(),
			Context: context,
		},
	})
}
