package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/spoolbuddy/bamlink-go/pkg/bambu"
	"github.com/spoolbuddy/bamlink-go/pkg/events"
	"github.com/spoolbuddy/bamlink-go/pkg/printer"
)

// fakeToken is a completed mqtt.Token carrying an optional error.
type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	done := make(chan struct{})
	close(done)
	return &fakeToken{err: err, done: done}
}

// pendingToken never completes; WaitTimeout always times out.
func pendingToken() *fakeToken {
	return &fakeToken{done: make(chan struct{})}
}

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

// fakeClient satisfies the session Client interface without a broker.
type fakeClient struct {
	mu sync.Mutex

	connectErr  error
	connectHang bool

	subscribed []string
	handler    mqtt.MessageHandler
	published  [][]byte
	topics     []string

	onLost func(error)
}

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectHang {
		return pendingToken()
	}
	return newFakeToken(c.connectErr)
}

func (c *fakeClient) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = append(c.subscribed, topic)
	c.handler = callback
	return newFakeToken(nil)
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	c.published = append(c.published, append([]byte(nil), payload.([]byte)...))
	return newFakeToken(nil)
}

func (c *fakeClient) Disconnect(uint) {}

func (c *fakeClient) publishedPayloads() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.published))
	copy(out, c.published)
	return out
}

// deliver feeds an inbound message through the subscribed handler.
func (c *fakeClient) deliver(topic string, payload []byte) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler != nil {
		handler(nil, &fakeMessage{topic: topic, payload: payload})
	}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func testConfig() printer.Config {
	return printer.Config{
		Serial:     "01S00C123400001",
		Address:    "192.168.1.50",
		AccessCode: "12345678",
	}
}

// newTestSession wires a session to a fake client with short timings.
func newTestSession(t *testing.T, factory ClientFactory) (*Session, *events.Broadcaster[printer.Event], <-chan printer.Event) {
	t.Helper()
	bus := events.NewBroadcaster[printer.Event]()
	t.Cleanup(bus.Close)
	ch, cancel := bus.Subscribe()
	t.Cleanup(cancel)

	sess := New(testConfig(), Options{
		Events:          bus,
		ClientFactory:   factory,
		ConnackAttempts: 3,
		ConnackInterval: 10 * time.Millisecond,
		ReconnectDelay:  20 * time.Millisecond,
	})
	return sess, bus, ch
}

func waitEvent(t *testing.T, ch <-chan printer.Event, want printer.EventType) printer.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for event %v", want)
		}
	}
}

func TestSessionReachesActive(t *testing.T) {
	client := &fakeClient{}
	sess, _, eventCh := newTestSession(t, func(cfg printer.Config, onLost func(error)) Client {
		client.onLost = onLost
		return client
	})

	go sess.Run()
	defer func() { sess.Stop(); <-sess.Done() }()

	waitEvent(t, eventCh, printer.EventConnected)

	if got := sess.State(); got != StateActive {
		t.Errorf("State: got %v, want %v", got, StateActive)
	}

	client.mu.Lock()
	subscribed := append([]string(nil), client.subscribed...)
	client.mu.Unlock()
	if len(subscribed) != 1 || subscribed[0] != "device/01S00C123400001/report" {
		t.Errorf("subscriptions: got %v", subscribed)
	}

	// The first publish is the immediate full-state request.
	payloads := client.publishedPayloads()
	if len(payloads) == 0 {
		t.Fatal("no publish recorded")
	}
	cmd, err := bambu.DecodeCommand(payloads[0])
	if err != nil {
		t.Fatalf("DecodeCommand failed: %v", err)
	}
	if cmd.Type != printer.CommandRequestFullState {
		t.Errorf("first publish: got %v, want %v", cmd.Type, printer.CommandRequestFullState)
	}
}

func TestSessionStopBeforeConnectedEmitsNothing(t *testing.T) {
	client := &fakeClient{connectHang: true}
	sess, _, eventCh := newTestSession(t, func(printer.Config, func(error)) Client {
		return client
	})

	go sess.Run()
	time.Sleep(15 * time.Millisecond)
	sess.Stop()

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}

	select {
	case ev := <-eventCh:
		t.Errorf("unexpected event %v before ever connecting", ev.Type)
	default:
	}
}

func TestSessionStopFromActiveEmitsDisconnected(t *testing.T) {
	client := &fakeClient{}
	sess, _, eventCh := newTestSession(t, func(printer.Config, func(error)) Client {
		return client
	})

	go sess.Run()
	waitEvent(t, eventCh, printer.EventConnected)

	sess.Stop()
	waitEvent(t, eventCh, printer.EventDisconnected)

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
	if got := sess.State(); got != StateStopped {
		t.Errorf("State: got %v, want %v", got, StateStopped)
	}
}

func TestSessionReconnectsAfterConnectionLost(t *testing.T) {
	var mu sync.Mutex
	var clients []*fakeClient

	sess, _, eventCh := newTestSession(t, func(_ printer.Config, onLost func(error)) Client {
		client := &fakeClient{onLost: onLost}
		mu.Lock()
		clients = append(clients, client)
		mu.Unlock()
		return client
	})

	go sess.Run()
	defer func() { sess.Stop(); <-sess.Done() }()

	waitEvent(t, eventCh, printer.EventConnected)

	mu.Lock()
	first := clients[0]
	mu.Unlock()
	first.onLost(errors.New("broker went away"))

	waitEvent(t, eventCh, printer.EventDisconnected)
	waitEvent(t, eventCh, printer.EventConnected)

	mu.Lock()
	attemptCount := len(clients)
	mu.Unlock()
	if attemptCount < 2 {
		t.Errorf("connection attempts: got %d, want at least 2", attemptCount)
	}
}

func TestSessionEmitsStateUpdates(t *testing.T) {
	client := &fakeClient{}
	sess, _, eventCh := newTestSession(t, func(printer.Config, func(error)) Client {
		return client
	})

	go sess.Run()
	defer func() { sess.Stop(); <-sess.Done() }()

	waitEvent(t, eventCh, printer.EventConnected)

	client.deliver("device/01S00C123400001/report",
		[]byte(`{"print":{"gcode_state":"RUNNING","layer_num":10,"total_layer_num":120}}`))

	ev := waitEvent(t, eventCh, printer.EventStateUpdated)
	if ev.State == nil {
		t.Fatal("state event without state")
	}
	if ev.State.Phase != printer.PhaseRunning {
		t.Errorf("Phase: got %v, want %v", ev.State.Phase, printer.PhaseRunning)
	}
	if ev.State.LayerNum == nil || *ev.State.LayerNum != 10 {
		t.Errorf("LayerNum: got %v, want 10", ev.State.LayerNum)
	}
}

func TestSessionIgnoresMalformedReports(t *testing.T) {
	client := &fakeClient{}
	sess, _, eventCh := newTestSession(t, func(printer.Config, func(error)) Client {
		return client
	})

	go sess.Run()
	defer func() { sess.Stop(); <-sess.Done() }()

	waitEvent(t, eventCh, printer.EventConnected)

	// Neither foreign shapes nor malformed payloads may end the session.
	client.deliver("device/01S00C123400001/report", []byte(`{"system":{"command":"x"}}`))
	client.deliver("device/01S00C123400001/report", []byte(`not json`))
	client.deliver("device/01S00C123400001/report", []byte(`{"print":{"layer_num":"bad"}}`))
	client.deliver("device/01S00C123400001/report",
		[]byte(`{"print":{"gcode_state":"IDLE"}}`))

	ev := waitEvent(t, eventCh, printer.EventStateUpdated)
	if ev.State.Phase != printer.PhaseIdle {
		t.Errorf("Phase: got %v, want %v", ev.State.Phase, printer.PhaseIdle)
	}
	if got := sess.State(); got != StateActive {
		t.Errorf("State after malformed reports: got %v, want %v", got, StateActive)
	}
}

func TestSessionPublishesEnqueuedCommands(t *testing.T) {
	client := &fakeClient{}
	sess, _, eventCh := newTestSession(t, func(printer.Config, func(error)) Client {
		return client
	})

	go sess.Run()
	defer func() { sess.Stop(); <-sess.Done() }()

	waitEvent(t, eventCh, printer.EventConnected)

	if err := sess.Enqueue(printer.RequestVersion()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		payloads := client.publishedPayloads()
		if len(payloads) >= 2 {
			var req bambu.GetVersionRequest
			if err := json.Unmarshal(payloads[1], &req); err != nil {
				t.Fatalf("unmarshal published payload: %v", err)
			}
			if req.Info.Command != bambu.CommandGetVersion {
				t.Errorf("published command: got %q, want %q", req.Info.Command, bambu.CommandGetVersion)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for command publish")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestSessionEnqueueAfterStop(t *testing.T) {
	client := &fakeClient{}
	sess, _, eventCh := newTestSession(t, func(printer.Config, func(error)) Client {
		return client
	})

	go sess.Run()
	waitEvent(t, eventCh, printer.EventConnected)

	sess.Stop()
	<-sess.Done()

	if err := sess.Enqueue(printer.RequestFullState()); !errors.Is(err, printer.ErrNotConnected) {
		t.Errorf("Enqueue after stop: got %v, want ErrNotConnected", err)
	}
}

func TestSessionConnectErrorRetries(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	sess, _, eventCh := newTestSession(t, func(printer.Config, func(error)) Client {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			return &fakeClient{connectErr: errors.New("connection refused")}
		}
		return &fakeClient{}
	})

	go sess.Run()
	defer func() { sess.Stop(); <-sess.Done() }()

	// The failed attempt surfaces as a disconnection, then the flat-delay
	// retry succeeds.
	waitEvent(t, eventCh, printer.EventDisconnected)
	waitEvent(t, eventCh, printer.EventConnected)
}
