package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// These tests exercise the client without a broker. A zero-value Client
// reports itself disconnected, which is enough to cover validation and
// connection-state paths. End-to-end broker tests live behind the
// integration build tag.

// =============================================================================
// Validation Tests
// =============================================================================

func TestPublishValidation(t *testing.T) {
	client := &Client{}

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{
			name:    "empty topic",
			topic:   "",
			payload: []byte("x"),
			qos:     1,
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "qos out of range",
			topic:   Topics{}.Events(),
			payload: []byte("x"),
			qos:     3,
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "oversized payload",
			topic:   Topics{}.Events(),
			payload: make([]byte, maxPayloadSize+1),
			qos:     1,
			wantErr: ErrPublishFailed,
		},
		{
			name:    "not connected",
			topic:   Topics{}.DeviceEvent("1d6b:0003"),
			payload: []byte("x"),
			qos:     1,
			wantErr: ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	client := &Client{subscriptions: make(map[string]subscription)}
	handler := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{
			name:    "empty topic",
			topic:   "",
			qos:     1,
			handler: handler,
			wantErr: ErrInvalidTopic,
		},
		{
			name:    "qos out of range",
			topic:   Topics{}.SystemShutdown(),
			qos:     3,
			handler: handler,
			wantErr: ErrInvalidQoS,
		},
		{
			name:    "nil handler",
			topic:   Topics{}.SystemShutdown(),
			qos:     1,
			handler: nil,
			wantErr: ErrSubscribeFailed,
		},
		{
			name:    "not connected",
			topic:   Topics{}.SystemShutdown(),
			qos:     1,
			handler: handler,
			wantErr: ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Subscribe(tt.topic, tt.qos, tt.handler)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Failed subscribes must leave no tracked entries behind.
	if len(client.subscriptions) != 0 {
		t.Errorf("tracked %d subscriptions after failed subscribes, want 0", len(client.subscriptions))
	}
}

// =============================================================================
// Connection State Tests
// =============================================================================

func TestCloseUnconnected(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := &Client{}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	client := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.HealthCheck(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

// =============================================================================
// Handler Wrapping Tests
// =============================================================================

// stubMessage satisfies pahomqtt.Message for handler tests.
type stubMessage struct {
	topic   string
	payload []byte
}

func (m stubMessage) Duplicate() bool   { return false }
func (m stubMessage) Qos() byte         { return 1 }
func (m stubMessage) Retained() bool    { return false }
func (m stubMessage) Topic() string     { return m.topic }
func (m stubMessage) MessageID() uint16 { return 0 }
func (m stubMessage) Payload() []byte   { return m.payload }
func (m stubMessage) Ack()              {}

type capturingLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (l *capturingLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *capturingLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestWrapHandlerRecoversPanic(t *testing.T) {
	logger := &capturingLogger{}
	client := &Client{}
	client.SetLogger(logger)

	wrapped := client.wrapHandler(func(string, []byte) error {
		panic("handler blew up")
	})

	// Must not propagate the panic to the caller.
	wrapped(nil, stubMessage{topic: Topics{}.SystemShutdown()})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.errors) != 1 {
		t.Fatalf("logged %d errors, want 1", len(logger.errors))
	}
	if !strings.Contains(logger.errors[0], "panic") {
		t.Errorf("error log = %q, want mention of panic", logger.errors[0])
	}
}

func TestWrapHandlerLogsHandlerError(t *testing.T) {
	logger := &capturingLogger{}
	client := &Client{}
	client.SetLogger(logger)

	wrapped := client.wrapHandler(func(string, []byte) error {
		return errors.New("bad payload")
	})

	wrapped(nil, stubMessage{topic: Topics{}.SystemShutdown(), payload: []byte("x")})

	logger.mu.Lock()
	defer logger.mu.Unlock()
	if len(logger.warns) != 1 {
		t.Fatalf("logged %d warnings, want 1", len(logger.warns))
	}
}

func TestWrapHandlerPassesTopicAndPayload(t *testing.T) {
	client := &Client{}

	var gotTopic string
	var gotPayload []byte
	wrapped := client.wrapHandler(func(topic string, payload []byte) error {
		gotTopic = topic
		gotPayload = payload
		return nil
	})

	wrapped(nil, stubMessage{topic: "usbhost/system/shutdown", payload: []byte("now")})

	if gotTopic != "usbhost/system/shutdown" {
		t.Errorf("handler topic = %q", gotTopic)
	}
	if string(gotPayload) != "now" {
		t.Errorf("handler payload = %q", gotPayload)
	}
}

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "DeviceEvent",
			builder: func() string {
				return Topics{}.DeviceEvent("1d6b:0003")
			},
			expected: "usbhost/device/1d6b:0003/event",
		},
		{
			name: "DeviceState",
			builder: func() string {
				return Topics{}.DeviceState("1d6b:0003")
			},
			expected: "usbhost/device/1d6b:0003/state",
		},
		{
			name: "Events",
			builder: func() string {
				return Topics{}.Events()
			},
			expected: "usbhost/events",
		},
		{
			name: "SystemStatus",
			builder: func() string {
				return Topics{}.SystemStatus()
			},
			expected: "usbhost/system/status",
		},
		{
			name: "SystemShutdown",
			builder: func() string {
				return Topics{}.SystemShutdown()
			},
			expected: "usbhost/system/shutdown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

// =============================================================================
// Payload Tests
// =============================================================================

func TestStatusPayloads(t *testing.T) {
	online := onlinePayload("usbhost-core")
	if !strings.Contains(online, `"status":"online"`) {
		t.Errorf("online payload = %s", online)
	}
	if !strings.Contains(online, `"client_id":"usbhost-core"`) {
		t.Errorf("online payload = %s", online)
	}

	offline := offlinePayload("usbhost-core")
	if !strings.Contains(offline, `"status":"offline"`) {
		t.Errorf("offline payload = %s", offline)
	}
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload = %s", offline)
	}
}
