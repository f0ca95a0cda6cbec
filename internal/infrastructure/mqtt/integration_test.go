//go:build integration

package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/usb-host-core/internal/infrastructure/config"
)

// Broker-backed tests. They need a Mosquitto (or compatible) broker on
// 127.0.0.1:1883 with anonymous access:
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func brokerConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestIntegrationConnectAndHealthCheck(t *testing.T) {
	client, err := Connect(brokerConfig("usbhost-int-connect"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestIntegrationConnectRefused(t *testing.T) {
	cfg := brokerConfig("usbhost-int-refused")
	cfg.Broker.Port = 19999

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestIntegrationCloseReportsDisconnected(t *testing.T) {
	client, err := Connect(brokerConfig("usbhost-int-close"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// TestIntegrationEventRoundtrip publishes a hot-plug announcement and
// receives it on a second client subscribed to the per-device topic.
func TestIntegrationEventRoundtrip(t *testing.T) {
	pub, err := Connect(brokerConfig("usbhost-int-pub"))
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close()

	sub, err := Connect(brokerConfig("usbhost-int-sub"))
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close()

	topic := Topics{}.DeviceEvent("1d6b:0003")
	received := make(chan []byte, 1)
	err = sub.Subscribe(topic, 1, func(_ string, payload []byte) error {
		select {
		case received <- payload:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Let the broker register the subscription before publishing.
	time.Sleep(100 * time.Millisecond)

	want := `{"type":"arrived","identity":"1d6b:0003"}`
	if err := pub.Publish(topic, []byte(want), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case payload := <-received:
		if string(payload) != want {
			t.Errorf("received %q, want %q", payload, want)
		}
	case <-time.After(5 * time.Second):
		t.Error("timed out waiting for announcement")
	}
}

// TestIntegrationRetainedState verifies a subscriber joining after the
// publish still sees the retained presence marker.
func TestIntegrationRetainedState(t *testing.T) {
	pub, err := Connect(brokerConfig("usbhost-int-retain-pub"))
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close()

	topic := Topics{}.DeviceState("dead:beef")
	if err := pub.Publish(topic, []byte("present"), 1, true); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	// Late joiner.
	sub, err := Connect(brokerConfig("usbhost-int-retain-sub"))
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close()

	received := make(chan []byte, 1)
	err = sub.Subscribe(topic, 1, func(_ string, payload []byte) error {
		select {
		case received <- payload:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case payload := <-received:
		if string(payload) != "present" {
			t.Errorf("retained payload = %q, want %q", payload, "present")
		}
	case <-time.After(5 * time.Second):
		t.Error("timed out waiting for retained state")
	}

	// Clear the retained message for the next run.
	pub.Publish(topic, nil, 1, true)
}

// TestIntegrationShutdownCommand covers the daemon's one inbound path:
// a message on the shutdown topic reaching a subscribed handler.
func TestIntegrationShutdownCommand(t *testing.T) {
	daemon, err := Connect(brokerConfig("usbhost-int-daemon"))
	if err != nil {
		t.Fatalf("Connect() daemon error = %v", err)
	}
	defer daemon.Close()

	operator, err := Connect(brokerConfig("usbhost-int-operator"))
	if err != nil {
		t.Fatalf("Connect() operator error = %v", err)
	}
	defer operator.Close()

	triggered := make(chan struct{}, 1)
	err = daemon.Subscribe(Topics{}.SystemShutdown(), 1, func(string, []byte) error {
		select {
		case triggered <- struct{}{}:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := operator.Publish(Topics{}.SystemShutdown(), []byte("stop"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-triggered:
	case <-time.After(5 * time.Second):
		t.Error("timed out waiting for shutdown command")
	}
}
