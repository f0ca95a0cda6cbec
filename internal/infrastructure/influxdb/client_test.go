package influxdb_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/usb-host-core/internal/infrastructure/config"
	"github.com/nerrad567/usb-host-core/internal/infrastructure/influxdb"
)

// devConfig matches the InfluxDB instance in docker-compose.yml.
func devConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "usbhost-dev-token",
		Org:           "usbhost",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectDev connects to the local dev instance, skipping the test when
// no server is reachable. The client is closed on cleanup.
func connectDev(t *testing.T, cfg config.InfluxDBConfig) *influxdb.Client {
	t.Helper()

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Skipf("InfluxDB not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	if !client.IsConnected() {
		t.Fatal("IsConnected() = false after Connect()")
	}
	return client
}

// errorRecorder captures asynchronous write errors race-safely.
type errorRecorder struct {
	mu  sync.Mutex
	err error
}

func (r *errorRecorder) record(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *errorRecorder) get() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func TestConnectDisabled(t *testing.T) {
	cfg := devConfig()
	cfg.Enabled = false

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrDisabled) {
		t.Fatalf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	cfg := devConfig()
	cfg.URL = "http://127.0.0.1:59999"

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Fatalf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectClampsBatchSettings(t *testing.T) {
	for _, tt := range []struct {
		name            string
		batch, interval int
	}{
		{"zero", 0, 0},
		{"negative", -5, -1},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := devConfig()
			cfg.BatchSize = tt.batch
			cfg.FlushInterval = tt.interval
			connectDev(t, cfg)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	client := connectDev(t, devConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	client := connectDev(t, devConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() with cancelled context should fail")
	}
}

func TestWriteDeviceEvent(t *testing.T) {
	client := connectDev(t, devConfig())

	var rec errorRecorder
	client.SetOnError(rec.record)

	client.WriteDeviceEvent("1d6b:0003", "arrived", "evt-0001", time.Now())
	client.Flush()
	time.Sleep(100 * time.Millisecond)

	if err := rec.get(); err != nil {
		t.Errorf("write error = %v", err)
	}
}

func TestWriteRegistryGauge(t *testing.T) {
	client := connectDev(t, devConfig())

	var rec errorRecorder
	client.SetOnError(rec.record)

	client.WriteRegistryGauge(3, map[string]int{"created": 2, "opened": 1})
	client.Flush()
	time.Sleep(100 * time.Millisecond)

	if err := rec.get(); err != nil {
		t.Errorf("write error = %v", err)
	}
}

func TestCloseFlushesAndDisconnects(t *testing.T) {
	cfg := devConfig()
	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Skipf("InfluxDB not reachable: %v", err)
	}

	client.WriteDeviceEvent("1d6b:0003", "removed", "evt-0002", time.Now())

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
