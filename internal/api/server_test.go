package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/usb-host-core/internal/infrastructure/config"
	"github.com/nerrad567/usb-host-core/internal/infrastructure/logging"
	"github.com/nerrad567/usb-host-core/internal/usb"
)

// apiRef is the scripted device reference used by the test layer.
type apiRef struct {
	vendor  uint16
	product uint16
}

// apiLayer is a minimal scripted device layer for API tests. Notifications
// are never supported so hosts built on it start empty; tests attach
// devices by calling Host.DeviceArrived directly.
type apiLayer struct {
	mu           sync.Mutex
	openErr      error
	resetErr     error
	clearErr     error
	setConfigErr error
	claimErr     error
	setConfigs   []int
}

func (l *apiLayer) Identity(ref usb.DeviceRef) (usb.Identity, error) {
	r, ok := ref.(apiRef)
	if !ok {
		return usb.Identity{}, usb.ErrIdentityUnavailable
	}
	return usb.Identity{Vendor: r.vendor, Product: r.product}, nil
}

func (l *apiLayer) Open(ref usb.DeviceRef) (usb.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.openErr != nil {
		return nil, l.openErr
	}
	return ref, nil
}

func (l *apiLayer) Close(usb.Handle) {}

func (l *apiLayer) SetConfiguration(_ usb.Handle, config int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.setConfigErr != nil {
		return l.setConfigErr
	}
	l.setConfigs = append(l.setConfigs, config)
	return nil
}

func (l *apiLayer) configurations() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.setConfigs...)
}

func (l *apiLayer) ClaimInterface(usb.Handle, int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.claimErr
}

func (l *apiLayer) ReleaseInterface(usb.Handle, int) {}

func (l *apiLayer) ResetPort(usb.Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resetErr
}

func (l *apiLayer) ClearHalt(usb.Handle, int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clearErr
}

func (l *apiLayer) Enumerate() ([]usb.DeviceRef, error) { return nil, nil }

func (l *apiLayer) Subscribe(usb.Events) error { return usb.ErrNotificationsUnsupported }

func (l *apiLayer) Unsubscribe() {}

// testServer creates a Server backed by a host with a scripted device layer.
func testServer(t *testing.T) (*Server, *usb.Host, *apiLayer) {
	t.Helper()

	layer := &apiLayer{}
	host, err := usb.New(layer)
	if err != nil {
		t.Fatalf("usb.New: %v", err)
	}
	t.Cleanup(host.Close)

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		USB:     config.USBConfig{DefaultConfiguration: 1},
		Logger:  log,
		Host:    host,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv, host, layer
}

// attach registers a device with the host through the arrival path.
func attach(t *testing.T, host *usb.Host, vendor, product uint16) {
	t.Helper()
	host.DeviceArrived(apiRef{vendor: vendor, product: product})
	if host.GetDevice(vendor, product) == nil {
		t.Fatalf("device %04x:%04x not registered after arrival", vendor, product)
	}
}

// doRequest runs one request through the full router and decodes the body.
func doRequest(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	reader := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	srv.buildRouter().ServeHTTP(reader, req)

	resp := map[string]any{}
	if len(reader.Body.Bytes()) > 0 {
		if err := json.Unmarshal(reader.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response %q: %v", reader.Body.String(), err)
		}
	}
	return reader, resp
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)

	w, resp := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestHealth_ContentType(t *testing.T) {
	srv, _, _ := testServer(t)

	w, _ := doRequest(t, srv, http.MethodGet, "/api/v1/health", "")

	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

// ─── Constructor Tests ─────────────────────────────────────────────

func TestNew_RequiresLogger(t *testing.T) {
	layer := &apiLayer{}
	host, err := usb.New(layer)
	if err != nil {
		t.Fatalf("usb.New: %v", err)
	}
	defer host.Close()

	if _, err := New(Deps{Host: host}); err == nil {
		t.Error("New() without logger should fail")
	}
}

func TestNew_RequiresHost(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without host should fail")
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestIDEchoed(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "test-id-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "test-id-123" {
		t.Errorf("X-Request-ID = %q, want test-id-123", got)
	}
}

func TestRequestIDGenerated(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID should be generated when absent")
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.cfg.CORS.AllowedOrigins = []string{"http://monitor.local"}
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://monitor.local")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://monitor.local" {
		t.Errorf("Allow-Origin = %q, want http://monitor.local", got)
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.cfg.CORS.AllowedOrigins = []string{"http://monitor.local"}
	router := srv.buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty for disallowed origin", got)
	}
}

// ─── Stats Endpoint Tests ──────────────────────────────────────────

func TestStats(t *testing.T) {
	srv, host, _ := testServer(t)
	attach(t, host, 0x1d6b, 0x0003)
	attach(t, host, 0x046d, 0xc077)

	w, resp := doRequest(t, srv, http.MethodGet, "/api/v1/stats", "")

	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d, want %d", w.Code, http.StatusOK)
	}

	stats, ok := resp["stats"].(map[string]any)
	if !ok {
		t.Fatalf("stats field missing: %v", resp)
	}
	if got, _ := stats["devices"].(float64); got != 2 {
		t.Errorf("devices = %v, want 2", got)
	}
}

// fmtIdentity builds the URL path segment for a vendor/product pair.
func fmtIdentity(vendor, product uint16) string {
	return fmt.Sprintf("%04x:%04x", vendor, product)
}
