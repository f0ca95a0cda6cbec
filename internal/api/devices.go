package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/usb-host-core/internal/usb"
)

// handleListDevices returns a snapshot of every registered device.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.host.Devices()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// deviceFromRequest resolves the {identity} URL parameter to a registered
// device. It writes the error response itself and returns nil when the
// identity is malformed or not registered.
func (s *Server) deviceFromRequest(w http.ResponseWriter, r *http.Request) *usb.Device {
	raw := chi.URLParam(r, "identity")
	identity, err := usb.ParseIdentity(raw)
	if err != nil {
		writeBadRequest(w, "invalid device identity, expected vvvv:pppp hex")
		return nil
	}

	dev := s.host.GetDevice(identity.Vendor, identity.Product)
	if dev == nil {
		writeNotFound(w, "device "+identity.String()+" is not registered")
		return nil
	}
	return dev
}

// handleGetDevice returns the state snapshot of a single device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev := s.deviceFromRequest(w, r)
	if dev == nil {
		return
	}
	writeJSON(w, http.StatusOK, dev.Snapshot())
}

// handleOpenDevice acquires a handle for the device.
func (s *Server) handleOpenDevice(w http.ResponseWriter, r *http.Request) {
	dev := s.deviceFromRequest(w, r)
	if dev == nil {
		return
	}

	if err := dev.Open(); err != nil {
		s.writeDeviceError(w, dev, "open", err)
		return
	}
	writeJSON(w, http.StatusOK, dev.Snapshot())
}

// ConfigureRequest selects a configuration and claims an interface.
type ConfigureRequest struct {
	Configuration int `json:"configuration"`
	Interface     int `json:"interface"`
}

// handleConfigureDevice activates a configuration and claims an interface
// on an open device. An absent or zero configuration falls back to the
// configured usb.default_configuration.
func (s *Server) handleConfigureDevice(w http.ResponseWriter, r *http.Request) {
	dev := s.deviceFromRequest(w, r)
	if dev == nil {
		return
	}

	var req ConfigureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Configuration == 0 {
		req.Configuration = s.defaultCfg
	}
	if req.Configuration < 0 || req.Interface < 0 {
		writeBadRequest(w, "configuration and interface must be non-negative")
		return
	}

	if err := dev.Configure(req.Configuration, req.Interface); err != nil {
		s.writeDeviceError(w, dev, "configure", err)
		return
	}
	writeJSON(w, http.StatusOK, dev.Snapshot())
}

// handleCloseDevice releases the device handle. Closing is idempotent.
func (s *Server) handleCloseDevice(w http.ResponseWriter, r *http.Request) {
	dev := s.deviceFromRequest(w, r)
	if dev == nil {
		return
	}

	dev.Close()
	writeJSON(w, http.StatusOK, dev.Snapshot())
}

// handleResetDevice performs a port reset on an open device.
//
// A failed reset permanently invalidates the record; a follow-up GET shows
// the invalid state.
func (s *Server) handleResetDevice(w http.ResponseWriter, r *http.Request) {
	dev := s.deviceFromRequest(w, r)
	if dev == nil {
		return
	}

	if err := dev.Reset(); err != nil {
		s.writeDeviceError(w, dev, "reset", err)
		return
	}
	writeJSON(w, http.StatusOK, dev.Snapshot())
}

// ClearHaltRequest names the endpoint to recover.
type ClearHaltRequest struct {
	Endpoint int `json:"endpoint"`
}

// handleClearHalt clears a halt/stall condition on one endpoint.
func (s *Server) handleClearHalt(w http.ResponseWriter, r *http.Request) {
	dev := s.deviceFromRequest(w, r)
	if dev == nil {
		return
	}

	var req ClearHaltRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Endpoint < 0 || req.Endpoint > 0xff {
		writeBadRequest(w, "endpoint must be an address byte (0-255)")
		return
	}

	if err := dev.ClearHalt(req.Endpoint); err != nil {
		s.writeDeviceError(w, dev, "clear halt", err)
		return
	}
	writeJSON(w, http.StatusOK, dev.Snapshot())
}

// writeDeviceError maps device lifecycle errors onto HTTP status codes.
// State violations are conflicts; anything else is a bus-level failure.
func (s *Server) writeDeviceError(w http.ResponseWriter, dev *usb.Device, op string, err error) {
	identity := dev.Identity().String()

	switch {
	case errors.Is(err, usb.ErrAlreadyOpen),
		errors.Is(err, usb.ErrNotOpen),
		errors.Is(err, usb.ErrDeviceInvalid):
		writeConflict(w, op+" "+identity+": "+err.Error())
	default:
		s.logger.Error("device operation failed",
			"operation", op,
			"identity", identity,
			"error", err,
		)
		writeInternalError(w, op+" "+identity+" failed")
	}
}
