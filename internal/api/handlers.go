package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"codeberg.org/mutker/homewatt/internal/device"
	"codeberg.org/mutker/homewatt/internal/errors"
	"codeberg.org/mutker/homewatt/internal/logger"
	"github.com/gorilla/mux"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug().Err(err).Msg("response encoding failed")
	}
}

// writeError translates error codes into HTTP statuses. Store write
// failures surface as 502: the device store is an upstream dependency,
// not part of this service.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.CodeOf(err) {
	case device.ErrNotFound:
		status = http.StatusNotFound
	case device.ErrInvalidName, device.ErrUnknownType, ErrInvalidPayload:
		status = http.StatusBadRequest
	case device.ErrWriteRejected, device.ErrStoreUnavailable:
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		var coded errors.Error
		if errors.As(err, &coded) {
			logger.ErrorWithCode(coded).Msg("request failed")
		} else {
			logger.Error().Err(err).Msg("request failed")
		}
	}

	writeJSON(w, status, errorResponse{
		Error:   string(errors.CodeOf(err)),
		Message: err.Error(),
	})
}

func decodePayload(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New().Wrap(ErrInvalidPayload, err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"subscribers": s.registry.SubscriberCount(),
	})
}

func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.provider.Snapshot(r.Context()))
}

func (s *Server) getDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Devices())
}

func (s *Server) addDevice(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name string `json:"name"`
		Type string `json:"type"`
		Room string `json:"room"`
	}
	if err := decodePayload(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	d, err := s.registry.Add(r.Context(), payload.Name, device.Type(payload.Type), payload.Room)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) updateDevice(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     *string  `json:"name"`
		Room     *string  `json:"room"`
		SetPoint *float64 `json:"set_point"`
	}
	if err := decodePayload(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	update := device.MetadataUpdate{
		Name:     payload.Name,
		Room:     payload.Room,
		SetPoint: payload.SetPoint,
	}
	if err := s.registry.UpdateMetadata(r.Context(), mux.Vars(r)["id"], update); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeDevice(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// setDevicePower acknowledges the store write with 202: the toggled
// state becomes visible through the event stream once the change feed
// echoes it back, not in this response.
func (s *Server) setDevicePower(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		On bool `json:"on"`
	}
	if err := decodePayload(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	if err := s.registry.Toggle(r.Context(), mux.Vars(r)["id"], payload.On); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// streamEvents re-publishes the registry fan-out as server-sent events.
// The current collection is sent immediately so clients need no
// separate initial fetch.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := make(chan []device.Device, 1)
	unsubscribe := s.registry.Subscribe(func(devices []device.Device) {
		select {
		case events <- devices:
		case <-r.Context().Done():
		}
	})
	defer unsubscribe()

	if err := writeEvent(w, s.registry.Devices()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case devices := <-events:
			if err := writeEvent(w, devices); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, devices []device.Device) error {
	payload, err := json.Marshal(devices)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: devices\ndata: %s\n\n", payload)
	return err
}
