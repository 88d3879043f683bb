package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/nerrad567/gray-logic-automation/internal/device"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// deviceRequest is the body of POST /devices.
type deviceRequest struct {
	ID          string      `json:"id" validate:"required,max=128"`
	Name        string      `json:"name" validate:"required,max=100"`
	Type        device.Kind `json:"type" validate:"required"`
	ModuleID    string      `json:"moduleId" validate:"max=128"`
	Room        string      `json:"room" validate:"max=128"`
	Icon        string      `json:"icon"`
	QuickAccess bool        `json:"quickAccess"`
}

// commandRequest is the body of POST /devices/{id}/commands.
type commandRequest struct {
	Command string `json:"command" validate:"required,max=64"`
	Args    []any  `json:"args" validate:"max=2"`
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	module := r.URL.Query().Get("module")
	room := r.URL.Query().Get("room")

	var devices []*device.Device
	if module != "" {
		devices = s.devices.ByModule(module)
	} else {
		devices = s.devices.List()
	}
	out := make([]*device.Device, 0, len(devices))
	for _, d := range devices {
		if room != "" && d.Room != room {
			continue
		}
		out = append(out, d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": out, "count": len(out)})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, found := s.devices.Get(id)
	if !found {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleSaveDevice creates a device or updates an existing one in place,
// so listeners registered on it survive. Stored state is replaced by the
// (empty) state of the request until the module reports again.
func (s *Server) handleSaveDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationErrors(w, err)
		return
	}

	d, err := device.New(req.ID, req.Name, req.Type, req.ModuleID)
	if err != nil {
		s.writeFailure(w, "save device", err)
		return
	}
	d.Room = req.Room
	d.QuickAccess = req.QuickAccess
	if req.Icon != "" {
		d.Icon = req.Icon
	}

	_, existed := s.devices.Get(req.ID)
	saved, err := s.devices.Save(r.Context(), d)
	if err != nil {
		s.writeFailure(w, "save device", err)
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	writeJSON(w, status, saved)
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.devices.Delete(r.Context(), id); err != nil {
		s.writeFailure(w, "delete device", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeviceCommand runs a catalog command with execute=true, so the
// module bus carries it to the hardware, and returns the new state.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, found := s.devices.Get(id)
	if !found {
		writeNotFound(w, "device not found")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationErrors(w, err)
		return
	}

	if err := d.InvokeCommand(req.Command, req.Args...); err != nil {
		if writeDomainError(w, err) {
			return
		}
		s.logger.Warn("device command failed", "device_id", id, "command", req.Command, "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeUnavailable, err.Error())
		return
	}
	if err := s.devices.Persist(r.Context(), id); err != nil {
		s.logger.Warn("persisting device state failed", "device_id", id, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{"deviceId": id, "state": d.State()})
}

// handleRemoveRoomFromDevices clears the room of every device in it.
func (s *Server) handleRemoveRoomFromDevices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, err := s.devices.RemoveRoomFromDevices(r.Context(), id)
	if err != nil {
		s.writeFailure(w, "remove room", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room": id, "updated": n})
}
