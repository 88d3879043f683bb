package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-automation/internal/automation"
)

// maxIDLen bounds path ids.
const maxIDLen = 128

// actionView is an action plus its runtime status.
type actionView struct {
	*automation.Action
	TriggerInfo string     `json:"triggerInfo"`
	Running     bool       `json:"running"`
	NextFire    *time.Time `json:"nextFire,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`
}

func (s *Server) viewAction(a *automation.Action) actionView {
	v := actionView{Action: a}
	v.TriggerInfo, _ = s.automation.TriggerInfo(a.ActionID) //nolint:errcheck // a was just read from the registry
	if inv, ok := s.automation.Invocable(a.ActionID); ok {
		v.Running = inv.Busy()
	}
	if next, ok := s.automation.NextFire(a.ActionID); ok {
		v.NextFire = &next
	}
	return v
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxIDLen {
		writeBadRequest(w, "invalid id")
		return "", false
	}
	return id, true
}

func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	trigger := r.URL.Query().Get("triggerType")

	actions := s.automation.GetActions()
	views := make([]actionView, 0, len(actions))
	for _, a := range actions {
		if trigger != "" && a.TriggerType != trigger {
			continue
		}
		views = append(views, s.viewAction(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": views, "count": len(views)})
}

func (s *Server) handleGetAction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := s.automation.GetAction(id)
	if err != nil {
		s.writeFailure(w, "get action", err)
		return
	}
	writeJSON(w, http.StatusOK, s.viewAction(a))
}

// handleCreateAction stores a new action. A missing actionId is generated.
// Structural problems that do not block saving come back as warnings.
func (s *Server) handleCreateAction(w http.ResponseWriter, r *http.Request) {
	var a automation.Action
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if a.ActionID == "" {
		a.ActionID = automation.GenerateID()
	} else if _, err := s.automation.GetAction(a.ActionID); err == nil {
		writeError(w, http.StatusConflict, ErrCodeConflict, "action "+a.ActionID+" already exists")
		return
	}
	a.CreatedAt = time.Time{}

	s.saveAction(w, r, &a, http.StatusCreated)
}

// handleUpdateAction replaces an action, keeping its creation time.
func (s *Server) handleUpdateAction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.automation.GetAction(id); err != nil {
		s.writeFailure(w, "update action", err)
		return
	}

	var a automation.Action
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if a.ActionID != "" && a.ActionID != id {
		writeBadRequest(w, "actionId does not match path")
		return
	}
	a.ActionID = id
	a.CreatedAt = time.Time{}

	s.saveAction(w, r, &a, http.StatusOK)
}

func (s *Server) saveAction(w http.ResponseWriter, r *http.Request, a *automation.Action, status int) {
	if err := automation.ValidateAction(a); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	warnings := automation.CheckAction(a)

	if err := s.automation.UpdateAction(r.Context(), a); err != nil {
		s.writeFailure(w, "save action", err)
		return
	}
	saved, err := s.automation.GetAction(a.ActionID)
	if err != nil {
		s.writeFailure(w, "save action", err)
		return
	}

	v := s.viewAction(saved)
	for _, warn := range warnings {
		v.Warnings = append(v.Warnings, warn.Error())
	}
	writeJSON(w, status, v)
}

func (s *Server) handleDeleteAction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.automation.DeleteAction(r.Context(), id); err != nil {
		s.writeFailure(w, "delete action", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleInvokeAction starts a manual run. The optional JSON body is the
// trigger payload. 202 means the run was accepted, 409 that it was
// dropped because a run is in progress or the pool refused it.
func (s *Server) handleInvokeAction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := s.automation.GetAction(id); err != nil {
		s.writeFailure(w, "invoke action", err)
		return
	}

	var payload any
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	if !s.automation.InvokeAction(id, payload) {
		writeError(w, http.StatusConflict, ErrCodeConflict, "action is already running or the worker pool is full")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"actionId": id, "accepted": true})
}

// writeFailure maps known errors to 4xx and logs the rest as 500.
func (s *Server) writeFailure(w http.ResponseWriter, op string, err error) {
	if writeDomainError(w, err) {
		return
	}
	s.logger.Error("api operation failed", "op", op, "error", err)
	writeInternalError(w, op+" failed")
}
