package api

import (
	"net/http"
)

const reasonAPI = "api"

func (s *Server) requireModules(w http.ResponseWriter) bool {
	if s.modules == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "module bus is not enabled")
		return false
	}
	return true
}

func (s *Server) handleListModules(w http.ResponseWriter, _ *http.Request) {
	if !s.requireModules(w) {
		return
	}
	modules := s.modules.Modules()
	writeJSON(w, http.StatusOK, map[string]any{"modules": modules, "count": len(modules)})
}

// handleEnableModule re-registers the module's device triggers, as when
// the module reports healthy again.
func (s *Server) handleEnableModule(w http.ResponseWriter, r *http.Request) {
	s.setModule(w, r, true)
}

// handleDisableModule removes every listener from the module's devices.
func (s *Server) handleDisableModule(w http.ResponseWriter, r *http.Request) {
	s.setModule(w, r, false)
}

func (s *Server) setModule(w http.ResponseWriter, r *http.Request, online bool) {
	if !s.requireModules(w) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	changed := s.modules.SetModuleOnline(id, online, reasonAPI)
	m, _ := s.modules.Module(id)
	writeJSON(w, http.StatusOK, map[string]any{"module": m, "changed": changed})
}
