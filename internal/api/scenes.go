package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/gray-logic-automation/internal/automation"
)

// sceneView adds the number of registered listeners.
type sceneView struct {
	*automation.Scene
	Listeners int `json:"listeners"`
}

func (s *Server) viewScene(id string) (sceneView, error) {
	sc, err := s.automation.GetScene(id)
	if err != nil {
		return sceneView{}, err
	}
	return sceneView{Scene: sc, Listeners: s.automation.SceneListenerCount(id)}, nil
}

func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	homeOnly := r.URL.Query().Get("home") == "true"

	scenes := s.automation.GetScenes()
	views := make([]sceneView, 0, len(scenes))
	for _, sc := range scenes {
		if homeOnly && !sc.ShowOnHome {
			continue
		}
		views = append(views, sceneView{Scene: sc, Listeners: s.automation.SceneListenerCount(sc.ID)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenes": views, "count": len(views)})
}

func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := s.viewScene(id)
	if err != nil {
		s.writeFailure(w, "get scene", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleCreateScene stores a new custom scene with a generated
// "scene-<uuid>" id. New scenes start inactive.
func (s *Server) handleCreateScene(w http.ResponseWriter, r *http.Request) {
	var sc automation.Scene
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	sc.ID = automation.GenerateSceneID()
	sc.Active = false
	sc.IsCustom = true

	if err := s.automation.AddScene(r.Context(), &sc); err != nil {
		s.writeFailure(w, "create scene", err)
		return
	}
	v, err := s.viewScene(sc.ID)
	if err != nil {
		s.writeFailure(w, "create scene", err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// handleUpdateScene replaces a scene. Listeners are rebuilt from the new
// actionIds only.
func (s *Server) handleUpdateScene(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	existing, err := s.automation.GetScene(id)
	if err != nil {
		s.writeFailure(w, "update scene", err)
		return
	}

	var sc automation.Scene
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if sc.ID != "" && sc.ID != id {
		writeBadRequest(w, "id does not match path")
		return
	}
	sc.ID = id
	sc.IsCustom = existing.IsCustom

	if err := s.automation.UpdateScene(r.Context(), &sc); err != nil {
		s.writeFailure(w, "update scene", err)
		return
	}
	v, err := s.viewScene(id)
	if err != nil {
		s.writeFailure(w, "update scene", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteScene(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.automation.DeleteScene(r.Context(), id); err != nil {
		s.writeFailure(w, "delete scene", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivateScene(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sc, err := s.automation.ActivateScene(r.Context(), id)
	if err != nil {
		s.writeFailure(w, "activate scene", err)
		return
	}
	writeJSON(w, http.StatusOK, sceneView{Scene: sc, Listeners: s.automation.SceneListenerCount(id)})
}

func (s *Server) handleDeactivateScene(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	sc, err := s.automation.DeactivateScene(r.Context(), id)
	if err != nil {
		s.writeFailure(w, "deactivate scene", err)
		return
	}
	writeJSON(w, http.StatusOK, sceneView{Scene: sc, Listeners: s.automation.SceneListenerCount(id)})
}

// handleToggleScene fires the scene's listeners without changing active.
func (s *Server) handleToggleScene(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, err := s.automation.ToggleScene(id)
	if err != nil {
		s.writeFailure(w, "toggle scene", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sceneId": id, "listeners": n})
}
