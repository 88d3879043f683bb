package automation

import "context"

// StandardScenes returns fresh copies of the built-in scenes. Names are
// translation keys resolved by the clients.
func StandardScenes() []*Scene {
	defs := []struct{ id, name, icon string }{
		{"good-morning", "home.scenes.goodMorning", "🌅"},
		{"good-night", "home.scenes.goodNight", "🌙"},
		{"vacation", "home.scenes.vacation", "🏖️"},
		{"movie-night", "home.scenes.movieNight", "🎬"},
		{"welcome", "home.scenes.welcome", "🏠"},
		{"goodbye", "home.scenes.goodbye", "👋"},
	}
	out := make([]*Scene, 0, len(defs))
	for _, d := range defs {
		out = append(out, &Scene{
			ID:         d.id,
			Name:       d.name,
			Icon:       d.icon,
			ActionIDs:  []string{},
			ShowOnHome: true,
			IsCustom:   false,
		})
	}
	return out
}

// seedStandardScenesLocked adds and persists any built-in scene that is
// missing. A scene that fails to persist is still kept in memory.
func (r *Registry) seedStandardScenesLocked(ctx context.Context) {
	added := 0
	for _, s := range StandardScenes() {
		if _, ok := r.scenes[s.ID]; ok {
			continue
		}
		if err := r.sceneStore.Save(ctx, s.ID, s); err != nil {
			r.logger.Error("failed to persist standard scene", "scene_id", s.ID, "error", err)
		}
		r.scenes[s.ID] = s
		added++
	}
	if added > 0 {
		r.logger.Info("standard scenes created", "count", added)
	}
}
