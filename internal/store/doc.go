// Package store persists the hub's JSON documents (actions, scenes, devices)
// in a single objects table keyed by kind and id.
//
// Each entity kind is exposed as a typed Collection:
//
//	actions := store.NewCollection[*automation.Action](s, store.KindAction)
//	if err := actions.Save(ctx, a.ActionID, a); err != nil { ... }
//	all, err := actions.FindAll(ctx)
//
// Documents are stored as JSON text so the same schema serves SQLite and
// Postgres. The store does not interpret document contents.
package store
