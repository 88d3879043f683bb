// Package api serves the automation hub's REST API and WebSocket feed.
//
// Routes live under /api/v1: actions (CRUD and manual invoke), scenes
// (CRUD, activate, deactivate, toggle), devices (list, save, run a
// command), modules (status, enable, disable), the audit trail, and
// /ws for live automation events.
//
//	server, err := api.New(api.Deps{...})
//	if err != nil {
//	    return err
//	}
//	server.Start(ctx)
//	defer server.Close()
//
// The WebSocket Hub is an automation.EventSink; register it with
// Registry.AddSink so clients receive action and scene events.
package api
