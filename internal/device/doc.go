// Package device provides the device surface consumed by the automation
// engine and the registry of live device objects.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                        Device Registry                       │
//	│                                                              │
//	│  ┌────────────────┐   ┌────────────────┐   ┌──────────────┐  │
//	│  │    Registry    │   │     Device     │   │   Catalog    │  │
//	│  │ (registry.go)  │──▶│  (surface.go)  │──▶│ (kinds.go)   │  │
//	│  │ • live objects │   │ • commands     │   │ • name+arity │  │
//	│  │ • persistence  │   │ • properties   │   │ • events     │  │
//	│  │ • module index │   │ • listeners    │   │ • per kind   │  │
//	│  └────────────────┘   └────────────────┘   └──────────────┘  │
//	│                               │                              │
//	└───────────────────────────────│──────────────────────────────┘
//	                                ▼
//	                     Executor (MQTT bridge)
//
// # Call by name
//
// Workflows address devices with strings authored in the UI:
// "setBrightness(int)" with values ["40"]. Each kind registers a Catalog
// that maps (name, arity) to a typed handler, so there is no reflection.
// Arguments pass through ConvertValue: "true"/"false" become bools and
// numeric strings become float64.
//
// # Events
//
// Listeners are keyed by owner and event name; adding a second listener
// with the same key and event replaces the first. Level events (onOn,
// onBrightnessGreater(int), motionDetected) fire whenever their predicate
// holds after a state update or a TriggerCheckListener call. Edge events
// (toggled, onBrightnessChanged) fire only when the underlying field
// changes. Every change also fires "stateChanged:<field>" with the new value.
//
// Callbacks run on the goroutine that delivered the update, outside the
// device lock.
package device
