package device

import "fmt"

func init() {
	light := lightCatalog(KindLight, "deviceType.light", "💡")
	register(light)
	register(newCatalog(KindLightDimmer, "deviceType.light-dimmer", "💡").extend(light).
		command("setBrightness(int)", setNumber("brightness", "setBrightness")).
		property("brightnessEquals(int)", compareProperty("brightness", eq)).
		property("brightnessLess(int)", compareProperty("brightness", lt)).
		property("brightnessGreater(int)", compareProperty("brightness", gt)).
		event(Event{Signature: "onBrightnessChanged", Field: "brightness", Edge: true}).
		event(Event{Signature: "onBrightnessEquals(int)", Field: "brightness", Match: compareMatch("brightness", eq)}).
		event(Event{Signature: "onBrightnessLess(int)", Field: "brightness", Match: compareMatch("brightness", lt)}).
		event(Event{Signature: "onBrightnessGreater(int)", Field: "brightness", Match: compareMatch("brightness", gt)}))

	register(lightCatalog(KindSwitch, "deviceType.switch", "🔌").
		momentaryField("pressed").
		event(Event{Signature: "onPressed(int)", Field: "pressed", Edge: true, Match: pressedMatch}))

	register(newCatalog(KindMotion, "deviceType.motion", "👀").
		command("setSensibility(int)", setNumber("sensitivity", "setSensibility")).
		property("motion", boolProperty("motion", true)).
		property("noMotion", boolProperty("motion", false)).
		event(Event{Signature: "sensibilityChanged", Field: "sensitivity", Edge: true}).
		event(Event{Signature: "motionDetected", Field: "motion", Match: boolMatch("motion", true)}).
		event(Event{Signature: "noMotionDetected", Field: "motion", Match: boolMatch("motion", false)}))

	register(newCatalog(KindTemperature, "deviceType.temperature", "🌡️").
		property("temperatureGreater(int)", compareProperty("temperature", gt)).
		property("temperatureLess(int)", compareProperty("temperature", lt)).
		property("temperatureEquals(int)", compareProperty("temperature", eq)).
		event(Event{Signature: "temperatureChanged", Field: "temperature", Edge: true}).
		event(Event{Signature: "temperatureGreater(int)", Field: "temperature", Match: compareMatch("temperature", gt)}).
		event(Event{Signature: "temperatureLess(int)", Field: "temperature", Match: compareMatch("temperature", lt)}).
		event(Event{Signature: "temperatureEquals(int)", Field: "temperature", Match: compareMatch("temperature", eq)}))
}

// lightCatalog is the on/off surface shared by lights, dimmers and switches.
func lightCatalog(kind Kind, label, icon string) *Catalog {
	return newCatalog(kind, label, icon).
		command("setOn", setOnOff(true)).
		command("setOff", setOnOff(false)).
		command("toggle", toggle).
		property("on", boolProperty("on", true)).
		property("off", boolProperty("on", false)).
		event(Event{Signature: "toggled", Field: "on", Edge: true}).
		event(Event{Signature: "onOn", Field: "on", Match: boolMatch("on", true)}).
		event(Event{Signature: "onOff", Field: "on", Match: boolMatch("on", false)})
}

// ─── Commands ──────────────────────────────────────────────────────

func setOnOff(on bool) CommandFunc {
	name := "setOff"
	if on {
		name = "setOn"
	}
	return func(d *Device, _ []any, execute bool) error {
		if execute {
			if err := d.execute(name, nil); err != nil {
				return err
			}
		}
		d.SetState("on", on)
		return nil
	}
}

func toggle(d *Device, _ []any, execute bool) error {
	next := !d.State().Bool("on")
	if execute {
		name := "setOff"
		if next {
			name = "setOn"
		}
		if err := d.execute(name, nil); err != nil {
			return err
		}
	}
	d.SetState("on", next)
	return nil
}

func setNumber(field, command string) CommandFunc {
	return func(d *Device, args []any, execute bool) error {
		v, err := toFloat(args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", command, err)
		}
		if execute {
			if err := d.execute(command, []any{v}); err != nil {
				return err
			}
		}
		d.SetState(field, v)
		return nil
	}
}

// ─── Properties and matches ────────────────────────────────────────

type comparison func(a, b float64) bool

func eq(a, b float64) bool { return a == b }
func lt(a, b float64) bool { return a < b }
func gt(a, b float64) bool { return a > b }

func boolProperty(field string, want bool) PropertyFunc {
	return func(s State, _ []any) (bool, error) {
		v, ok := s[field].(bool)
		if !ok {
			// An unreported field reads as off / no motion.
			return !want, nil
		}
		return v == want, nil
	}
}

func compareProperty(field string, cmp comparison) PropertyFunc {
	return func(s State, args []any) (bool, error) {
		target, err := toFloat(args[0])
		if err != nil {
			return false, err
		}
		current, ok := s.Float(field)
		return ok && cmp(current, target), nil
	}
}

func boolMatch(field string, want bool) MatchFunc {
	return func(s State, _ []any) bool {
		v, ok := s[field].(bool)
		return ok && v == want
	}
}

func compareMatch(field string, cmp comparison) MatchFunc {
	return func(s State, params []any) bool {
		if len(params) == 0 {
			return false
		}
		target, err := toFloat(params[0])
		if err != nil {
			return false
		}
		current, ok := s.Float(field)
		return ok && cmp(current, target)
	}
}

// pressedMatch matches any press without parameters, or a specific button index.
func pressedMatch(s State, params []any) bool {
	if len(params) == 0 {
		return true
	}
	want, err := toFloat(params[0])
	if err != nil {
		return false
	}
	got, ok := s.Float("pressed")
	return ok && got == want
}
