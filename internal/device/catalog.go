package device

import "sort"

// StateChangedPrefix starts the parameterized event fired for every state
// field change. "stateChanged:brightness" delivers the new brightness.
const StateChangedPrefix = "stateChanged:"

// CommandFunc applies a command. execute is false when replaying a value
// that the hardware already reported.
type CommandFunc func(d *Device, args []any, execute bool) error

// PropertyFunc evaluates a boolean property against a state snapshot.
type PropertyFunc func(s State, args []any) (bool, error)

// MatchFunc decides whether a listener's parameters match the current state.
type MatchFunc func(s State, params []any) bool

// Command is one entry of a kind's command surface.
type Command struct {
	Signature string
	Run       CommandFunc
}

// Property is one entry of a kind's property surface.
type Property struct {
	Signature string
	Eval      PropertyFunc
}

// Event describes something listeners can wait for.
//
// Level events are re-evaluated by TriggerCheckListener and fire for every
// listener whose Match holds. Edge events fire only when Field changes and
// are ignored by TriggerCheckListener.
type Event struct {
	Signature string
	Field     string
	Edge      bool
	Match     MatchFunc
}

type signature struct {
	name  string
	arity int
}

func parseSignature(sig string) signature {
	return signature{name: BaseName(sig), arity: signatureArity(sig)}
}

// Catalog is the command, property and event registry for one device kind.
// Catalogs are built once at init and are read-only afterwards.
type Catalog struct {
	Kind  Kind
	Label string
	Icon  string

	commands   map[signature]Command
	properties map[signature]Property
	events     map[string]Event
	fields     map[string][]string
	momentary  map[string]bool
}

func newCatalog(kind Kind, label, icon string) *Catalog {
	return &Catalog{
		Kind:       kind,
		Label:      label,
		Icon:       icon,
		commands:   make(map[signature]Command),
		properties: make(map[signature]Property),
		events:     make(map[string]Event),
		fields:     make(map[string][]string),
		momentary:  make(map[string]bool),
	}
}

// extend copies every entry of parent into c.
func (c *Catalog) extend(parent *Catalog) *Catalog {
	for k, v := range parent.commands {
		c.commands[k] = v
	}
	for k, v := range parent.properties {
		c.properties[k] = v
	}
	for _, e := range parent.events {
		c.event(e)
	}
	for k := range parent.momentary {
		c.momentary[k] = true
	}
	return c
}

func (c *Catalog) command(sig string, fn CommandFunc) *Catalog {
	c.commands[parseSignature(sig)] = Command{Signature: sig, Run: fn}
	return c
}

func (c *Catalog) property(sig string, fn PropertyFunc) *Catalog {
	c.properties[parseSignature(sig)] = Property{Signature: sig, Eval: fn}
	return c
}

func (c *Catalog) event(e Event) *Catalog {
	name := BaseName(e.Signature)
	c.events[name] = e
	if e.Field != "" {
		for _, existing := range c.fields[e.Field] {
			if existing == name {
				return c
			}
		}
		c.fields[e.Field] = append(c.fields[e.Field], name)
	}
	return c
}

// momentaryField marks a field whose every report counts as a change,
// such as a button press index.
func (c *Catalog) momentaryField(field string) *Catalog {
	c.momentary[field] = true
	return c
}

// Command looks up a command by name (signature suffix ignored) and arity.
func (c *Catalog) Command(name string, arity int) (Command, bool) {
	cmd, ok := c.commands[signature{name: BaseName(name), arity: arity}]
	return cmd, ok
}

// Property looks up a property by name and arity.
func (c *Catalog) Property(name string, arity int) (Property, bool) {
	p, ok := c.properties[signature{name: BaseName(name), arity: arity}]
	return p, ok
}

// Event looks up an event by name. Parameterized stateChanged events are
// not catalogued; they are edge events that match every listener.
func (c *Catalog) Event(name string) (Event, bool) {
	e, ok := c.events[BaseName(name)]
	return e, ok
}

// CommandSignatures lists command signatures, sorted.
func (c *Catalog) CommandSignatures() []string {
	out := make([]string, 0, len(c.commands))
	for _, cmd := range c.commands {
		out = append(out, cmd.Signature)
	}
	sort.Strings(out)
	return out
}

// PropertySignatures lists property signatures, sorted.
func (c *Catalog) PropertySignatures() []string {
	out := make([]string, 0, len(c.properties))
	for _, p := range c.properties {
		out = append(out, p.Signature)
	}
	sort.Strings(out)
	return out
}

// EventSignatures lists event signatures, sorted.
func (c *Catalog) EventSignatures() []string {
	out := make([]string, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e.Signature)
	}
	sort.Strings(out)
	return out
}

var catalogs = map[Kind]*Catalog{}

func register(c *Catalog) {
	catalogs[c.Kind] = c
}

// CatalogFor returns the catalog of a kind, or nil if the kind is unknown.
func CatalogFor(kind Kind) *Catalog {
	return catalogs[kind]
}

// Kinds lists every registered kind, sorted.
func Kinds() []Kind {
	out := make([]Kind, 0, len(catalogs))
	for k := range catalogs {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
