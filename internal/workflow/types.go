package workflow

// NodeType identifies what a node does when the interpreter reaches it.
type NodeType string

// Node types.
const (
	NodeTrigger   NodeType = "trigger"
	NodeAction    NodeType = "action"
	NodeCondition NodeType = "condition"
	NodeWait      NodeType = "wait"
	NodeLoop      NodeType = "loop"
)

// Trigger sources.
const (
	TriggerManual = "manual"
	TriggerDevice = "device"
	TriggerTime   = "time"
)

// Action node targets.
const (
	ActionTargetDevice = "device"
	ActionTargetAction = "action"
)

// Wait kinds.
const (
	WaitTime    = "time"
	WaitTrigger = "trigger"
)

// Loop kinds.
const (
	LoopFor   = "for"
	LoopWhile = "while"
)

// Time trigger frequencies.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
)

// Workflow is the graph behind one action.
type Workflow struct {
	Nodes       []Node `json:"nodes" validate:"dive"`
	StartNodeID string `json:"startNodeId,omitempty"`
}

// Position is where the editor drew a node. The interpreter ignores it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one step of a workflow.
//
// Only the config matching Type is read; the others are kept so the editor
// round-trips whatever it sent. Edge lists hold node ids of the same workflow.
type Node struct {
	NodeID   string    `json:"nodeId" validate:"required"`
	Type     NodeType  `json:"type" validate:"required"`
	Name     string    `json:"name,omitempty"`
	Order    int       `json:"order,omitempty"`
	Position *Position `json:"position,omitempty"`

	TriggerConfig   *TriggerConfig   `json:"triggerConfig,omitempty"`
	ActionConfig    *ActionConfig    `json:"actionConfig,omitempty"`
	ConditionConfig *ConditionConfig `json:"conditionConfig,omitempty"`
	WaitConfig      *WaitConfig      `json:"waitConfig,omitempty"`
	LoopConfig      *LoopConfig      `json:"loopConfig,omitempty"`

	NextNodes  []string `json:"nextNodes,omitempty"`
	TrueNodes  []string `json:"trueNodes,omitempty"`
	FalseNodes []string `json:"falseNodes,omitempty"`
	LoopNodes  []string `json:"loopNodes,omitempty"`
}

// TriggerConfig describes what starts an action.
type TriggerConfig struct {
	Type   string         `json:"type" validate:"omitempty,oneof=manual device time"`
	Device *DeviceTrigger `json:"device,omitempty"`
	Time   *TimeTrigger   `json:"time,omitempty"`
}

// DeviceTrigger fires an action from a device event.
type DeviceTrigger struct {
	DeviceID      string `json:"triggerDeviceId"`
	ModuleID      string `json:"triggerModuleId,omitempty"`
	Event         string `json:"triggerEvent"`
	TriggerValues []any  `json:"triggerValues,omitempty" validate:"max=2"`
}

// TimeTrigger fires an action on a wall-clock schedule.
// DayOfMonth and Month are stored but monthly runs on the 1st and yearly on January 1st.
type TimeTrigger struct {
	Frequency  string `json:"frequency" validate:"omitempty,oneof=daily weekly monthly yearly"`
	Time       string `json:"time"`
	Weekdays   []int  `json:"weekdays,omitempty" validate:"dive,min=0,max=6"`
	DayOfMonth int    `json:"dayOfMonth,omitempty"`
	Month      int    `json:"month,omitempty"`
}

// ActionConfig is what an action node does: a device command or another action.
type ActionConfig struct {
	Type     string `json:"type" validate:"omitempty,oneof=device action"`
	Action   string `json:"action"`
	Values   []any  `json:"values,omitempty"`
	DeviceID string `json:"deviceId,omitempty"`
	ModuleID string `json:"moduleId,omitempty"`
}

// ConditionConfig is a boolean device property query.
type ConditionConfig struct {
	DeviceID string `json:"deviceId"`
	ModuleID string `json:"moduleId,omitempty"`
	Property string `json:"property"`
	Values   []any  `json:"values,omitempty"`
}

// WaitConfig pauses a branch for a duration or until a device event.
// WaitTime and Timeout are seconds.
type WaitConfig struct {
	Type          string `json:"type" validate:"omitempty,oneof=time trigger"`
	WaitTime      int    `json:"waitTime,omitempty" validate:"min=0"`
	DeviceID      string `json:"deviceId,omitempty"`
	ModuleID      string `json:"moduleId,omitempty"`
	TriggerEvent  string `json:"triggerEvent,omitempty"`
	TriggerValues []any  `json:"triggerValues,omitempty" validate:"max=2"`
	Timeout       int    `json:"timeout,omitempty" validate:"min=0"`
}

// LoopConfig repeats the loop body a fixed number of times or while a
// condition holds. MaxIterations caps a while loop when positive.
type LoopConfig struct {
	Type          string           `json:"type" validate:"omitempty,oneof=for while"`
	Count         int              `json:"count,omitempty"`
	Condition     *ConditionConfig `json:"condition,omitempty"`
	MaxIterations int              `json:"maxIterations,omitempty" validate:"min=0"`
}
