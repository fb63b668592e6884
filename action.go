package tap

// MouseButton identifies a physical mouse button. Unknown buttons from a
// platform hook fall back to Left (documented in the recorder's mapping
// rules, §4.4).
type MouseButton int

const (
	ButtonLeft MouseButton = iota
	ButtonRight
	ButtonMiddle
)

func (b MouseButton) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	default:
		return "left"
	}
}

// ActionKind discriminates the Action tagged variant. Action is modeled as
// a single struct with a Kind field plus every variant's fields, following
// the source's own guidance: encode a sum type without sum types as
// {type, ...fields} and dispatch with a switch, not a class hierarchy.
type ActionKind int

const (
	ActionClick ActionKind = iota
	ActionDoubleClick
	ActionMouseDown
	ActionMouseUp
	ActionMouseMove
	ActionDrag
	ActionScroll
	ActionKeyTap
	ActionKeyDown
	ActionKeyUp
	ActionTextInput
	ActionWait
	ActionWaitUntil
	ActionConditional
	ActionSetCounter
	ActionIncrCounter
	ActionDecrCounter
	ActionResetCounter
	ActionExit
	ActionCallMacro
)

var actionKindNames = map[ActionKind]string{
	ActionClick:        "click",
	ActionDoubleClick:  "double_click",
	ActionMouseDown:    "mouse_down",
	ActionMouseUp:      "mouse_up",
	ActionMouseMove:    "mouse_move",
	ActionDrag:         "drag",
	ActionScroll:       "scroll",
	ActionKeyTap:       "key_tap",
	ActionKeyDown:      "key_down",
	ActionKeyUp:        "key_up",
	ActionTextInput:    "text_input",
	ActionWait:         "wait",
	ActionWaitUntil:    "wait_until",
	ActionConditional:  "conditional",
	ActionSetCounter:   "set_counter",
	ActionIncrCounter:  "incr_counter",
	ActionDecrCounter:  "decr_counter",
	ActionResetCounter: "reset_counter",
	ActionExit:         "exit",
	ActionCallMacro:    "call_macro",
}

func (k ActionKind) String() string {
	if name, ok := actionKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ArgKind discriminates a CallMacro argument literal.
type ArgKind int

const (
	ArgString ArgKind = iota
	ArgNumber
	ArgBool
)

// ArgValue is a literal passed to CallMacro before template resolution.
// A String value wrapped end-to-end in "{{ }}" is resolved against the
// parent store at call time (§4.7 step 4); any other string is literal.
type ArgValue struct {
	Kind ArgKind
	Str  string
	Num  float64
	Bool bool
}

func StringArg(s string) ArgValue  { return ArgValue{Kind: ArgString, Str: s} }
func NumberArg(n float64) ArgValue { return ArgValue{Kind: ArgNumber, Num: n} }
func BoolArg(b bool) ArgValue      { return ArgValue{Kind: ArgBool, Bool: b} }

// Action is the tagged variant from §3. Only the fields relevant to Kind
// are meaningful; the rest are zero.
type Action struct {
	Kind ActionKind

	// Mouse actions: Click, DoubleClick, MouseDown, MouseUp, MouseMove.
	X, Y   int
	Button MouseButton

	// Drag.
	ToX, ToY   int
	DurationMs uint64

	// Scroll.
	DX, DY int

	// Keyboard: KeyTap, KeyDown, KeyUp use Key; TextInput uses Text.
	Key  string
	Text string

	// Wait.
	WaitMs uint64

	// WaitUntil.
	Cond      *Condition
	TimeoutMs *uint64 // nil means wait forever
	PollMs    uint64

	// Conditional.
	Then *Action
	Else *Action

	// SetCounter/IncrCounter/DecrCounter/ResetCounter.
	CounterKey string
	ValueExpr  string // SetCounter only; a bare expression or number literal, without {{ }} braces

	// CallMacro.
	MacroName string
	MacroArgs map[string]ArgValue
}

// IsControl reports whether a is a control action (Wait, WaitUntil,
// Conditional, the counter actions, Exit, CallMacro) that the player
// handles directly and must never forward to the injector (§4.1).
func (a Action) IsControl() bool {
	switch a.Kind {
	case ActionWait, ActionWaitUntil, ActionConditional,
		ActionSetCounter, ActionIncrCounter, ActionDecrCounter, ActionResetCounter,
		ActionExit, ActionCallMacro:
		return true
	default:
		return false
	}
}

// TimedAction schedules an Action at an offset (ms) from the start of the
// current iteration's timeline.
type TimedAction struct {
	AtMs    uint64
	Action  Action
	Enabled bool
	Note    string
}
