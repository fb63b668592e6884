package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DslActionKind is the YAML variant tag, one per entry in the spec's
// action list and spelled exactly as it appears in a profile's timeline.
type DslActionKind string

const (
	DslActionClick         DslActionKind = "click"
	DslActionDoubleClick   DslActionKind = "double_click"
	DslActionMouseDown     DslActionKind = "mouse_down"
	DslActionMouseUp       DslActionKind = "mouse_up"
	DslActionMouseMove     DslActionKind = "mouse_move"
	DslActionDrag          DslActionKind = "drag"
	DslActionScroll        DslActionKind = "scroll"
	DslActionKeyTap        DslActionKind = "key_tap"
	DslActionKeyDown       DslActionKind = "key_down"
	DslActionKeyUp         DslActionKind = "key_up"
	DslActionTextInput     DslActionKind = "text_input"
	DslActionWait          DslActionKind = "wait"
	DslActionWaitUntil     DslActionKind = "wait_until"
	DslActionConditional   DslActionKind = "conditional"
	DslActionSetCounter    DslActionKind = "set_counter"
	DslActionIncrCounter   DslActionKind = "incr_counter"
	DslActionDecrCounter   DslActionKind = "decr_counter"
	DslActionResetCounter  DslActionKind = "reset_counter"
	DslActionExit          DslActionKind = "exit"
	DslActionCallMacro     DslActionKind = "call_macro"
)

// DslAction is the YAML action variant, represented (like Action and
// Condition in the core package) as one struct tagged by Kind rather
// than as an interface hierarchy. On the wire it is a single-key
// mapping, e.g. "click: {x: 10, y: 20}", matching the externally-tagged
// enum shape used throughout the profile format.
type DslAction struct {
	Kind DslActionKind

	X, Y   DslValue
	Button DslMouseButton

	FromX, FromY, ToX, ToY DslValue
	DurationMs             uint64

	DeltaX, DeltaY DslValue

	Key  string
	Text DslValue

	Ms uint64

	Condition      *DslCondition
	TimeoutMs      *uint64
	PollIntervalMs uint64

	ThenAction *DslAction
	ElseAction *DslAction

	CounterKey string
	Value      DslValue

	MacroName string
	MacroArgs map[string]DslValue
}

func (a *DslAction) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("action must be a single-key mapping (got %d keys)", len(node.Content)/2)
	}
	var key string
	if err := node.Content[0].Decode(&key); err != nil {
		return err
	}
	val := node.Content[1]
	a.Kind = DslActionKind(key)

	switch a.Kind {
	case DslActionClick, DslActionDoubleClick, DslActionMouseDown, DslActionMouseUp:
		var f struct {
			X      DslValue       `yaml:"x"`
			Y      DslValue       `yaml:"y"`
			Button DslMouseButton `yaml:"button"`
		}
		f.Button = DslButtonLeft
		if err := val.Decode(&f); err != nil {
			return err
		}
		a.X, a.Y, a.Button = f.X, f.Y, f.Button

	case DslActionMouseMove:
		var f struct {
			X DslValue `yaml:"x"`
			Y DslValue `yaml:"y"`
		}
		if err := val.Decode(&f); err != nil {
			return err
		}
		a.X, a.Y = f.X, f.Y

	case DslActionDrag:
		var f struct {
			FromX      DslValue `yaml:"from_x"`
			FromY      DslValue `yaml:"from_y"`
			ToX        DslValue `yaml:"to_x"`
			ToY        DslValue `yaml:"to_y"`
			DurationMs uint64   `yaml:"duration_ms"`
		}
		f.DurationMs = 500
		if err := val.Decode(&f); err != nil {
			return err
		}
		a.FromX, a.FromY, a.ToX, a.ToY, a.DurationMs = f.FromX, f.FromY, f.ToX, f.ToY, f.DurationMs

	case DslActionScroll:
		var f struct {
			DeltaX DslValue `yaml:"delta_x"`
			DeltaY DslValue `yaml:"delta_y"`
		}
		if err := val.Decode(&f); err != nil {
			return err
		}
		a.DeltaX, a.DeltaY = f.DeltaX, f.DeltaY

	case DslActionKeyTap, DslActionKeyDown, DslActionKeyUp:
		var f struct {
			Key string `yaml:"key"`
		}
		if err := val.Decode(&f); err != nil {
			return err
		}
		a.Key = f.Key

	case DslActionTextInput:
		var f struct {
			Text DslValue `yaml:"text"`
		}
		if err := val.Decode(&f); err != nil {
			return err
		}
		a.Text = f.Text

	case DslActionWait:
		var f struct {
			Ms uint64 `yaml:"ms"`
		}
		if err := val.Decode(&f); err != nil {
			return err
		}
		a.Ms = f.Ms

	case DslActionWaitUntil:
		var f struct {
			Condition      DslCondition `yaml:"condition"`
			TimeoutMs      *uint64      `yaml:"timeout_ms"`
			PollIntervalMs uint64       `yaml:"poll_interval_ms"`
		}
		f.PollIntervalMs = 100
		if err := val.Decode(&f); err != nil {
			return err
		}
		a.Condition, a.TimeoutMs, a.PollIntervalMs = &f.Condition, f.TimeoutMs, f.PollIntervalMs

	case DslActionConditional:
		var f struct {
			Condition  DslCondition `yaml:"condition"`
			ThenAction *DslAction   `yaml:"then_action"`
			ElseAction *DslAction   `yaml:"else_action"`
		}
		if err := val.Decode(&f); err != nil {
			return err
		}
		a.Condition, a.ThenAction, a.ElseAction = &f.Condition, f.ThenAction, f.ElseAction

	case DslActionSetCounter:
		var f struct {
			Key   string   `yaml:"key"`
			Value DslValue `yaml:"value"`
		}
		if err := val.Decode(&f); err != nil {
			return err
		}
		a.CounterKey, a.Value = f.Key, f.Value

	case DslActionIncrCounter, DslActionDecrCounter, DslActionResetCounter:
		var f struct {
			Key string `yaml:"key"`
		}
		if err := val.Decode(&f); err != nil {
			return err
		}
		a.CounterKey = f.Key

	case DslActionExit:
		// unit variant; nothing to decode

	case DslActionCallMacro:
		var f struct {
			Name string              `yaml:"name"`
			Args map[string]DslValue `yaml:"args"`
		}
		if err := val.Decode(&f); err != nil {
			return err
		}
		a.MacroName, a.MacroArgs = f.Name, f.Args

	default:
		return fmt.Errorf("unknown action type %q", key)
	}
	return nil
}

// MarshalYAML renders a DslAction back to its single-key mapping form, the
// inverse of UnmarshalYAML, so saved recordings round-trip through the DSL.
func (a DslAction) MarshalYAML() (interface{}, error) {
	switch a.Kind {
	case DslActionClick, DslActionDoubleClick, DslActionMouseDown, DslActionMouseUp:
		return yamlMap(string(a.Kind), map[string]interface{}{"x": a.X, "y": a.Y, "button": a.Button}), nil
	case DslActionMouseMove:
		return yamlMap(string(a.Kind), map[string]interface{}{"x": a.X, "y": a.Y}), nil
	case DslActionDrag:
		return yamlMap(string(a.Kind), map[string]interface{}{
			"from_x": a.FromX, "from_y": a.FromY, "to_x": a.ToX, "to_y": a.ToY, "duration_ms": a.DurationMs,
		}), nil
	case DslActionScroll:
		return yamlMap(string(a.Kind), map[string]interface{}{"delta_x": a.DeltaX, "delta_y": a.DeltaY}), nil
	case DslActionKeyTap, DslActionKeyDown, DslActionKeyUp:
		return yamlMap(string(a.Kind), map[string]interface{}{"key": a.Key}), nil
	case DslActionTextInput:
		return yamlMap(string(a.Kind), map[string]interface{}{"text": a.Text}), nil
	case DslActionWait:
		return yamlMap(string(a.Kind), map[string]interface{}{"ms": a.Ms}), nil
	case DslActionWaitUntil:
		m := map[string]interface{}{"condition": a.Condition, "poll_interval_ms": a.PollIntervalMs}
		if a.TimeoutMs != nil {
			m["timeout_ms"] = *a.TimeoutMs
		}
		return yamlMap(string(a.Kind), m), nil
	case DslActionConditional:
		m := map[string]interface{}{"condition": a.Condition, "then_action": a.ThenAction}
		if a.ElseAction != nil {
			m["else_action"] = a.ElseAction
		}
		return yamlMap(string(a.Kind), m), nil
	case DslActionSetCounter:
		return yamlMap(string(a.Kind), map[string]interface{}{"key": a.CounterKey, "value": a.Value}), nil
	case DslActionIncrCounter, DslActionDecrCounter, DslActionResetCounter:
		return yamlMap(string(a.Kind), map[string]interface{}{"key": a.CounterKey}), nil
	case DslActionExit:
		return map[string]interface{}{string(a.Kind): nil}, nil
	case DslActionCallMacro:
		return yamlMap(string(a.Kind), map[string]interface{}{"name": a.MacroName, "args": a.MacroArgs}), nil
	default:
		return nil, fmt.Errorf("unknown action kind %q", a.Kind)
	}
}

func yamlMap(key string, fields map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{key: fields}
}
