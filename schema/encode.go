package schema

import (
	"fmt"

	"github.com/inputtap/tap"
)

// FromProfile renders an internal tap.Profile back into DSL form, for
// saving a freshly recorded timeline (or any in-memory Profile) to disk
// as YAML. Conditions are rendered back through fromCondition, but
// template spans are not recoverable from the internal representation
// (ToProfile stores resolved coordinates and text), so a profile whose
// coordinates or text used "{{ }}" saves with the literal values.
func FromProfile(p tap.Profile) DslProfile {
	timeline := make([]DslTimedAction, 0, len(p.Timeline.Actions))
	for _, ta := range p.Timeline.Actions {
		timeline = append(timeline, DslTimedAction{
			AtMs:    ta.AtMs,
			Action:  fromAction(ta.Action),
			Enabled: ta.Enabled,
			Note:    ta.Note,
		})
	}

	vars := make(map[string]VariableDefinition, len(p.Variables))
	for name, v := range p.Variables {
		vars[name] = fromVariableValue(v)
	}

	repeat := p.Run.Repeat.Times
	if p.Run.Repeat.Forever {
		repeat = 0
	}

	return DslProfile{
		Name:        p.Name,
		Description: p.Description,
		Version:     DSLVersion,
		Variables:   vars,
		Timeline:    timeline,
		Run: DslRunConfig{
			Repeat:       repeat,
			StartDelayMs: p.Run.StartDelayMs,
			Speed:        p.Run.Speed,
		},
	}
}

func fromVariableValue(v tap.VariableValue) VariableDefinition {
	switch v.Kind {
	case tap.VarNumber:
		d := DslValue{Kind: DslFloat, Float: v.Num}
		return VariableDefinition{Type: VarTypeNumber, Default: &d}
	case tap.VarBoolean:
		d := DslValue{Kind: DslBool, Bool: v.Bool}
		return VariableDefinition{Type: VarTypeBoolean, Default: &d}
	default:
		d := DslValue{Kind: DslString, Str: v.Str}
		return VariableDefinition{Type: VarTypeString, Default: &d}
	}
}

func fromButton(b tap.MouseButton) DslMouseButton {
	switch b {
	case tap.ButtonRight:
		return DslButtonRight
	case tap.ButtonMiddle:
		return DslButtonMiddle
	default:
		return DslButtonLeft
	}
}

func intVal(n int) DslValue  { return DslValue{Kind: DslInt, Int: int64(n)} }
func strVal(s string) DslValue { return DslValue{Kind: DslString, Str: s} }

func fromAction(a tap.Action) DslAction {
	switch a.Kind {
	case tap.ActionClick, tap.ActionDoubleClick, tap.ActionMouseDown, tap.ActionMouseUp:
		return DslAction{Kind: fromActionKind(a.Kind), X: intVal(a.X), Y: intVal(a.Y), Button: fromButton(a.Button)}
	case tap.ActionMouseMove:
		return DslAction{Kind: DslActionMouseMove, X: intVal(a.X), Y: intVal(a.Y)}
	case tap.ActionDrag:
		return DslAction{
			Kind: DslActionDrag,
			FromX: intVal(a.X), FromY: intVal(a.Y),
			ToX: intVal(a.ToX), ToY: intVal(a.ToY),
			DurationMs: a.DurationMs,
		}
	case tap.ActionScroll:
		return DslAction{Kind: DslActionScroll, DeltaX: intVal(a.DX), DeltaY: intVal(a.DY)}
	case tap.ActionKeyTap:
		return DslAction{Kind: DslActionKeyTap, Key: a.Key}
	case tap.ActionKeyDown:
		return DslAction{Kind: DslActionKeyDown, Key: a.Key}
	case tap.ActionKeyUp:
		return DslAction{Kind: DslActionKeyUp, Key: a.Key}
	case tap.ActionTextInput:
		return DslAction{Kind: DslActionTextInput, Text: strVal(a.Text)}
	case tap.ActionWait:
		return DslAction{Kind: DslActionWait, Ms: a.WaitMs}
	case tap.ActionWaitUntil:
		da := DslAction{Kind: DslActionWaitUntil, PollIntervalMs: a.PollMs}
		if a.Cond != nil {
			cond := fromCondition(*a.Cond)
			da.Condition = &cond
		}
		if a.TimeoutMs != nil {
			v := *a.TimeoutMs
			da.TimeoutMs = &v
		}
		return da
	case tap.ActionConditional:
		da := DslAction{Kind: DslActionConditional}
		if a.Cond != nil {
			cond := fromCondition(*a.Cond)
			da.Condition = &cond
		}
		if a.Then != nil {
			then := fromAction(*a.Then)
			da.ThenAction = &then
		}
		if a.Else != nil {
			els := fromAction(*a.Else)
			da.ElseAction = &els
		}
		return da
	case tap.ActionSetCounter:
		return DslAction{Kind: DslActionSetCounter, CounterKey: a.CounterKey, Value: strVal(a.ValueExpr)}
	case tap.ActionIncrCounter:
		return DslAction{Kind: DslActionIncrCounter, CounterKey: a.CounterKey}
	case tap.ActionDecrCounter:
		return DslAction{Kind: DslActionDecrCounter, CounterKey: a.CounterKey}
	case tap.ActionResetCounter:
		return DslAction{Kind: DslActionResetCounter, CounterKey: a.CounterKey}
	case tap.ActionExit:
		return DslAction{Kind: DslActionExit}
	case tap.ActionCallMacro:
		args := make(map[string]DslValue, len(a.MacroArgs))
		for k, v := range a.MacroArgs {
			args[k] = fromArgValue(v)
		}
		return DslAction{Kind: DslActionCallMacro, MacroName: a.MacroName, MacroArgs: args}
	default:
		panic(fmt.Sprintf("schema: unhandled action kind %v", a.Kind))
	}
}

func fromActionKind(k tap.ActionKind) DslActionKind {
	switch k {
	case tap.ActionClick:
		return DslActionClick
	case tap.ActionDoubleClick:
		return DslActionDoubleClick
	case tap.ActionMouseDown:
		return DslActionMouseDown
	case tap.ActionMouseUp:
		return DslActionMouseUp
	default:
		return DslActionClick
	}
}

func fromArgValue(v tap.ArgValue) DslValue {
	switch v.Kind {
	case tap.ArgNumber:
		return DslValue{Kind: DslFloat, Float: v.Num}
	case tap.ArgBool:
		return DslValue{Kind: DslBool, Bool: v.Bool}
	default:
		return DslValue{Kind: DslString, Str: v.Str}
	}
}

func fromCondition(c tap.Condition) DslCondition {
	switch c.Kind {
	case tap.CondWindowFocused:
		return DslCondition{Kind: DslCondWindowFocused, Title: c.Title, Process: c.Process}
	case tap.CondWindowExists:
		return DslCondition{Kind: DslCondWindowExists, Title: c.Title, Process: c.Process}
	case tap.CondPixelColor:
		return DslCondition{
			Kind: DslCondPixelColor, X: c.X, Y: c.Y,
			Color:     fmt.Sprintf("#%02X%02X%02X", c.Target.R, c.Target.G, c.Target.B),
			Tolerance: c.Tolerance,
		}
	case tap.CondCounter:
		return DslCondition{Kind: DslCondCounter, CounterKey: c.CounterKey, Op: c.Op.String(), Value: c.Value}
	case tap.CondAlways:
		return DslCondition{Kind: DslCondAlways}
	case tap.CondNever:
		return DslCondition{Kind: DslCondNever}
	case tap.CondAnd:
		return DslCondition{Kind: DslCondAnd, Children: fromConditionList(c.Children)}
	case tap.CondOr:
		return DslCondition{Kind: DslCondOr, Children: fromConditionList(c.Children)}
	case tap.CondNot:
		if len(c.Children) == 0 {
			return DslCondition{Kind: DslCondNever}
		}
		return DslCondition{Kind: DslCondNot, Children: []DslCondition{fromCondition(c.Children[0])}}
	default:
		return DslCondition{Kind: DslCondNever}
	}
}

func fromConditionList(in []tap.Condition) []DslCondition {
	out := make([]DslCondition, 0, len(in))
	for _, c := range in {
		out = append(out, fromCondition(c))
	}
	return out
}
