package schema

import (
	"strconv"
	"strings"

	"github.com/inputtap/tap"
)

// ToProfile converts a validated DslProfile into the internal tap.Profile
// the player runs. Coordinate and scroll-delta templates ("{{ var }}")
// are resolved once here, against the profile's own declared variable
// defaults — not re-evaluated per dispatch — since the internal Action
// model (like the engine it came from) stores concrete ints rather than
// deferred expressions. Counter-driven runtime values still flow through
// WaitUntil/Conditional/SetCounter, which the player does evaluate live.
func ToProfile(p DslProfile) (tap.Profile, error) {
	defaults, err := convertVariableDefaults(p.Variables)
	if err != nil {
		return tap.Profile{}, err
	}
	store := tap.NewVariableStore()
	store.InitFromDefaults(defaults)

	actions := make([]tap.TimedAction, 0, len(p.Timeline))
	for _, ta := range p.Timeline {
		action, err := convertAction(ta.Action, store)
		if err != nil {
			return tap.Profile{}, err
		}
		actions = append(actions, tap.TimedAction{
			AtMs:    ta.AtMs,
			Action:  action,
			Enabled: ta.Enabled,
			Note:    ta.Note,
		})
	}

	return tap.Profile{
		Name:        p.Name,
		Description: p.Description,
		Timeline:    tap.NewTimeline(actions),
		Run: tap.RunConfig{
			StartDelayMs: p.Run.StartDelayMs,
			Speed:        p.Run.Speed,
			Repeat:       convertRepeat(p.Run.Repeat),
		},
		Variables: defaults,
	}, nil
}

func convertRepeat(repeat uint32) tap.Repeat {
	if repeat == 0 {
		return tap.RepeatForever()
	}
	return tap.RepeatTimes(repeat)
}

func convertVariableDefaults(vars map[string]VariableDefinition) (map[string]tap.VariableValue, error) {
	out := make(map[string]tap.VariableValue, len(vars))
	for name, def := range vars {
		switch def.Type {
		case VarTypeNumber:
			out[name] = tap.NewNumberValue(dslValueToFloat(def.Default))
		case VarTypeBoolean:
			out[name] = tap.NewBoolValue(dslValueToBool(def.Default))
		default:
			out[name] = tap.NewStringValue(dslValueToString(def.Default))
		}
	}
	return out, nil
}

func dslValueToFloat(v *DslValue) float64 {
	if v == nil {
		return 0
	}
	switch v.Kind {
	case DslInt:
		return float64(v.Int)
	case DslFloat:
		return v.Float
	case DslString:
		f, _ := strconv.ParseFloat(v.Str, 64)
		return f
	default:
		return 0
	}
}

func dslValueToBool(v *DslValue) bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case DslBool:
		return v.Bool
	case DslString:
		s := strings.ToLower(strings.TrimSpace(v.Str))
		return s == "true" || s == "yes" || s == "1"
	default:
		return false
	}
}

func dslValueToString(v *DslValue) string {
	if v == nil {
		return ""
	}
	return v.AsString()
}

// resolveCoordinate resolves one DslValue into a concrete int, expanding
// a "{{ }}" template against store if present.
func resolveCoordinate(v DslValue, store *tap.VariableStore) (int, error) {
	switch v.Kind {
	case DslInt:
		return int(v.Int), nil
	case DslFloat:
		return int(v.Float), nil
	case DslBool:
		return 0, tap.NewError(tap.KindTypeMismatch, "coordinate cannot be a boolean", nil)
	case DslString:
		if v.IsVariableRef() {
			resolved, err := tap.ResolveTemplate(v.Str, store)
			if err != nil {
				return 0, err
			}
			return parseNumericString(resolved)
		}
		return parseNumericString(v.Str)
	default:
		return 0, nil
	}
}

func parseNumericString(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f), nil
	}
	return 0, tap.NewError(tap.KindTypeMismatch, "value is not numeric: "+s, nil)
}

func toMouseButton(b DslMouseButton) tap.MouseButton {
	switch b {
	case DslButtonRight:
		return tap.ButtonRight
	case DslButtonMiddle:
		return tap.ButtonMiddle
	default:
		return tap.ButtonLeft
	}
}

func convertAction(a DslAction, store *tap.VariableStore) (tap.Action, error) {
	switch a.Kind {
	case DslActionClick:
		return convertClickLike(tap.ActionClick, a, store)
	case DslActionDoubleClick:
		return convertClickLike(tap.ActionDoubleClick, a, store)
	case DslActionMouseDown:
		return convertClickLike(tap.ActionMouseDown, a, store)
	case DslActionMouseUp:
		return convertClickLike(tap.ActionMouseUp, a, store)
	case DslActionMouseMove:
		x, y, err := resolveXY(a.X, a.Y, store)
		if err != nil {
			return tap.Action{}, err
		}
		return tap.Action{Kind: tap.ActionMouseMove, X: x, Y: y}, nil

	case DslActionDrag:
		fromX, err := resolveCoordinate(a.FromX, store)
		if err != nil {
			return tap.Action{}, err
		}
		fromY, err := resolveCoordinate(a.FromY, store)
		if err != nil {
			return tap.Action{}, err
		}
		toX, err := resolveCoordinate(a.ToX, store)
		if err != nil {
			return tap.Action{}, err
		}
		toY, err := resolveCoordinate(a.ToY, store)
		if err != nil {
			return tap.Action{}, err
		}
		return tap.Action{Kind: tap.ActionDrag, X: fromX, Y: fromY, ToX: toX, ToY: toY, DurationMs: a.DurationMs}, nil

	case DslActionScroll:
		dx, err := resolveCoordinate(a.DeltaX, store)
		if err != nil {
			return tap.Action{}, err
		}
		dy, err := resolveCoordinate(a.DeltaY, store)
		if err != nil {
			return tap.Action{}, err
		}
		return tap.Action{Kind: tap.ActionScroll, DX: dx, DY: dy}, nil

	case DslActionKeyTap:
		return tap.Action{Kind: tap.ActionKeyTap, Key: a.Key}, nil
	case DslActionKeyDown:
		return tap.Action{Kind: tap.ActionKeyDown, Key: a.Key}, nil
	case DslActionKeyUp:
		return tap.Action{Kind: tap.ActionKeyUp, Key: a.Key}, nil

	case DslActionTextInput:
		text := a.Text.AsString()
		if a.Text.IsVariableRef() {
			resolved, err := tap.ResolveTemplate(a.Text.Str, store)
			if err != nil {
				return tap.Action{}, err
			}
			text = resolved
		}
		return tap.Action{Kind: tap.ActionTextInput, Text: text}, nil

	case DslActionWait:
		return tap.Action{Kind: tap.ActionWait, WaitMs: a.Ms}, nil

	case DslActionWaitUntil:
		cond, err := convertCondition(a.Condition)
		if err != nil {
			return tap.Action{}, err
		}
		var timeout *uint64
		if a.TimeoutMs != nil {
			v := *a.TimeoutMs
			timeout = &v
		}
		return tap.Action{Kind: tap.ActionWaitUntil, Cond: cond, TimeoutMs: timeout, PollMs: a.PollIntervalMs}, nil

	case DslActionConditional:
		cond, err := convertCondition(a.Condition)
		if err != nil {
			return tap.Action{}, err
		}
		act := tap.Action{Kind: tap.ActionConditional, Cond: cond}
		if a.ThenAction != nil {
			thenAct, err := convertAction(*a.ThenAction, store)
			if err != nil {
				return tap.Action{}, err
			}
			act.Then = &thenAct
		}
		if a.ElseAction != nil {
			elseAct, err := convertAction(*a.ElseAction, store)
			if err != nil {
				return tap.Action{}, err
			}
			act.Else = &elseAct
		}
		return act, nil

	case DslActionSetCounter:
		expr, err := counterValueExpr(a.Value)
		if err != nil {
			return tap.Action{}, err
		}
		return tap.Action{Kind: tap.ActionSetCounter, CounterKey: a.CounterKey, ValueExpr: expr}, nil
	case DslActionIncrCounter:
		return tap.Action{Kind: tap.ActionIncrCounter, CounterKey: a.CounterKey}, nil
	case DslActionDecrCounter:
		return tap.Action{Kind: tap.ActionDecrCounter, CounterKey: a.CounterKey}, nil
	case DslActionResetCounter:
		return tap.Action{Kind: tap.ActionResetCounter, CounterKey: a.CounterKey}, nil

	case DslActionExit:
		return tap.Action{Kind: tap.ActionExit}, nil

	case DslActionCallMacro:
		args := make(map[string]tap.ArgValue, len(a.MacroArgs))
		for key, v := range a.MacroArgs {
			args[key] = convertArgValue(v)
		}
		return tap.Action{Kind: tap.ActionCallMacro, MacroName: a.MacroName, MacroArgs: args}, nil

	default:
		return tap.Action{}, tap.NewError(tap.KindValidation, "unknown action kind: "+string(a.Kind), nil)
	}
}

// counterValueExpr turns a set_counter "value" field into the raw Lua
// expression tap.Action.ValueExpr expects: a "{{ ... }}" span has its
// braces stripped to the inner expression, a plain literal is rendered
// as a Lua-parseable number, and a bare expression string (no braces) is
// used as-is.
func counterValueExpr(v DslValue) (string, error) {
	switch v.Kind {
	case DslInt:
		return strconv.FormatInt(v.Int, 10), nil
	case DslFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64), nil
	case DslBool:
		return "", tap.NewError(tap.KindTypeMismatch, "set_counter value cannot be a boolean", nil)
	case DslString:
		if v.IsVariableRef() {
			trimmed := strings.TrimSpace(v.Str)
			if strings.HasPrefix(trimmed, "{{") && strings.HasSuffix(trimmed, "}}") {
				return strings.TrimSpace(trimmed[2 : len(trimmed)-2]), nil
			}
		}
		return v.Str, nil
	default:
		return "0", nil
	}
}

func resolveXY(x, y DslValue, store *tap.VariableStore) (int, int, error) {
	rx, err := resolveCoordinate(x, store)
	if err != nil {
		return 0, 0, err
	}
	ry, err := resolveCoordinate(y, store)
	if err != nil {
		return 0, 0, err
	}
	return rx, ry, nil
}

func convertClickLike(kind tap.ActionKind, a DslAction, store *tap.VariableStore) (tap.Action, error) {
	x, y, err := resolveXY(a.X, a.Y, store)
	if err != nil {
		return tap.Action{}, err
	}
	return tap.Action{Kind: kind, X: x, Y: y, Button: toMouseButton(a.Button)}, nil
}

func convertArgValue(v DslValue) tap.ArgValue {
	switch v.Kind {
	case DslInt:
		return tap.NumberArg(float64(v.Int))
	case DslFloat:
		return tap.NumberArg(v.Float)
	case DslBool:
		return tap.BoolArg(v.Bool)
	default:
		return tap.StringArg(v.Str)
	}
}

func convertCondition(c *DslCondition) (*tap.Condition, error) {
	if c == nil {
		cond := tap.AlwaysCondition()
		return &cond, nil
	}
	switch c.Kind {
	case DslCondWindowFocused:
		cond := tap.Condition{Kind: tap.CondWindowFocused, Title: c.Title, Process: c.Process}
		return &cond, nil
	case DslCondWindowExists:
		cond := tap.Condition{Kind: tap.CondWindowExists, Title: c.Title, Process: c.Process}
		return &cond, nil
	case DslCondPixelColor:
		color, err := parseHexColor(c.Color)
		if err != nil {
			return nil, err
		}
		cond := tap.Condition{Kind: tap.CondPixelColor, X: c.X, Y: c.Y, Target: color, Tolerance: c.Tolerance}
		return &cond, nil
	case DslCondCounter:
		op, err := parseCompareOp(c.Op)
		if err != nil {
			return nil, err
		}
		cond := tap.Condition{Kind: tap.CondCounter, CounterKey: c.CounterKey, Op: op, Value: c.Value}
		return &cond, nil
	case DslCondAlways:
		cond := tap.AlwaysCondition()
		return &cond, nil
	case DslCondNever:
		cond := tap.NeverCondition()
		return &cond, nil
	case DslCondAnd:
		children, err := convertConditionList(c.Children)
		if err != nil {
			return nil, err
		}
		cond := tap.AndCondition(children...)
		return &cond, nil
	case DslCondOr:
		children, err := convertConditionList(c.Children)
		if err != nil {
			return nil, err
		}
		cond := tap.OrCondition(children...)
		return &cond, nil
	case DslCondNot:
		if len(c.Children) == 0 {
			cond := tap.NeverCondition()
			return &cond, nil
		}
		child, err := convertCondition(&c.Children[0])
		if err != nil {
			return nil, err
		}
		cond := tap.NotCondition(*child)
		return &cond, nil
	default:
		return nil, tap.NewError(tap.KindValidation, "unknown condition kind: "+string(c.Kind), nil)
	}
}

func convertConditionList(in []DslCondition) ([]tap.Condition, error) {
	out := make([]tap.Condition, 0, len(in))
	for i := range in {
		c, err := convertCondition(&in[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func parseHexColor(s string) (tap.Color, error) {
	if !isValidHexColor(s) {
		return tap.Color{}, tap.NewError(tap.KindValidation, "color must be in #RRGGBB format: "+s, nil)
	}
	r, _ := strconv.ParseUint(s[1:3], 16, 8)
	g, _ := strconv.ParseUint(s[3:5], 16, 8)
	b, _ := strconv.ParseUint(s[5:7], 16, 8)
	return tap.Color{R: uint8(r), G: uint8(g), B: uint8(b)}, nil
}

func parseCompareOp(op string) (tap.CompareOp, error) {
	switch op {
	case "==":
		return tap.CompareEq, nil
	case "!=":
		return tap.CompareNe, nil
	case "<":
		return tap.CompareLt, nil
	case "<=":
		return tap.CompareLe, nil
	case ">":
		return tap.CompareGt, nil
	case ">=":
		return tap.CompareGe, nil
	default:
		return 0, tap.NewError(tap.KindValidation, "invalid comparison operator: "+op, nil)
	}
}
