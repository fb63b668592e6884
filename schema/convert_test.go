package schema

import (
	"testing"

	"github.com/inputtap/tap"
)

func TestToProfileClickAction(t *testing.T) {
	p := minimalValidProfile()
	profile, err := ToProfile(p)
	if err != nil {
		t.Fatalf("ToProfile: %v", err)
	}
	if profile.Timeline.Len() != 1 {
		t.Fatalf("Timeline.Len() = %d, want 1", profile.Timeline.Len())
	}
	a := profile.Timeline.Actions[0].Action
	if a.Kind != tap.ActionClick || a.X != 10 || a.Y != 20 {
		t.Errorf("converted action = %+v, want Click(10,20)", a)
	}
}

func TestToProfileRepeatForever(t *testing.T) {
	p := minimalValidProfile()
	p.Run.Repeat = 0
	profile, err := ToProfile(p)
	if err != nil {
		t.Fatalf("ToProfile: %v", err)
	}
	if !profile.Run.Repeat.Forever {
		t.Error("repeat: 0 should convert to RepeatForever")
	}
}

func TestToProfileRepeatTimes(t *testing.T) {
	p := minimalValidProfile()
	p.Run.Repeat = 5
	profile, err := ToProfile(p)
	if err != nil {
		t.Fatalf("ToProfile: %v", err)
	}
	if profile.Run.Repeat.Forever || profile.Run.Repeat.Times != 5 {
		t.Errorf("Run.Repeat = %+v, want Times(5)", profile.Run.Repeat)
	}
}

func TestToProfileVariableRefCoordinate(t *testing.T) {
	p := minimalValidProfile()
	def := DslValue{Kind: DslInt, Int: 42}
	p.Variables = map[string]VariableDefinition{
		"offset": {Type: VarTypeNumber, Default: &def},
	}
	p.Timeline[0].Action.X = DslValue{Kind: DslString, Str: "{{ offset }}"}

	profile, err := ToProfile(p)
	if err != nil {
		t.Fatalf("ToProfile: %v", err)
	}
	if x := profile.Timeline.Actions[0].Action.X; x != 42 {
		t.Errorf("resolved X = %d, want 42", x)
	}
}

func TestToProfileBooleanCoordinateRejected(t *testing.T) {
	p := minimalValidProfile()
	p.Timeline[0].Action.X = DslValue{Kind: DslBool, Bool: true}
	if _, err := ToProfile(p); err == nil {
		t.Fatal("expected an error converting a boolean coordinate")
	}
}

func TestCounterValueExprLiteral(t *testing.T) {
	expr, err := counterValueExpr(DslValue{Kind: DslInt, Int: 7})
	if err != nil {
		t.Fatalf("counterValueExpr: %v", err)
	}
	if expr != "7" {
		t.Errorf("expr = %q, want 7", expr)
	}
}

func TestCounterValueExprBraceStripping(t *testing.T) {
	expr, err := counterValueExpr(DslValue{Kind: DslString, Str: "{{ C('score') + 1 }}"})
	if err != nil {
		t.Fatalf("counterValueExpr: %v", err)
	}
	if expr != "C('score') + 1" {
		t.Errorf("expr = %q, want the braces stripped", expr)
	}
}

func TestCounterValueExprBooleanRejected(t *testing.T) {
	if _, err := counterValueExpr(DslValue{Kind: DslBool, Bool: false}); err == nil {
		t.Fatal("expected an error for a boolean set_counter value")
	}
}

func TestConvertConditionAlwaysOnNil(t *testing.T) {
	cond, err := convertCondition(nil)
	if err != nil {
		t.Fatalf("convertCondition(nil): %v", err)
	}
	if cond.Kind != tap.CondAlways {
		t.Errorf("nil condition converts to %v, want CondAlways", cond.Kind)
	}
}

func TestConvertConditionAndOr(t *testing.T) {
	dc := DslCondition{
		Kind: DslCondAnd,
		Children: []DslCondition{
			{Kind: DslCondAlways},
			{Kind: DslCondCounter, CounterKey: "lives", Op: ">", Value: 0},
		},
	}
	cond, err := convertCondition(&dc)
	if err != nil {
		t.Fatalf("convertCondition: %v", err)
	}
	if cond.Kind != tap.CondAnd || len(cond.Children) != 2 {
		t.Fatalf("converted = %+v, want And with 2 children", cond)
	}
	if cond.Children[1].Op != tap.CompareGt {
		t.Errorf("nested op = %v, want CompareGt", cond.Children[1].Op)
	}
}

func TestConvertConditionPixelColorParsesHex(t *testing.T) {
	dc := DslCondition{Kind: DslCondPixelColor, X: 3, Y: 4, Color: "#112233", Tolerance: 5}
	cond, err := convertCondition(&dc)
	if err != nil {
		t.Fatalf("convertCondition: %v", err)
	}
	if cond.Target.R != 0x11 || cond.Target.G != 0x22 || cond.Target.B != 0x33 {
		t.Errorf("Target = %+v, want (0x11,0x22,0x33)", cond.Target)
	}
}

func TestConvertConditionInvalidColorErrors(t *testing.T) {
	dc := DslCondition{Kind: DslCondPixelColor, Color: "not-a-color"}
	if _, err := convertCondition(&dc); err == nil {
		t.Fatal("expected an error for an invalid hex color")
	}
}

func TestConvertConditionInvalidOpErrors(t *testing.T) {
	dc := DslCondition{Kind: DslCondCounter, CounterKey: "k", Op: "~="}
	if _, err := convertCondition(&dc); err == nil {
		t.Fatal("expected an error for an invalid compare op")
	}
}

func TestFromProfileRoundTripsAction(t *testing.T) {
	profile := tap.Profile{
		Name: "round-trip",
		Timeline: tap.NewTimeline([]tap.TimedAction{
			{AtMs: 0, Enabled: true, Action: tap.Action{Kind: tap.ActionClick, X: 1, Y: 2, Button: tap.ButtonRight}},
		}),
		Run: tap.RunConfig{Speed: 1, Repeat: tap.RepeatTimes(3)},
	}
	dsl := FromProfile(profile)
	if dsl.Run.Repeat != 3 {
		t.Errorf("Run.Repeat = %d, want 3", dsl.Run.Repeat)
	}
	a := dsl.Timeline[0].Action
	if a.Kind != DslActionClick || a.Button != DslButtonRight {
		t.Errorf("converted action = %+v, want click/right", a)
	}
	x, ok := a.X.AsInt32()
	if !ok || x != 1 {
		t.Errorf("X = %v (ok=%v), want 1", x, ok)
	}
}

func TestFromProfileForeverRepeatEncodesAsZero(t *testing.T) {
	profile := tap.Profile{
		Name:     "forever",
		Timeline: tap.NewTimeline(nil),
		Run:      tap.RunConfig{Repeat: tap.RepeatForever()},
	}
	dsl := FromProfile(profile)
	if dsl.Run.Repeat != 0 {
		t.Errorf("Run.Repeat = %d, want 0 (forever)", dsl.Run.Repeat)
	}
}
