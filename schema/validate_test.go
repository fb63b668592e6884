package schema

import "testing"

func hasError(errs []ValidationError, path string) bool {
	for _, e := range errs {
		if e.Path == path {
			return true
		}
	}
	return false
}

func minimalValidProfile() DslProfile {
	return DslProfile{
		Name: "test",
		Run:  DefaultDslRunConfig(),
		Timeline: []DslTimedAction{
			{AtMs: 0, Enabled: true, Action: DslAction{
				Kind:   DslActionClick,
				X:      DslValue{Kind: DslInt, Int: 10},
				Y:      DslValue{Kind: DslInt, Int: 20},
				Button: DslButtonLeft,
			}},
		},
	}
}

func TestValidateEmptyName(t *testing.T) {
	p := minimalValidProfile()
	p.Name = ""
	errs := Validate(p)
	if !hasError(errs, "name") {
		t.Fatalf("expected a name error, got %v", errs)
	}
}

func TestValidateEmptyTimeline(t *testing.T) {
	p := minimalValidProfile()
	p.Timeline = nil
	errs := Validate(p)
	if !hasError(errs, "timeline") {
		t.Fatalf("expected a timeline error, got %v", errs)
	}
}

func TestValidateInvalidSpeed(t *testing.T) {
	for _, speed := range []float32{0, -1, 101} {
		p := minimalValidProfile()
		p.Run.Speed = speed
		errs := Validate(p)
		if !hasError(errs, "run.speed") {
			t.Fatalf("speed %v: expected a run.speed error, got %v", speed, errs)
		}
	}
}

func TestValidateValidSpeed(t *testing.T) {
	for _, speed := range []float32{0.1, 1, 50, 100} {
		p := minimalValidProfile()
		p.Run.Speed = speed
		errs := Validate(p)
		if hasError(errs, "run.speed") {
			t.Fatalf("speed %v: unexpected run.speed error: %v", speed, errs)
		}
	}
}

func TestValidateHexColor(t *testing.T) {
	cases := []struct {
		color string
		valid bool
	}{
		{"#FF0000", true},
		{"#ff0000", true},
		{"#abc123", true},
		{"FF0000", false},
		{"#FF00", false},
		{"#GG0000", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isValidHexColor(tc.color); got != tc.valid {
			t.Errorf("isValidHexColor(%q) = %v, want %v", tc.color, got, tc.valid)
		}
	}
}

func TestValidateIdentifier(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"counter1", true},
		{"_private", true},
		{"CamelCase", true},
		{"1leading", false},
		{"has space", false},
		{"has-dash", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isValidIdentifier(tc.name); got != tc.valid {
			t.Errorf("isValidIdentifier(%q) = %v, want %v", tc.name, got, tc.valid)
		}
	}
}

func TestValidateCompareOp(t *testing.T) {
	for _, op := range []string{"==", "!=", "<", "<=", ">", ">="} {
		if !isValidCompareOp(op) {
			t.Errorf("isValidCompareOp(%q) = false, want true", op)
		}
	}
	for _, op := range []string{"=", "<>", "eq", ""} {
		if isValidCompareOp(op) {
			t.Errorf("isValidCompareOp(%q) = true, want false", op)
		}
	}
}

func TestValidateCoordinateOutOfRange(t *testing.T) {
	p := minimalValidProfile()
	p.Timeline[0].Action.X = DslValue{Kind: DslInt, Int: 999999}
	errs := Validate(p)
	if !hasError(errs, "timeline[0].action.x") {
		t.Fatalf("expected an out-of-range coordinate error, got %v", errs)
	}
}

func TestValidateCoordinateVariableRefSkipsRangeCheck(t *testing.T) {
	p := minimalValidProfile()
	p.Timeline[0].Action.X = DslValue{Kind: DslString, Str: "{{ huge_offset }}"}
	errs := Validate(p)
	if hasError(errs, "timeline[0].action.x") {
		t.Fatalf("variable-ref coordinate should skip range check, got %v", errs)
	}
}

func TestValidateCoordinateBooleanRejected(t *testing.T) {
	p := minimalValidProfile()
	p.Timeline[0].Action.X = DslValue{Kind: DslBool, Bool: true}
	errs := Validate(p)
	if !hasError(errs, "timeline[0].action.x") {
		t.Fatalf("expected boolean coordinate to be rejected, got %v", errs)
	}
}

func TestValidateWaitUntilRequiresPositivePollInterval(t *testing.T) {
	p := minimalValidProfile()
	cond := DslCondition{Kind: DslCondAlways}
	p.Timeline[0].Action = DslAction{Kind: DslActionWaitUntil, Condition: &cond, PollIntervalMs: 0}
	errs := Validate(p)
	if !hasError(errs, "timeline[0].action.poll_interval_ms") {
		t.Fatalf("expected a poll interval error, got %v", errs)
	}
}

func TestValidateCounterConditionRequiresKeyAndOp(t *testing.T) {
	p := minimalValidProfile()
	cond := DslCondition{Kind: DslCondCounter, CounterKey: "", Op: "bogus", Value: 1}
	p.Timeline[0].Action = DslAction{Kind: DslActionWaitUntil, Condition: &cond, PollIntervalMs: 100}
	errs := Validate(p)
	if !hasError(errs, "timeline[0].action.condition.key") {
		t.Fatalf("expected a counter key error, got %v", errs)
	}
	if !hasError(errs, "timeline[0].action.condition.op") {
		t.Fatalf("expected a compare op error, got %v", errs)
	}
}

func TestValidateNestedConditional(t *testing.T) {
	p := minimalValidProfile()
	innerCond := DslCondition{Kind: DslCondPixelColor, X: 1, Y: 1, Color: "not-a-color"}
	p.Timeline[0].Action = DslAction{
		Kind:       DslActionConditional,
		Condition:  &DslCondition{Kind: DslCondAlways},
		ThenAction: &DslAction{Kind: DslActionWaitUntil, Condition: &innerCond, PollIntervalMs: 100},
	}
	errs := Validate(p)
	if !hasError(errs, "timeline[0].action.then_action.condition.color") {
		t.Fatalf("expected the nested condition error to surface, got %v", errs)
	}
}

func TestValidateVariableNameMustBeIdentifier(t *testing.T) {
	p := minimalValidProfile()
	p.Variables = map[string]VariableDefinition{
		"bad name": {Type: VarTypeString},
	}
	errs := Validate(p)
	if !hasError(errs, "variables.bad name") {
		t.Fatalf("expected a variable-name error, got %v", errs)
	}
}
