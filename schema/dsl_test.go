package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestParseProfileMinimal(t *testing.T) {
	data := []byte(`
name: click-test
timeline:
  - at_ms: 0
    action:
      click:
        x: 100
        y: 200
`)
	p, err := ParseProfile(data)
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if p.Name != "click-test" {
		t.Errorf("Name = %q, want click-test", p.Name)
	}
	if p.Version != DSLVersion {
		t.Errorf("Version = %q, want default %q", p.Version, DSLVersion)
	}
	if len(p.Timeline) != 1 {
		t.Fatalf("Timeline len = %d, want 1", len(p.Timeline))
	}
	ta := p.Timeline[0]
	if !ta.Enabled {
		t.Error("Enabled should default to true when omitted")
	}
	if ta.Action.Kind != DslActionClick {
		t.Errorf("Action.Kind = %v, want click", ta.Action.Kind)
	}
	if ta.Action.Button != DslButtonLeft {
		t.Errorf("Button should default to left, got %v", ta.Action.Button)
	}
	x, ok := ta.Action.X.AsInt32()
	if !ok || x != 100 {
		t.Errorf("X = %v (ok=%v), want 100", x, ok)
	}
}

func TestParseProfileRunDefaults(t *testing.T) {
	data := []byte(`
name: defaults-test
timeline:
  - at_ms: 0
    action:
      wait:
        ms: 10
`)
	p, err := ParseProfile(data)
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if p.Run.Repeat != 1 {
		t.Errorf("Run.Repeat = %d, want 1", p.Run.Repeat)
	}
	if p.Run.Speed != 1.0 {
		t.Errorf("Run.Speed = %v, want 1.0", p.Run.Speed)
	}
}

func TestParseProfileTimedActionDisabled(t *testing.T) {
	data := []byte(`
name: disabled-test
timeline:
  - at_ms: 0
    enabled: false
    action:
      key_tap:
        key: enter
`)
	p, err := ParseProfile(data)
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if p.Timeline[0].Enabled {
		t.Error("explicit enabled: false should stick")
	}
}

func TestDslValueYAMLRoundTrip(t *testing.T) {
	cases := []DslValue{
		{Kind: DslInt, Int: 42},
		{Kind: DslFloat, Float: 3.5},
		{Kind: DslBool, Bool: true},
		{Kind: DslString, Str: "{{ my_var }}"},
	}
	for _, v := range cases {
		out, err := yaml.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", v, err)
		}
		var decoded DslValue
		if err := yaml.Unmarshal(out, &decoded); err != nil {
			t.Fatalf("Unmarshal(%v): %v", v, err)
		}
		if diff := cmp.Diff(v, decoded); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestDslValueIsVariableRef(t *testing.T) {
	cases := []struct {
		v    DslValue
		want bool
	}{
		{DslValue{Kind: DslString, Str: "{{ x }}"}, true},
		{DslValue{Kind: DslString, Str: "plain"}, false},
		{DslValue{Kind: DslInt, Int: 5}, false},
	}
	for _, tc := range cases {
		if got := tc.v.IsVariableRef(); got != tc.want {
			t.Errorf("IsVariableRef(%+v) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestActionYAMLRoundTrip(t *testing.T) {
	actions := []DslAction{
		{Kind: DslActionClick, X: DslValue{Kind: DslInt, Int: 5}, Y: DslValue{Kind: DslInt, Int: 6}, Button: DslButtonRight},
		{Kind: DslActionWait, Ms: 250},
		{Kind: DslActionExit},
		{Kind: DslActionCallMacro, MacroName: "sub", MacroArgs: map[string]DslValue{"n": {Kind: DslInt, Int: 3}}},
	}
	for _, a := range actions {
		out, err := yaml.Marshal(a)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", a.Kind, err)
		}
		var decoded DslAction
		if err := yaml.Unmarshal(out, &decoded); err != nil {
			t.Fatalf("Unmarshal(%v): %v", a.Kind, err)
		}
		if diff := cmp.Diff(a, decoded); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestConditionYAMLRoundTrip(t *testing.T) {
	conditions := []DslCondition{
		{Kind: DslCondAlways},
		{Kind: DslCondWindowFocused, Title: "Notepad"},
		{Kind: DslCondPixelColor, X: 1, Y: 2, Color: "#112233", Tolerance: 5},
		{Kind: DslCondAnd, Children: []DslCondition{{Kind: DslCondAlways}, {Kind: DslCondNever}}},
	}
	for _, c := range conditions {
		out, err := yaml.Marshal(c)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", c.Kind, err)
		}
		var decoded DslCondition
		if err := yaml.Unmarshal(out, &decoded); err != nil {
			t.Fatalf("Unmarshal(%v): %v", c.Kind, err)
		}
		if diff := cmp.Diff(c, decoded); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestParseProfileUnknownActionKind(t *testing.T) {
	data := []byte(`
name: bad-action
timeline:
  - at_ms: 0
    action:
      nonsense: {}
`)
	if _, err := ParseProfile(data); err == nil {
		t.Fatal("expected an error for an unknown action kind")
	}
}
