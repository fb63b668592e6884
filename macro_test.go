package tap

import "testing"

func TestCallStackDetectsCycle(t *testing.T) {
	c := &callStack{}
	if err := c.push("a"); err != nil {
		t.Fatalf("push(a): %v", err)
	}
	if err := c.push("b"); err != nil {
		t.Fatalf("push(b): %v", err)
	}
	err := c.push("a")
	if err == nil {
		t.Fatal("expected a cycle error pushing a again")
	}
	tapErr, ok := err.(*Error)
	if !ok || tapErr.Kind != KindCircularCall {
		t.Errorf("error = %v, want a KindCircularCall *Error", err)
	}
}

func TestCallStackEnforcesMaxDepth(t *testing.T) {
	c := &callStack{}
	for i := 0; i < MaxCallDepth; i++ {
		if err := c.push(string(rune('a' + i))); err != nil {
			t.Fatalf("push #%d: %v", i, err)
		}
	}
	err := c.push("overflow")
	if err == nil {
		t.Fatal("expected a max-depth error")
	}
	tapErr, ok := err.(*Error)
	if !ok || tapErr.Kind != KindMaxDepthExceeded {
		t.Errorf("error = %v, want a KindMaxDepthExceeded *Error", err)
	}
}

func TestCallStackPopAllowsRepush(t *testing.T) {
	c := &callStack{}
	if err := c.push("a"); err != nil {
		t.Fatalf("push(a): %v", err)
	}
	c.pop()
	if err := c.push("a"); err != nil {
		t.Fatalf("push(a) after pop should succeed: %v", err)
	}
}

func TestResolveCallArgsLiterals(t *testing.T) {
	parent := NewVariableStore()
	args := map[string]ArgValue{
		"count": NumberArg(3),
		"flag":  BoolArg(true),
		"label": StringArg("plain text"),
	}
	resolved, err := ResolveCallArgs(args, parent)
	if err != nil {
		t.Fatalf("ResolveCallArgs: %v", err)
	}
	if resolved["count"].Num != 3 {
		t.Errorf("count = %v, want 3", resolved["count"].Num)
	}
	if !resolved["flag"].Bool {
		t.Errorf("flag = %v, want true", resolved["flag"].Bool)
	}
	if resolved["label"].Str != "plain text" {
		t.Errorf("label = %q, want unchanged", resolved["label"].Str)
	}
}

func TestResolveCallArgsFullTemplateSpanResolvesAgainstParent(t *testing.T) {
	parent := NewVariableStore()
	parent.SetVar("name", NewStringValue("caller"))
	args := map[string]ArgValue{"who": StringArg("{{ name }}")}

	resolved, err := ResolveCallArgs(args, parent)
	if err != nil {
		t.Fatalf("ResolveCallArgs: %v", err)
	}
	if resolved["who"].Str != "caller" {
		t.Errorf("who = %q, want caller", resolved["who"].Str)
	}
}

func TestResolveCallArgsPartialSpanIsLiteral(t *testing.T) {
	parent := NewVariableStore()
	parent.SetVar("name", NewStringValue("caller"))
	args := map[string]ArgValue{"msg": StringArg("hi {{ name }}")}

	resolved, err := ResolveCallArgs(args, parent)
	if err != nil {
		t.Fatalf("ResolveCallArgs: %v", err)
	}
	if resolved["msg"].Str != "hi {{ name }}" {
		t.Errorf("msg = %q, want the literal left untouched", resolved["msg"].Str)
	}
}

func TestNewChildStoreIsolatesFromParent(t *testing.T) {
	parent := NewVariableStore()
	parent.SetVar("shared", NewStringValue("parent-value"))

	child := NewChildStore(parent, map[string]VariableValue{"def": NewNumberValue(1)}, map[string]VariableValue{"arg": NewBoolValue(true)})

	if v, ok := child.GetVar("shared"); !ok || v.Str != "parent-value" {
		t.Errorf("child should inherit parent variables: got %+v (ok=%v)", v, ok)
	}
	child.SetVar("shared", NewStringValue("child-value"))
	if v, _ := parent.GetVar("shared"); v.Str != "parent-value" {
		t.Errorf("child mutation leaked into parent: got %q", v.Str)
	}
	if v, ok := child.GetVar("def"); !ok || v.Num != 1 {
		t.Errorf("child should have its own defaults seeded: got %+v (ok=%v)", v, ok)
	}
	if v, ok := child.GetVar("arg"); !ok || !v.Bool {
		t.Errorf("child should have resolved args overlaid: got %+v (ok=%v)", v, ok)
	}
}
