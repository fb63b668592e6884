// Package expr evaluates scalar expressions and resolves "{{ ... }}"
// templates against a variable/counter scope, backed by a sandboxed Lua
// interpreter (github.com/yuin/gopher-lua) restricted to the base,
// string, and math libraries. Counters and variables are injected as Lua
// globals before each evaluation; nothing else from the host process is
// reachable from expression code.
package expr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Limits bounds what a single evaluation may do, mirroring the
// original's sandbox settings so a malformed or adversarial expression
// cannot hang or exhaust memory on the host.
//
// MaxArrayLength and MaxMapSize exist for interface parity with the
// original Rhai-based engine's configuration shape, but have no
// enforcement point here: expressions in this DSL only ever produce a
// scalar (C()/V() return numbers, strings, or booleans), and the
// grammar an expression is parsed from never constructs a Lua table,
// so array/map construction is not a reachable code path.
type Limits struct {
	MaxCallLevels  int
	MaxOperations  int
	MaxStringSize  int
	MaxArrayLength int
	MaxMapSize     int
}

func DefaultLimits() Limits {
	return Limits{
		MaxCallLevels:  32,
		MaxOperations:  10000,
		MaxStringSize:  4096,
		MaxArrayLength: 1000,
		MaxMapSize:     100,
	}
}

// operationBudget converts MaxOperations into a wall-clock deadline.
// gopher-lua's public API has no per-instruction counter hook to bind an
// exact operation count to, but LState.SetContext makes the VM check a
// context deadline at each instruction step, which is enough to stop a
// runaway loop (e.g. "while true do end") from hanging the calling
// goroutine indefinitely. perOpBudget is deliberately generous so this
// never trips for a legitimate expression; its purpose is the hang, not
// precise operation accounting.
const perOpBudget = 2 * time.Microsecond
const minOperationBudget = 50 * time.Millisecond

func operationBudget(maxOperations int) time.Duration {
	d := time.Duration(maxOperations) * perOpBudget
	if d < minOperationBudget {
		return minOperationBudget
	}
	return d
}

// Scope supplies the counter/variable lookups an expression may reach
// through the bound V()/C() functions (see bindScope).
type Scope interface {
	Counter(key string) int32
	VariableString(key string) (string, bool)
}

// Engine evaluates expressions against a Scope under Limits.
type Engine struct {
	limits Limits
}

func NewEngine(limits Limits) *Engine { return &Engine{limits: limits} }

// Evaluate runs expr as a Lua chunk returning a single value, with scope
// variables and counters reachable through C()/V(), and returns the
// resulting Lua value unconverted; EvaluateToInt32, EvaluateToString and
// EvaluateToBool coerce it.
func (e *Engine) Evaluate(expression string, scope Scope) (lua.LValue, error) {
	if len(expression) > e.limits.MaxStringSize {
		return nil, fmt.Errorf("expression: source exceeds %d bytes", e.limits.MaxStringSize)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true, CallStackSize: e.limits.MaxCallLevels})
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), operationBudget(e.limits.MaxOperations))
	defer cancel()
	L.SetContext(ctx)

	for _, pair := range []struct {
		n string
		f lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(pair.f))
		L.Push(lua.LString(pair.n))
		if err := L.PCall(1, 0, nil); err != nil {
			return nil, fmt.Errorf("expression: sandbox init: %w", err)
		}
	}
	removeUnsafeGlobals(L)

	bindScope(L, scope)

	chunk := "return (" + expression + ")"
	fn, err := L.LoadString(chunk)
	if err != nil {
		return nil, fmt.Errorf("expression: %w", err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("expression: exceeded operation budget (MaxOperations=%d): %w", e.limits.MaxOperations, ctx.Err())
		}
		return nil, fmt.Errorf("expression: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// removeUnsafeGlobals strips the handful of base-library entries that
// reach outside the sandbox (file/io-adjacent helpers, loadstring, etc.)
// even though only base/string/math were ever opened.
func removeUnsafeGlobals(L *lua.LState) {
	for _, name := range []string{"dofile", "loadfile", "load", "require", "collectgarbage"} {
		L.SetGlobal(name, lua.LNil)
	}
}

// bindScope exposes C(name) and V(name) to expression code, the only way
// a sandboxed script reaches outside its own Lua state. C always
// returns a number (0 for an unset counter); V returns nil for an
// unknown variable, which string/math ops on it will then reject, same
// as a real type error would.
func bindScope(L *lua.LState, scope Scope) {
	if scope == nil {
		scope = noopScope{}
	}
	L.SetGlobal("C", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(lua.LNumber(scope.Counter(name)))
		return 1
	}))
	L.SetGlobal("V", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if s, ok := scope.VariableString(name); ok {
			if n, err := strconv.ParseFloat(s, 64); err == nil {
				L.Push(lua.LNumber(n))
				return 1
			}
			L.Push(lua.LString(s))
			return 1
		}
		L.Push(lua.LNil)
		return 1
	}))
}

type noopScope struct{}

func (noopScope) Counter(string) int32                { return 0 }
func (noopScope) VariableString(string) (string, bool) { return "", false }

// EvaluateToInt32 evaluates expression and coerces the result to int32.
func (e *Engine) EvaluateToInt32(expression string, scope Scope) (int32, error) {
	v, err := e.Evaluate(expression, scope)
	if err != nil {
		return 0, err
	}
	switch val := v.(type) {
	case lua.LNumber:
		return int32(val), nil
	case lua.LString:
		n, err := strconv.ParseInt(strings.TrimSpace(string(val)), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("expression: result %q is not an integer", string(val))
		}
		return int32(n), nil
	default:
		return 0, fmt.Errorf("expression: result is not a number (%s)", v.Type())
	}
}

// EvaluateToString evaluates expression and renders its result as text.
func (e *Engine) EvaluateToString(expression string, scope Scope) (string, error) {
	v, err := e.Evaluate(expression, scope)
	if err != nil {
		return "", err
	}
	return luaToString(v), nil
}

// EvaluateToBool evaluates expression and coerces the result to bool,
// accepting the string forms true/yes/1 and false/no/0 case-insensitively
// in addition to native Lua booleans and numbers.
func (e *Engine) EvaluateToBool(expression string, scope Scope) (bool, error) {
	v, err := e.Evaluate(expression, scope)
	if err != nil {
		return false, err
	}
	switch val := v.(type) {
	case lua.LBool:
		return bool(val), nil
	case lua.LNumber:
		return val != 0, nil
	case lua.LString:
		switch strings.ToLower(strings.TrimSpace(string(val))) {
		case "true", "yes", "1":
			return true, nil
		case "false", "no", "0":
			return false, nil
		}
		return false, fmt.Errorf("expression: result %q is not a recognized boolean", string(val))
	default:
		return false, fmt.Errorf("expression: result is not a boolean (%s)", v.Type())
	}
}

func luaToString(v lua.LValue) string {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case lua.LBool:
		return strconv.FormatBool(bool(val))
	default:
		return v.String()
	}
}

// IsSimpleIdentifier reports whether s is a bare Lua identifier
// (letters, digits, underscore; not starting with a digit), used to
// short-circuit template resolution straight to a scope lookup instead
// of invoking the interpreter for the common "{{ name }}" case.
func IsSimpleIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
