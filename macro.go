package tap

import (
	"fmt"
	"strings"
)

// MaxCallDepth bounds CallMacro nesting so a profile cycle or runaway
// recursion cannot blow the stack.
const MaxCallDepth = 10

// ProfileResolver looks up a named profile for CallMacro, typically
// backed by a schema.Loader.
type ProfileResolver interface {
	ResolveProfile(name string) (Profile, error)
}

// callStack tracks the chain of profile names currently being executed,
// innermost last, to detect cycles before they recurse past MaxCallDepth.
type callStack struct {
	names []string
}

func (c *callStack) push(name string) error {
	for _, n := range c.names {
		if n == name {
			return NewError(KindCircularCall, fmt.Sprintf("macro call cycle: %s -> %s", strings.Join(c.names, " -> "), name), nil)
		}
	}
	if len(c.names) >= MaxCallDepth {
		return NewError(KindMaxDepthExceeded, fmt.Sprintf("macro call depth exceeded %d", MaxCallDepth), nil)
	}
	c.names = append(c.names, name)
	return nil
}

func (c *callStack) pop() {
	c.names = c.names[:len(c.names)-1]
}

// ResolveCallArgs turns a CallMacro action's literal MacroArgs into
// resolved VariableValues for the child store. A String arg wrapped
// end-to-end in "{{ ... }}" (the whole value, not a substring) is
// resolved against the parent store; any other string, number, or bool
// is used as a literal (§4.7 step 4).
func ResolveCallArgs(args map[string]ArgValue, parent *VariableStore) (map[string]VariableValue, error) {
	resolved := make(map[string]VariableValue, len(args))
	for key, arg := range args {
		switch arg.Kind {
		case ArgNumber:
			resolved[key] = NewNumberValue(arg.Num)
		case ArgBool:
			resolved[key] = NewBoolValue(arg.Bool)
		case ArgString:
			if isFullTemplateSpan(arg.Str) {
				inner := strings.TrimSpace(arg.Str[2 : len(arg.Str)-2])
				s, err := resolveExpressionSpan(inner, parent)
				if err != nil {
					return nil, err
				}
				resolved[key] = NewStringValue(s)
			} else {
				resolved[key] = NewStringValue(arg.Str)
			}
		default:
			return nil, NewError(KindTypeMismatch, fmt.Sprintf("unknown arg kind for %q", key), nil)
		}
	}
	return resolved, nil
}

// isFullTemplateSpan reports whether s is exactly "{{" ... "}}" with
// nothing outside the braces — a partial wrap like "x={{ y }}" is left
// as a literal string, matching the exact-full-span rule CallMacro args
// use (stricter than general template interpolation).
func isFullTemplateSpan(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "{{") && strings.HasSuffix(trimmed, "}}") && len(trimmed) >= 4 &&
		!strings.Contains(trimmed[2:len(trimmed)-2], "}}")
}

// NewChildStore derives the VariableStore for a CallMacro target: a
// clone of the parent (so the child can read but never mutate the
// caller's state), seeded with the child profile's declared variable
// defaults, then overlaid with the resolved call arguments.
func NewChildStore(parent *VariableStore, childDefaults map[string]VariableValue, resolvedArgs map[string]VariableValue) *VariableStore {
	child := parent.Clone()
	child.InitFromDefaults(childDefaults)
	child.Overlay(resolvedArgs)
	return child
}
