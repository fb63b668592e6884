package tap

import (
	"strconv"
	"strings"

	"github.com/inputtap/tap/expr"
)

// storeScope adapts a VariableStore to expr.Scope.
type storeScope struct {
	store *VariableStore
}

func (s storeScope) Counter(key string) int32 { return s.store.GetCounter(key) }

func (s storeScope) VariableString(key string) (string, bool) {
	v, ok := s.store.GetVar(key)
	if !ok {
		return "", false
	}
	return v.AsString(), true
}

var defaultExprEngine = expr.NewEngine(expr.DefaultLimits())

// ResolveTemplate expands every "{{ ... }}" span in template against
// store. A bare identifier inside the braces ("{{ my_var }}") short-
// circuits straight to a variable lookup, falling back to the counter
// namespace; anything else is handed to the expression engine and
// stringified. An unterminated "{{" is a SyntaxError.
func ResolveTemplate(template string, store *VariableStore) (string, error) {
	var out strings.Builder
	rest := template
	for {
		start := strings.Index(rest, "{{")
		if start < 0 {
			out.WriteString(rest)
			return out.String(), nil
		}
		out.WriteString(rest[:start])
		afterOpen := rest[start+2:]
		end := strings.Index(afterOpen, "}}")
		if end < 0 {
			return "", NewError(KindSyntax, "unterminated {{ in template", nil)
		}
		inner := strings.TrimSpace(afterOpen[:end])
		resolved, err := resolveExpressionSpan(inner, store)
		if err != nil {
			return "", err
		}
		out.WriteString(resolved)
		rest = afterOpen[end+2:]
	}
}

// resolveExpressionSpan resolves one "{{ ... }}" payload. A bare
// identifier short-circuits to a variable lookup, falling back to the
// counter namespace (defaulting to 0) when no variable of that name is
// set — this avoids spinning up the Lua interpreter for the overwhelmingly
// common "{{ my_var }}" case.
func resolveExpressionSpan(inner string, store *VariableStore) (string, error) {
	if expr.IsSimpleIdentifier(inner) {
		if v, ok := store.GetVar(inner); ok {
			return v.AsString(), nil
		}
		return strconv.FormatInt(int64(store.GetCounter(inner)), 10), nil
	}
	result, err := defaultExprEngine.EvaluateToString(inner, storeScope{store: store})
	if err != nil {
		return "", NewError(KindEvaluation, "template expression failed", err)
	}
	return result, nil
}
