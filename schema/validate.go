package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError pins one validation failure to the field that caused
// it. Validate works on the decoded structs and never sets Line, so it
// is always nil in the errors Validate returns.
type ValidationError struct {
	Path    string
	Message string
	Line    *int
}

func (e ValidationError) String() string {
	if e.Line != nil {
		return fmt.Sprintf("line %d: %s - %s", *e.Line, e.Path, e.Message)
	}
	return fmt.Sprintf("%s - %s", e.Path, e.Message)
}

func verr(path, message string) ValidationError {
	return ValidationError{Path: path, Message: message}
}

// Validate checks a DslProfile for the structural rules a YAML decode
// alone can't enforce: non-empty name and timeline, valid identifiers,
// sane speed/coordinate ranges, and condition/action field requirements.
// It returns every violation found rather than stopping at the first.
func Validate(p DslProfile) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, verr("name", "Profile name cannot be empty"))
	}
	if len(p.Timeline) == 0 {
		errs = append(errs, verr("timeline", "Timeline must have at least one action"))
	}

	for i, ta := range p.Timeline {
		validateTimedAction(ta, fmt.Sprintf("timeline[%d]", i), &errs)
	}

	validateRunConfig(p.Run, "run", &errs)

	for name := range p.Variables {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, verr(fmt.Sprintf("variables.%s", name), "Variable name cannot be empty"))
			continue
		}
		if !isValidIdentifier(name) {
			errs = append(errs, verr(fmt.Sprintf("variables.%s", name),
				"Variable name must be a valid identifier (alphanumeric and underscore)"))
		}
	}

	return errs
}

func validateTimedAction(ta DslTimedAction, path string, errs *[]ValidationError) {
	validateAction(ta.Action, path+".action", errs)
}

func validateAction(a DslAction, path string, errs *[]ValidationError) {
	switch a.Kind {
	case DslActionClick, DslActionDoubleClick, DslActionMouseDown, DslActionMouseUp:
		validateCoordinate(a.X, path+".x", errs)
		validateCoordinate(a.Y, path+".y", errs)

	case DslActionMouseMove:
		validateCoordinate(a.X, path+".x", errs)
		validateCoordinate(a.Y, path+".y", errs)

	case DslActionDrag:
		validateCoordinate(a.FromX, path+".from_x", errs)
		validateCoordinate(a.FromY, path+".from_y", errs)
		validateCoordinate(a.ToX, path+".to_x", errs)
		validateCoordinate(a.ToY, path+".to_y", errs)

	case DslActionScroll:
		validateScrollDelta(a.DeltaX, path+".delta_x", errs)
		validateScrollDelta(a.DeltaY, path+".delta_y", errs)

	case DslActionKeyTap, DslActionKeyDown, DslActionKeyUp:
		if strings.TrimSpace(a.Key) == "" {
			*errs = append(*errs, verr(path+".key", "Key cannot be empty"))
		}

	case DslActionTextInput:
		// text may be empty (e.g. to clear a field)

	case DslActionWait:
		// any ms value is valid

	case DslActionWaitUntil:
		if a.Condition != nil {
			validateCondition(*a.Condition, path+".condition", errs)
		}
		if a.PollIntervalMs == 0 {
			*errs = append(*errs, verr(path+".poll_interval_ms", "Poll interval must be greater than 0"))
		}

	case DslActionConditional:
		if a.Condition != nil {
			validateCondition(*a.Condition, path+".condition", errs)
		}
		if a.ThenAction != nil {
			validateAction(*a.ThenAction, path+".then_action", errs)
		}
		if a.ElseAction != nil {
			validateAction(*a.ElseAction, path+".else_action", errs)
		}

	case DslActionSetCounter:
		if strings.TrimSpace(a.CounterKey) == "" {
			*errs = append(*errs, verr(path+".key", "Counter key cannot be empty"))
		}

	case DslActionIncrCounter, DslActionDecrCounter, DslActionResetCounter:
		if strings.TrimSpace(a.CounterKey) == "" {
			*errs = append(*errs, verr(path+".key", "Counter key cannot be empty"))
		}

	case DslActionExit:
		// no validation needed

	case DslActionCallMacro:
		if strings.TrimSpace(a.MacroName) == "" {
			*errs = append(*errs, verr(path+".name", "Macro name cannot be empty"))
		}
	}
}

func validateCondition(c DslCondition, path string, errs *[]ValidationError) {
	switch c.Kind {
	case DslCondWindowFocused:
		if c.Title == "" && c.Process == "" {
			*errs = append(*errs, verr(path, "WindowFocused requires either title or process"))
		}
	case DslCondWindowExists:
		if c.Title == "" && c.Process == "" {
			*errs = append(*errs, verr(path, "WindowExists requires either title or process"))
		}
	case DslCondPixelColor:
		if !isValidHexColor(c.Color) {
			*errs = append(*errs, verr(path+".color", "Color must be in #RRGGBB format"))
		}
	case DslCondCounter:
		if strings.TrimSpace(c.CounterKey) == "" {
			*errs = append(*errs, verr(path+".key", "Counter key cannot be empty"))
		}
		if !isValidCompareOp(c.Op) {
			*errs = append(*errs, verr(path+".op", "Invalid comparison operator. Use: ==, !=, >, <, >=, <="))
		}
	case DslCondAlways, DslCondNever:
		// no validation needed
	case DslCondAnd, DslCondOr:
		for i, child := range c.Children {
			validateCondition(child, fmt.Sprintf("%s[%d]", path, i), errs)
		}
	case DslCondNot:
		if len(c.Children) > 0 {
			validateCondition(c.Children[0], path, errs)
		}
	}
}

func validateRunConfig(rc DslRunConfig, path string, errs *[]ValidationError) {
	if rc.Speed <= 0 {
		*errs = append(*errs, verr(path+".speed", "Speed must be greater than 0"))
	}
	if rc.Speed > 100 {
		*errs = append(*errs, verr(path+".speed", "Speed cannot exceed 100x"))
	}
}

func validateCoordinate(v DslValue, path string, errs *[]ValidationError) {
	if v.IsVariableRef() {
		return
	}
	switch v.Kind {
	case DslInt:
		if v.Int < -100000 || v.Int > 100000 {
			*errs = append(*errs, verr(path, "Coordinate value out of reasonable range"))
		}
	case DslFloat:
		if v.Float < -100000 || v.Float > 100000 {
			*errs = append(*errs, verr(path, "Coordinate value out of reasonable range"))
		}
	case DslString:
		if !looksNumeric(v.Str) {
			*errs = append(*errs, verr(path, "Coordinate must be a number or variable reference"))
		}
	case DslBool:
		*errs = append(*errs, verr(path, "Coordinate cannot be a boolean"))
	}
}

func validateScrollDelta(v DslValue, path string, errs *[]ValidationError) {
	if v.IsVariableRef() {
		return
	}
	switch v.Kind {
	case DslInt:
		if v.Int < -10000 || v.Int > 10000 {
			*errs = append(*errs, verr(path, "Scroll delta out of reasonable range"))
		}
	case DslFloat:
		if v.Float < -10000 || v.Float > 10000 {
			*errs = append(*errs, verr(path, "Scroll delta out of reasonable range"))
		}
	case DslString:
		if !looksNumeric(v.Str) {
			*errs = append(*errs, verr(path, "Scroll delta must be a number or variable reference"))
		}
	case DslBool:
		*errs = append(*errs, verr(path, "Scroll delta cannot be a boolean"))
	}
}

func looksNumeric(s string) bool {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		digit := r >= '0' && r <= '9'
		if i == 0 {
			if !alpha {
				return false
			}
			continue
		}
		if !alpha && !digit {
			return false
		}
	}
	return true
}

func isValidHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func isValidCompareOp(op string) bool {
	switch op {
	case "==", "!=", ">", "<", ">=", "<=":
		return true
	default:
		return false
	}
}
