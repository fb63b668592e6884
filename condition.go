package tap

// CompareOp is the relational operator used by Counter conditions.
type CompareOp int

const (
	CompareEq CompareOp = iota
	CompareNe
	CompareLt
	CompareLe
	CompareGt
	CompareGe
)

func (op CompareOp) String() string {
	switch op {
	case CompareEq:
		return "=="
	case CompareNe:
		return "!="
	case CompareLt:
		return "<"
	case CompareLe:
		return "<="
	case CompareGt:
		return ">"
	case CompareGe:
		return ">="
	default:
		return "?"
	}
}

func (op CompareOp) Apply(lhs, rhs int32) bool {
	switch op {
	case CompareEq:
		return lhs == rhs
	case CompareNe:
		return lhs != rhs
	case CompareLt:
		return lhs < rhs
	case CompareLe:
		return lhs <= rhs
	case CompareGt:
		return lhs > rhs
	case CompareGe:
		return lhs >= rhs
	default:
		return false
	}
}

// Color is an RGB pixel value matched against a summed-difference
// tolerance.
type Color struct {
	R, G, B uint8
}

// Matches reports whether the sum of the absolute R, G and B differences
// between c and other is at most tolerance.
func (c Color) Matches(other Color, tolerance uint8) bool {
	diff := channelDiff(c.R, other.R) + channelDiff(c.G, other.G) + channelDiff(c.B, other.B)
	return diff <= int(tolerance)
}

func channelDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// ConditionKind discriminates the Condition tagged variant.
type ConditionKind int

const (
	CondWindowFocused ConditionKind = iota
	CondWindowExists
	CondPixelColor
	CondCounter
	CondAlways
	CondNever
	CondAnd
	CondOr
	CondNot
)

// Condition is the tagged tree evaluated by WaitUntil and Conditional
// actions. Like Action, it is one struct with every variant's fields
// rather than an interface hierarchy.
type Condition struct {
	Kind ConditionKind

	// WindowFocused / WindowExists.
	Title   string
	Process string

	// PixelColor.
	X, Y      int
	Target    Color
	Tolerance uint8

	// Counter.
	CounterKey string
	Op         CompareOp
	Value      int32

	// And / Or: Children; Not: Children[0].
	Children []Condition
}

func AlwaysCondition() Condition { return Condition{Kind: CondAlways} }
func NeverCondition() Condition  { return Condition{Kind: CondNever} }

func AndCondition(children ...Condition) Condition {
	return Condition{Kind: CondAnd, Children: children}
}

func OrCondition(children ...Condition) Condition {
	return Condition{Kind: CondOr, Children: children}
}

func NotCondition(child Condition) Condition {
	return Condition{Kind: CondNot, Children: []Condition{child}}
}

// ConditionStatus is the three-valued evaluation outcome: a condition can
// be definitively true, definitively false, or fail to evaluate at all
// (e.g. a probe error), which is distinct from false.
type ConditionStatus int

const (
	Satisfied ConditionStatus = iota
	NotSatisfied
	ConditionError
)

// ConditionResult pairs a status with the error that produced it, when
// the status is ConditionError.
type ConditionResult struct {
	Status ConditionStatus
	Err    error
}

func satisfiedIf(ok bool) ConditionResult {
	if ok {
		return ConditionResult{Status: Satisfied}
	}
	return ConditionResult{Status: NotSatisfied}
}

func errResult(err error) ConditionResult {
	return ConditionResult{Status: ConditionError, Err: err}
}

// ConditionEvaluator supplies the platform and store lookups a Condition
// needs. Implementations are expected to be cheap to call repeatedly —
// WaitUntil polls them on an interval.
type ConditionEvaluator interface {
	WindowFocused(titleContains, processContains string) (bool, error)
	WindowExists(titleContains, processContains string) (bool, error)
	PixelAt(x, y int) (Color, error)
	Counter(key string) int32
}

// Evaluate walks the condition tree against ev, short-circuiting And on
// the first non-Satisfied result and Or on the first Satisfied result,
// and propagating ConditionError immediately out of either (§4.3).
func Evaluate(c Condition, ev ConditionEvaluator) ConditionResult {
	switch c.Kind {
	case CondAlways:
		return ConditionResult{Status: Satisfied}
	case CondNever:
		return ConditionResult{Status: NotSatisfied}
	case CondWindowFocused:
		ok, err := ev.WindowFocused(c.Title, c.Process)
		if err != nil {
			return errResult(err)
		}
		return satisfiedIf(ok)
	case CondWindowExists:
		ok, err := ev.WindowExists(c.Title, c.Process)
		if err != nil {
			return errResult(err)
		}
		return satisfiedIf(ok)
	case CondPixelColor:
		px, err := ev.PixelAt(c.X, c.Y)
		if err != nil {
			return errResult(err)
		}
		return satisfiedIf(px.Matches(c.Target, c.Tolerance))
	case CondCounter:
		return satisfiedIf(c.Op.Apply(ev.Counter(c.CounterKey), c.Value))
	case CondAnd:
		for _, child := range c.Children {
			r := Evaluate(child, ev)
			if r.Status != Satisfied {
				return r
			}
		}
		return ConditionResult{Status: Satisfied}
	case CondOr:
		for _, child := range c.Children {
			r := Evaluate(child, ev)
			if r.Status == ConditionError {
				return r
			}
			if r.Status == Satisfied {
				return r
			}
		}
		return ConditionResult{Status: NotSatisfied}
	case CondNot:
		if len(c.Children) == 0 {
			return ConditionResult{Status: NotSatisfied}
		}
		r := Evaluate(c.Children[0], ev)
		switch r.Status {
		case Satisfied:
			return ConditionResult{Status: NotSatisfied}
		case NotSatisfied:
			return ConditionResult{Status: Satisfied}
		default:
			return r
		}
	default:
		return errResult(NewError(KindEvaluation, "unknown condition kind", nil))
	}
}

// WaitUntilConfig bundles the condition, timeout, and poll interval for a
// WaitUntil action.
type WaitUntilConfig struct {
	Cond      Condition
	TimeoutMs *uint64
	PollMs    uint64
}
