package tap

import "sort"

// Timeline is the ordered sequence of timed actions executed per
// iteration. NewTimeline sorts ascending by AtMs with a stable sort so
// equal timestamps preserve insertion order (§3).
type Timeline struct {
	Actions []TimedAction
}

func NewTimeline(actions []TimedAction) Timeline {
	sorted := make([]TimedAction, len(actions))
	copy(sorted, actions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AtMs < sorted[j].AtMs
	})
	return Timeline{Actions: sorted}
}

func (t Timeline) Len() int { return len(t.Actions) }

// Repeat is the RunConfig repeat policy: a fixed number of iterations or
// forever.
type Repeat struct {
	Forever bool
	Times   uint32 // meaningful only when !Forever; must be >= 1
}

func RepeatTimes(n uint32) Repeat { return Repeat{Times: n} }
func RepeatForever() Repeat       { return Repeat{Forever: true} }

// RunConfig controls iteration count, speed scaling, and the arming
// countdown before a profile starts running.
type RunConfig struct {
	StartDelayMs uint64
	Speed        float32 // > 0, <= 100 per validation rules
	Repeat       Repeat
}

func DefaultRunConfig() RunConfig {
	return RunConfig{StartDelayMs: 0, Speed: 1.0, Repeat: RepeatTimes(1)}
}

// Profile is a named, runnable macro: timeline + run config + optional
// variable defaults. Name uniquely identifies it for CallMacro lookup.
type Profile struct {
	Name        string
	Description string
	Timeline    Timeline
	Run         RunConfig
	Variables   map[string]VariableValue
}
