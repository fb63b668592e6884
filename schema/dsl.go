// Package schema implements the human-facing YAML profile format: the
// on-disk DSL, its validation rules, and a Loader that turns a named
// profile into the tap package's internal Profile.
package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DSLVersion is stamped onto profiles that don't declare their own.
const DSLVersion = "1.0"

// DslValueKind discriminates DslValue, the DSL's "number, string, or
// variable reference" field type.
type DslValueKind int

const (
	DslInt DslValueKind = iota
	DslFloat
	DslString
	DslBool
)

// DslValue is a YAML scalar that can be a literal int/float/bool or a
// string — including a "{{ var_name }}" variable reference — decoded
// according to its actual YAML tag rather than a fixed Go type, mirroring
// an untagged union.
type DslValue struct {
	Kind  DslValueKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

func (v *DslValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Tag {
	case "!!int":
		v.Kind = DslInt
		return node.Decode(&v.Int)
	case "!!float":
		v.Kind = DslFloat
		return node.Decode(&v.Float)
	case "!!bool":
		v.Kind = DslBool
		return node.Decode(&v.Bool)
	default:
		v.Kind = DslString
		return node.Decode(&v.Str)
	}
}

func (v DslValue) MarshalYAML() (interface{}, error) {
	switch v.Kind {
	case DslInt:
		return v.Int, nil
	case DslFloat:
		return v.Float, nil
	case DslBool:
		return v.Bool, nil
	default:
		return v.Str, nil
	}
}

// IsVariableRef reports whether this value is a string containing a
// "{{ ... }}" span rather than a plain literal.
func (v DslValue) IsVariableRef() bool {
	if v.Kind != DslString {
		return false
	}
	return containsToken(v.Str, "{{") && containsToken(v.Str, "}}")
}

func containsToken(s, tok string) bool {
	for i := 0; i+len(tok) <= len(s); i++ {
		if s[i:i+len(tok)] == tok {
			return true
		}
	}
	return false
}

// AsInt32 converts a literal value to int32; it does not resolve
// variable references, which callers must expand first.
func (v DslValue) AsInt32() (int32, bool) {
	switch v.Kind {
	case DslInt:
		return int32(v.Int), true
	case DslFloat:
		return int32(v.Float), true
	case DslString:
		var n int64
		if _, err := fmt.Sscanf(v.Str, "%d", &n); err == nil {
			return int32(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func (v DslValue) AsString() string {
	switch v.Kind {
	case DslInt:
		return fmt.Sprintf("%d", v.Int)
	case DslFloat:
		return fmt.Sprintf("%g", v.Float)
	case DslBool:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return v.Str
	}
}

// VariableType names the declared type of a profile variable.
type VariableType string

const (
	VarTypeString  VariableType = "string"
	VarTypeNumber  VariableType = "number"
	VarTypeBoolean VariableType = "boolean"
)

// VariableDefinition declares one parameterized variable a profile
// accepts, with its default and a human description.
type VariableDefinition struct {
	Type        VariableType `yaml:"type"`
	Default     *DslValue    `yaml:"default,omitempty"`
	Description string       `yaml:"description,omitempty"`
}

// DslTargetWindow names a window by title or process name substring,
// with a pause_when_unfocused flag. It is only parsed: ToProfile does
// not carry it into tap.Profile, and playback does not watch focus.
type DslTargetWindow struct {
	Title              string `yaml:"title,omitempty"`
	Process            string `yaml:"process,omitempty"`
	PauseWhenUnfocused bool   `yaml:"pause_when_unfocused"`
}

// DslMouseButton is the YAML spelling of a mouse button.
type DslMouseButton string

const (
	DslButtonLeft   DslMouseButton = "left"
	DslButtonRight  DslMouseButton = "right"
	DslButtonMiddle DslMouseButton = "middle"
)

// DslRunConfig is the YAML run-configuration block.
type DslRunConfig struct {
	Repeat       uint32  `yaml:"repeat"`
	StartDelayMs uint64  `yaml:"start_delay_ms"`
	Speed        float32 `yaml:"speed"`
}

func DefaultDslRunConfig() DslRunConfig {
	return DslRunConfig{Repeat: 1, StartDelayMs: 0, Speed: 1.0}
}

func (rc *DslRunConfig) UnmarshalYAML(node *yaml.Node) error {
	type raw DslRunConfig
	r := raw(DefaultDslRunConfig())
	if err := node.Decode(&r); err != nil {
		return err
	}
	*rc = DslRunConfig(r)
	return nil
}

// DslTimedAction pairs an offset with the action to run at it.
type DslTimedAction struct {
	AtMs    uint64    `yaml:"at_ms"`
	Action  DslAction `yaml:"action"`
	Enabled bool      `yaml:"-"`
	Note    string    `yaml:"note,omitempty"`
}

func (ta *DslTimedAction) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		AtMs    uint64    `yaml:"at_ms"`
		Action  DslAction `yaml:"action"`
		Enabled *bool     `yaml:"enabled"`
		Note    string    `yaml:"note"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	ta.AtMs = raw.AtMs
	ta.Action = raw.Action
	ta.Note = raw.Note
	if raw.Enabled == nil {
		ta.Enabled = true
	} else {
		ta.Enabled = *raw.Enabled
	}
	return nil
}

// DslProfile is the top-level YAML document for one macro.
type DslProfile struct {
	Name         string                         `yaml:"name"`
	Description  string                         `yaml:"description,omitempty"`
	Version      string                         `yaml:"version,omitempty"`
	Author       string                         `yaml:"author,omitempty"`
	Variables    map[string]VariableDefinition  `yaml:"variables,omitempty"`
	TargetWindow *DslTargetWindow               `yaml:"target_window,omitempty"`
	Timeline     []DslTimedAction               `yaml:"timeline"`
	Run          DslRunConfig                   `yaml:"run"`
}

func (p *DslProfile) UnmarshalYAML(node *yaml.Node) error {
	type raw DslProfile
	r := raw{Run: DefaultDslRunConfig()}
	if err := node.Decode(&r); err != nil {
		return err
	}
	if r.Version == "" {
		r.Version = DSLVersion
	}
	*p = DslProfile(r)
	return nil
}

// ParseProfile decodes one YAML document into a DslProfile.
func ParseProfile(data []byte) (DslProfile, error) {
	var p DslProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return DslProfile{}, err
	}
	return p, nil
}
