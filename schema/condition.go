package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DslConditionKind is the YAML variant tag for DslCondition.
type DslConditionKind string

const (
	DslCondWindowFocused DslConditionKind = "window_focused"
	DslCondWindowExists  DslConditionKind = "window_exists"
	DslCondPixelColor    DslConditionKind = "pixel_color"
	DslCondCounter       DslConditionKind = "counter"
	DslCondAlways        DslConditionKind = "always"
	DslCondNever         DslConditionKind = "never"
	DslCondAnd           DslConditionKind = "and"
	DslCondOr            DslConditionKind = "or"
	DslCondNot           DslConditionKind = "not"
)

// DslCondition mirrors DslAction's tagged-struct shape for the condition
// tree used by wait_until and conditional.
type DslCondition struct {
	Kind DslConditionKind

	Title   string
	Process string

	X, Y      int
	Color     string
	Tolerance uint8

	CounterKey string
	Op         string
	Value      int32

	Children []DslCondition
}

func (c *DslCondition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("condition must be a single-key mapping (got %d keys)", len(node.Content)/2)
	}
	var key string
	if err := node.Content[0].Decode(&key); err != nil {
		return err
	}
	val := node.Content[1]
	c.Kind = DslConditionKind(key)

	switch c.Kind {
	case DslCondWindowFocused, DslCondWindowExists:
		var f struct {
			Title   string `yaml:"title"`
			Process string `yaml:"process"`
		}
		if err := val.Decode(&f); err != nil {
			return err
		}
		c.Title, c.Process = f.Title, f.Process

	case DslCondPixelColor:
		var f struct {
			X         int    `yaml:"x"`
			Y         int    `yaml:"y"`
			Color     string `yaml:"color"`
			Tolerance uint8  `yaml:"tolerance"`
		}
		f.Tolerance = 10
		if err := val.Decode(&f); err != nil {
			return err
		}
		c.X, c.Y, c.Color, c.Tolerance = f.X, f.Y, f.Color, f.Tolerance

	case DslCondCounter:
		var f struct {
			Key   string `yaml:"key"`
			Op    string `yaml:"op"`
			Value int32  `yaml:"value"`
		}
		if err := val.Decode(&f); err != nil {
			return err
		}
		c.CounterKey, c.Op, c.Value = f.Key, f.Op, f.Value

	case DslCondAlways, DslCondNever:
		// unit variants

	case DslCondAnd, DslCondOr:
		var children []DslCondition
		if err := val.Decode(&children); err != nil {
			return err
		}
		c.Children = children

	case DslCondNot:
		var child DslCondition
		if err := val.Decode(&child); err != nil {
			return err
		}
		c.Children = []DslCondition{child}

	default:
		return fmt.Errorf("unknown condition type %q", key)
	}
	return nil
}

// MarshalYAML is the inverse of UnmarshalYAML, rendering back to the
// single-key mapping form.
func (c DslCondition) MarshalYAML() (interface{}, error) {
	switch c.Kind {
	case DslCondWindowFocused, DslCondWindowExists:
		return map[string]interface{}{string(c.Kind): map[string]interface{}{"title": c.Title, "process": c.Process}}, nil
	case DslCondPixelColor:
		return map[string]interface{}{string(c.Kind): map[string]interface{}{
			"x": c.X, "y": c.Y, "color": c.Color, "tolerance": c.Tolerance,
		}}, nil
	case DslCondCounter:
		return map[string]interface{}{string(c.Kind): map[string]interface{}{
			"key": c.CounterKey, "op": c.Op, "value": c.Value,
		}}, nil
	case DslCondAlways, DslCondNever:
		return map[string]interface{}{string(c.Kind): nil}, nil
	case DslCondAnd, DslCondOr:
		return map[string]interface{}{string(c.Kind): c.Children}, nil
	case DslCondNot:
		if len(c.Children) == 0 {
			return map[string]interface{}{string(c.Kind): nil}, nil
		}
		return map[string]interface{}{string(c.Kind): c.Children[0]}, nil
	default:
		return nil, fmt.Errorf("unknown condition kind %q", c.Kind)
	}
}
