package attrs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FromYAML decodes a YAML (or JSON) mapping into Attributes, keeping the key
// order of the document.
func FromYAML(r io.Reader) (*Attributes, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return New(), nil
		}
		return nil, fmt.Errorf("decoding attributes: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return New(), nil
		}
		root = root.Content[0]
	}
	v, err := fromNode(root)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case NoneValue:
		return New(), nil
	case StoreValue:
		return t.Store.(*Attributes), nil
	default:
		return nil, fmt.Errorf("attributes document must be a mapping, got %s", root.Tag)
	}
}

// LoadYAMLFile reads a YAML file into Attributes.
func LoadYAMLFile(path string) (*Attributes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := FromYAML(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

func fromNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.MappingNode:
		a := New()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", key.Line)
			}
			v, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			a.m.Set(key.Value, v)
		}
		return StoreValue{Store: a}, nil
	case yaml.SequenceNode:
		out := make(ListValue, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := fromNode(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		return fromScalar(n)
	default:
		return NoneValue{}, nil
	}
}

func fromScalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return NoneValue{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return BoolValue(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return IntValue(i), nil
	case "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			var d float64
			if derr := n.Decode(&d); derr != nil {
				return nil, fmt.Errorf("line %d: %w", n.Line, derr)
			}
			f = d
		}
		return FloatValue(f), nil
	default:
		return StringValue(n.Value), nil
	}
}
