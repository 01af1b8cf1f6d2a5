package starlark

import (
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/neurodesk/stringtemplate/pkg/attrs"
)

// keyed is implemented by stores that can enumerate their keys, such as
// *attrs.Attributes.
type keyed interface {
	Keys() []string
}

// ConvertToStarlark converts an attribute value to a Starlark value. Nested
// stores become structs so templates can use dotted access.
func ConvertToStarlark(val attrs.Value) starlark.Value {
	if val == nil {
		return starlark.None
	}

	switch v := val.(type) {
	case attrs.StringValue:
		return starlark.String(string(v))
	case attrs.IntValue:
		return starlark.MakeInt64(int64(v))
	case attrs.FloatValue:
		return starlark.Float(float64(v))
	case attrs.BoolValue:
		return starlark.Bool(bool(v))
	case attrs.ListValue:
		items := make([]starlark.Value, len(v))
		for i, item := range v {
			items[i] = ConvertToStarlark(item)
		}
		return starlark.NewList(items)
	case attrs.StoreValue:
		return StoreToStarlark(v.Store)
	case attrs.NoneValue:
		return starlark.None
	default:
		return starlark.String(val.String())
	}
}

// StoreToStarlark converts a store to a Starlark struct. A single-value
// element converts to its value.
func StoreToStarlark(s attrs.Store) starlark.Value {
	if s == nil {
		return starlark.None
	}
	if v, ok := s.(attrs.Valuer); ok {
		return ConvertToStarlark(v.Value())
	}
	fields := make(starlark.StringDict)
	if k, ok := s.(keyed); ok {
		for _, key := range k.Keys() {
			fields[key] = ConvertToStarlark(s.Get(key))
		}
	}
	return starlarkstruct.FromStringDict(starlarkstruct.Default, fields)
}

// ConvertFromStarlark converts a Starlark value to an attribute value.
func ConvertFromStarlark(val starlark.Value) attrs.Value {
	if val == nil || val == starlark.None {
		return attrs.NoneValue{}
	}

	switch v := val.(type) {
	case starlark.String:
		return attrs.StringValue(string(v))
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return attrs.IntValue(i)
		}
		// For very large integers, convert to string
		return attrs.StringValue(v.String())
	case starlark.Float:
		return attrs.FloatValue(float64(v))
	case starlark.Bool:
		return attrs.BoolValue(bool(v))
	case *starlark.List:
		items := make(attrs.ListValue, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = ConvertFromStarlark(v.Index(i))
		}
		return items
	case starlark.Tuple:
		items := make(attrs.ListValue, len(v))
		for i, item := range v {
			items[i] = ConvertFromStarlark(item)
		}
		return items
	case *starlark.Dict:
		store := attrs.New()
		for _, item := range v.Items() {
			key := item[0].String()
			if s, ok := item[0].(starlark.String); ok {
				key = string(s)
			}
			store.Set(key, ConvertFromStarlark(item[1]))
		}
		return attrs.StoreValue{Store: store}
	case *starlarkstruct.Struct:
		store := attrs.New()
		for _, name := range v.AttrNames() {
			field, err := v.Attr(name)
			if err != nil {
				continue
			}
			store.Set(name, ConvertFromStarlark(field))
		}
		return attrs.StoreValue{Store: store}
	default:
		return attrs.StringValue(val.String())
	}
}
