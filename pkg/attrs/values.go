package attrs

import (
	"fmt"
	"reflect"
	"strconv"
)

// Value is a single attribute value. The set of implementations is closed:
// StringValue, IntValue, FloatValue, BoolValue, StoreValue, ListValue and
// NoneValue.
type Value interface {
	String() string
	Truth() bool
	value()
}

// NoneValue represents the absence of a value.
type NoneValue struct{}

func (NoneValue) String() string { return "" }
func (NoneValue) Truth() bool    { return false }
func (NoneValue) value()         {}

// BoolValue wraps a boolean.
type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (b BoolValue) Truth() bool { return bool(b) }
func (BoolValue) value()        {}

// IntValue wraps an integer (64-bit).
type IntValue int64

func (i IntValue) String() string { return strconv.FormatInt(int64(i), 10) }
func (i IntValue) Truth() bool    { return int64(i) != 0 }
func (IntValue) value()           {}

// FloatValue wraps a float (64-bit).
type FloatValue float64

func (f FloatValue) String() string { return strconv.FormatFloat(float64(f), 'g', -1, 64) }
func (f FloatValue) Truth() bool    { return float64(f) != 0 }
func (FloatValue) value()           {}

// StringValue wraps a string.
type StringValue string

func (s StringValue) String() string { return string(s) }
func (s StringValue) Truth() bool    { return len(string(s)) > 0 }
func (StringValue) value()           {}

// StoreValue wraps a nested attribute store.
type StoreValue struct {
	Store Store
}

func (StoreValue) String() string { return "{...}" }
func (s StoreValue) Truth() bool  { return s.Store != nil }
func (StoreValue) value()         {}

// ListValue holds a repeated attribute. Templates iterate it with
// IterateNamed.
type ListValue []Value

func (ListValue) String() string { return "[...]" }
func (l ListValue) Truth() bool  { return len(l) > 0 }
func (ListValue) value()         {}

// IsNone reports whether v is absent.
func IsNone(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(NoneValue)
	return ok
}

// FromGo converts a Go value to a Value. Maps with string keys become
// nested stores with sorted keys; slices become repeated attributes.
func FromGo(v any) Value {
	if v == nil {
		return NoneValue{}
	}
	switch t := v.(type) {
	case Value:
		return t
	case *Attributes:
		return StoreValue{Store: t}
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(int64(t))
	case int32:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case uint:
		return IntValue(int64(t))
	case uint32:
		return IntValue(int64(t))
	case uint64:
		return IntValue(int64(t))
	case float32:
		return FloatValue(float64(t))
	case float64:
		return FloatValue(t)
	case []byte:
		return StringValue(string(t))
	case map[string]any:
		return StoreValue{Store: FromMap(t)}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		out := make(ListValue, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, FromGo(rv.Index(i).Interface()))
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			it := rv.MapRange()
			for it.Next() {
				m[it.Key().String()] = it.Value().Interface()
			}
			return StoreValue{Store: FromMap(m)}
		}
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return NoneValue{}
		}
		return FromGo(rv.Elem().Interface())
	}
	return StringValue(fmt.Sprintf("%v", v))
}
