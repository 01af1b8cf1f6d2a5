// Package attrs provides the ordered attribute store templates are rendered
// against.
package attrs

import (
	"sort"

	"carvel.dev/ytt/pkg/orderedmap"
)

// Store is the read contract the template renderer needs from its data.
type Store interface {
	Contains(key string) bool
	// Get returns NoneValue{} when key is absent.
	Get(key string) Value
	// IterateNamed returns the elements of a repeated attribute. Scalar
	// elements are returned as Element stores.
	IterateNamed(key string) []Store
}

// Valuer is implemented by stores that stand for a single value, such as
// scalar list elements bound as loop variables.
type Valuer interface {
	Value() Value
}

// Attributes is an insertion-ordered Store.
type Attributes struct {
	m *orderedmap.Map
}

var _ Store = (*Attributes)(nil)

// New returns an empty Attributes.
func New() *Attributes {
	return &Attributes{m: orderedmap.NewMap()}
}

// FromMap builds Attributes from a Go map. Keys are inserted in sorted order
// since Go maps carry none.
func FromMap(m map[string]any) *Attributes {
	a := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		a.Set(k, m[k])
	}
	return a
}

// Set stores v under key, converting it with FromGo.
func (a *Attributes) Set(key string, v any) {
	a.m.Set(key, FromGo(v))
}

// Delete removes key and reports whether it existed.
func (a *Attributes) Delete(key string) bool {
	return a.m.Delete(key)
}

func (a *Attributes) Contains(key string) bool {
	_, ok := a.m.Get(key)
	return ok
}

func (a *Attributes) Get(key string) Value {
	v, ok := a.m.Get(key)
	if !ok {
		return NoneValue{}
	}
	return v.(Value)
}

func (a *Attributes) IterateNamed(key string) []Store {
	v, ok := a.m.Get(key)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case ListValue:
		out := make([]Store, 0, len(t))
		for _, item := range t {
			if sv, ok := item.(StoreValue); ok && sv.Store != nil {
				out = append(out, sv.Store)
				continue
			}
			out = append(out, Element{V: item})
		}
		return out
	case StoreValue:
		// a single nested store iterates as one element
		if t.Store == nil {
			return nil
		}
		return []Store{t.Store}
	default:
		return nil
	}
}

// Keys returns the attribute names in insertion order.
func (a *Attributes) Keys() []string {
	keys := make([]string, 0, a.m.Len())
	a.m.Iterate(func(k, _ interface{}) {
		keys = append(keys, k.(string))
	})
	return keys
}

// Len returns the number of attributes.
func (a *Attributes) Len() int { return a.m.Len() }

// Merge copies every attribute of other into a. Nested stores present on
// both sides are merged recursively; everything else is replaced.
func (a *Attributes) Merge(other *Attributes) {
	if other == nil {
		return
	}
	other.m.Iterate(func(k, v interface{}) {
		key := k.(string)
		if src, ok := v.(StoreValue); ok {
			if dst, ok := a.Get(key).(StoreValue); ok {
				srcAttrs, srcOK := src.Store.(*Attributes)
				dstAttrs, dstOK := dst.Store.(*Attributes)
				if srcOK && dstOK {
					dstAttrs.Merge(srcAttrs)
					return
				}
			}
		}
		a.m.Set(key, v)
	})
}

// Element is a Store standing for one scalar list element.
type Element struct {
	V Value
}

var (
	_ Store  = Element{}
	_ Valuer = Element{}
)

func (Element) Contains(string) bool        { return false }
func (Element) Get(string) Value            { return NoneValue{} }
func (Element) IterateNamed(string) []Store { return nil }
func (e Element) Value() Value {
	if e.V == nil {
		return NoneValue{}
	}
	return e.V
}
