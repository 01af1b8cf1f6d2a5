package stringtemplate

import (
	"strings"

	"github.com/neurodesk/stringtemplate/pkg/attrs"
)

const (
	// GlobalScope names the binding holding the render's top-level data.
	GlobalScope = "global"
	// LoopScope names the per-iteration helper binding exposing index and last.
	LoopScope = "loop"
)

// Binding is a named scope visible to template references.
type Binding struct {
	Name  string
	Store attrs.Store
}

// Scope resolves template references against the active bindings.
// Condition evaluators receive it.
type Scope interface {
	// Resolve returns the value a reference names. An unresolvable reference
	// yields NoneValue and a *BindingError.
	Resolve(ref string) (attrs.Value, error)
	// Bindings returns the active bindings, outermost first.
	Bindings() []Binding
}

// binder is the render-time binding stack. Pushes and pops are balanced per
// subtree.
type binder struct {
	stack []Binding
}

var _ Scope = (*binder)(nil)

func (b *binder) push(name string, s attrs.Store) {
	b.stack = append(b.stack, Binding{Name: name, Store: s})
}

func (b *binder) pop() {
	b.stack = b.stack[:len(b.stack)-1]
}

// rebind replaces the store of the innermost binding.
func (b *binder) rebind(s attrs.Store) {
	b.stack[len(b.stack)-1].Store = s
}

// lookup searches bindings innermost first.
func (b *binder) lookup(name string) (attrs.Store, bool) {
	for i := len(b.stack) - 1; i >= 0; i-- {
		if b.stack[i].Name == name {
			return b.stack[i].Store, true
		}
	}
	return nil, false
}

func (b *binder) Bindings() []Binding {
	out := make([]Binding, len(b.stack))
	copy(out, b.stack)
	return out
}

// splitRef splits a reference at its first ".". Undotted references target
// the global scope.
func splitRef(ref string) (scope, key string) {
	scope, key, ok := strings.Cut(ref, ".")
	if !ok {
		return GlobalScope, ref
	}
	return scope, key
}

func (b *binder) Resolve(ref string) (attrs.Value, error) {
	v, _, err := b.resolve(ref)
	return v, err
}

// resolve returns the value ref names together with the store it was read
// from, which filters receive as context.
func (b *binder) resolve(ref string) (attrs.Value, attrs.Store, error) {
	if !strings.Contains(ref, ".") && ref != GlobalScope {
		// a bare loop variable names the current element itself
		if s, ok := b.lookup(ref); ok && s != nil {
			if vs, ok := s.(attrs.Valuer); ok {
				return vs.Value(), s, nil
			}
			return attrs.StoreValue{Store: s}, s, nil
		}
	}

	s, key, err := b.locate(ref)
	if err != nil {
		return attrs.NoneValue{}, nil, err
	}
	v, owner, ok := walk(s, key)
	if !ok {
		scope, _ := splitRef(ref)
		return attrs.NoneValue{}, s, &BindingError{Ref: ref, Scope: scope, Msg: "key not found"}
	}
	return v, owner, nil
}

// collection returns the elements of the repeated attribute ref names.
func (b *binder) collection(ref string) ([]attrs.Store, error) {
	s, key, err := b.locate(ref)
	if err != nil {
		return nil, err
	}
	if s.Contains(key) {
		return s.IterateNamed(key), nil
	}
	if idx := strings.LastIndexByte(key, '.'); idx >= 0 {
		if v, _, ok := walk(s, key[:idx]); ok {
			if sv, ok := v.(attrs.StoreValue); ok && sv.Store != nil && sv.Store.Contains(key[idx+1:]) {
				return sv.Store.IterateNamed(key[idx+1:]), nil
			}
		}
	}
	scope, _ := splitRef(ref)
	return nil, &BindingError{Ref: ref, Scope: scope, Msg: "key not found"}
}

// locate picks the store ref is read from and the key within it.
func (b *binder) locate(ref string) (attrs.Store, string, error) {
	scope, key := splitRef(ref)
	if s, ok := b.lookup(scope); ok && s != nil {
		return s, key, nil
	}
	if scope != GlobalScope {
		// dotted path rooted in a global attribute: app.name
		if g, ok := b.lookup(GlobalScope); ok && g != nil && g.Contains(scope) {
			return g, ref, nil
		}
	}
	return nil, "", &BindingError{Ref: ref, Scope: scope, Msg: "no such binding"}
}

// walk reads a possibly dotted key from s, descending through nested stores.
func walk(s attrs.Store, key string) (attrs.Value, attrs.Store, bool) {
	if s.Contains(key) {
		return s.Get(key), s, true
	}
	cur := s
	parts := strings.Split(key, ".")
	for i, part := range parts {
		if !cur.Contains(part) {
			return nil, nil, false
		}
		v := cur.Get(part)
		if i == len(parts)-1 {
			return v, cur, true
		}
		sv, ok := v.(attrs.StoreValue)
		if !ok || sv.Store == nil {
			return nil, nil, false
		}
		cur = sv.Store
	}
	return nil, nil, false
}
