package stringtemplate

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neurodesk/stringtemplate/pkg/attrs"
)

// maxIncludeDepth bounds include nesting so self-including templates fail
// instead of recursing forever.
const maxIncludeDepth = 32

type renderer struct {
	env    *Environment
	log    *slog.Logger
	scope  binder
	conds  []bool // per open If: whether a following Else still has to render
	depth  int
	strict bool
	eval   ConditionEvaluator
}

func newRenderer(t *Template, depth int) *renderer {
	r := &renderer{
		env:   t.env,
		log:   discardLogger,
		depth: depth,
		eval:  TruthEvaluator{},
	}
	if e := t.env; e != nil {
		r.log = e.logger.With("template", t.name)
		r.strict = e.strictFilters
		if e.conditions != nil {
			r.eval = e.conditions
		}
	}
	return r
}

func (r *renderer) render(buf *bytes.Buffer, root *Root, data attrs.Store) error {
	if data == nil {
		data = attrs.New()
	}
	r.scope.push(GlobalScope, data)
	defer r.scope.pop()
	return r.renderNodes(buf, root.Children, data)
}

func (r *renderer) renderNodes(buf *bytes.Buffer, nodes []Node, data attrs.Store) error {
	for _, n := range nodes {
		switch t := n.(type) {
		case *Text:
			buf.WriteString(t.Text)
		case *Placeholder:
			v, err := r.placeholder(t)
			if err != nil {
				return err
			}
			buf.WriteString(v.String())
		case *Loop:
			if err := r.loop(buf, t, data); err != nil {
				return err
			}
		case *If:
			ok, err := r.condition(t.Cond)
			if err != nil {
				return err
			}
			r.conds = append(r.conds, !ok)
			if ok {
				if err := r.renderNodes(buf, t.Children, data); err != nil {
					return err
				}
			}
		case *Else:
			if len(r.conds) > 0 && r.conds[len(r.conds)-1] {
				r.conds[len(r.conds)-1] = false
				if err := r.renderNodes(buf, t.Children, data); err != nil {
					return err
				}
			}
		case *EndIf:
			if len(r.conds) > 0 {
				r.conds = r.conds[:len(r.conds)-1]
			}
		case *Include:
			if err := r.include(buf, t, data); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unhandled node type: %T", n)
		}
	}
	return nil
}

func (r *renderer) placeholder(p *Placeholder) (attrs.Value, error) {
	v, ctx, err := r.scope.resolve(p.Path)
	if err != nil {
		r.log.Debug("unresolved placeholder", "error", err)
	}
	for _, id := range p.Filters {
		// an Environment filter replaces the built-in of the same id
		if f, ok := r.env.filter(id); ok {
			v = f(v, ctx)
			continue
		}
		if f, ok := builtinFilters.Lookup(id); ok {
			v = f(v, ctx)
			continue
		}
		ferr := &UnknownFilterError{Filter: id, Path: p.Path}
		if r.strict {
			return nil, ferr
		}
		r.log.Debug("skipping filter", "error", ferr)
	}
	if v == nil {
		return attrs.NoneValue{}, nil
	}
	return v, nil
}

func (r *renderer) loop(buf *bytes.Buffer, l *Loop, data attrs.Store) error {
	items, err := r.scope.collection(l.Collection)
	if err != nil {
		r.log.Debug("skipping loop", "error", err)
		return nil
	}
	if len(items) == 0 {
		return nil
	}

	helper := attrs.New()
	r.scope.push(LoopScope, helper)
	r.scope.push(l.Var, nil)
	defer func() {
		r.scope.pop()
		r.scope.pop()
	}()
	for i, item := range items {
		helper.Set("index", i)
		helper.Set("last", i == len(items)-1)
		r.scope.rebind(item)
		if err := r.renderNodes(buf, l.Children, data); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) condition(cond string) (bool, error) {
	ok, err := r.eval.Evaluate(cond, &r.scope)
	if err == nil {
		return ok, nil
	}
	var berr *BindingError
	if errors.As(err, &berr) || errors.Is(err, ErrUnsupportedCondition) {
		r.log.Debug("condition is false", "condition", cond, "error", err)
		return false, nil
	}
	return false, fmt.Errorf("evaluating condition %q: %w", cond, err)
}

func (r *renderer) include(buf *bytes.Buffer, in *Include, data attrs.Store) error {
	if r.env == nil {
		r.log.Debug("include without environment", "name", in.Name)
		return nil
	}
	if r.depth >= maxIncludeDepth {
		return &IncludeError{Name: in.Name, Err: fmt.Errorf("include depth exceeds %d", maxIncludeDepth)}
	}
	sub, err := r.env.LoadTemplate(in.Name)
	if err != nil {
		r.log.Debug("include not resolved", "name", in.Name, "error", err)
		return nil
	}
	root, err := sub.parse()
	if err != nil {
		return &IncludeError{Name: in.Name, Err: err}
	}
	if err := newRenderer(sub, r.depth+1).render(buf, root, data); err != nil {
		var ierr *IncludeError
		if errors.As(err, &ierr) {
			return err
		}
		return &IncludeError{Name: in.Name, Err: err}
	}
	return nil
}
