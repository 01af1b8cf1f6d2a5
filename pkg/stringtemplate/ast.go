package stringtemplate

import "strings"

// Node is any AST node in a parsed template. The set of implementations is
// closed: Root, Text, Placeholder, Loop, If, Else, EndIf and Include.
type Node interface {
	node()
}

// container is a Node that owns an ordered child list.
type container interface {
	Node
	add(n Node)
}

// Root is the single top-level node produced by Parse.
type Root struct {
	Children []Node
}

func (*Root) node()        {}
func (r *Root) add(n Node) { r.Children = append(r.Children, n) }

// Text is literal template text.
type Text struct {
	Text string
}

func (*Text) node() {}

// Placeholder is an interpolation: {{ path | filter | filter }}
type Placeholder struct {
	Path    string
	Filters []string
}

func (*Placeholder) node() {}

// newPlaceholder splits a placeholder statement on "|". Empty filter
// segments are dropped; duplicates are kept.
func newPlaceholder(stmt string) *Placeholder {
	parts := strings.Split(stmt, "|")
	p := &Placeholder{Path: strings.TrimSpace(parts[0])}
	for _, f := range parts[1:] {
		if f = strings.TrimSpace(f); f != "" {
			p.Filters = append(p.Filters, f)
		}
	}
	return p
}

// Loop iterates Collection binding each element to Var: {% for var in collection %}
type Loop struct {
	Var        string
	Collection string
	Children   []Node
}

func (*Loop) node()        {}
func (l *Loop) add(n Node) { l.Children = append(l.Children, n) }

// newLoop reads tokens 1 and 3 of "for <var> in <collection>". Any other
// layout leaves the fields empty.
func newLoop(stmt string) *Loop {
	fields := strings.Fields(stmt)
	if len(fields) != 4 || fields[2] != "in" {
		return &Loop{}
	}
	return &Loop{Var: fields[1], Collection: fields[3]}
}

// If renders its children when Cond holds. A following Else sibling renders
// otherwise; an EndIf sibling closes the pair.
type If struct {
	Cond     string
	Children []Node
}

func (*If) node()        {}
func (i *If) add(n Node) { i.Children = append(i.Children, n) }

func newIf(stmt string) *If {
	_, cond := splitNameArgs(stmt)
	return &If{Cond: cond}
}

// Else holds the alternative branch of the preceding If.
type Else struct {
	Children []Node
}

func (*Else) node()        {}
func (e *Else) add(n Node) { e.Children = append(e.Children, n) }

// EndIf marks where the preceding If/Else pair closes.
type EndIf struct{}

func (*EndIf) node() {}

// Include renders another template in place: {% include "name" %}
type Include struct {
	Name string
}

func (*Include) node() {}

func newInclude(stmt string) *Include {
	_, name := splitNameArgs(stmt)
	if len(name) >= 2 {
		if q := name[0]; (q == '"' || q == '\'') && name[len(name)-1] == q {
			name = name[1 : len(name)-1]
		}
	}
	return &Include{Name: name}
}
