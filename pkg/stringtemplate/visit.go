package stringtemplate

import (
	"bytes"
	"fmt"
	"strings"
)

// Visitor is called for every node Walk reaches.
type Visitor interface {
	Visit(n Node) error
}

// VisitorFunc adapts a function to Visitor.
type VisitorFunc func(n Node) error

func (f VisitorFunc) Visit(n Node) error { return f(n) }

// Walk visits n and then its children depth-first. It stops at the first
// error.
func Walk(v Visitor, n Node) error {
	if err := v.Visit(n); err != nil {
		return err
	}
	var children []Node
	switch t := n.(type) {
	case *Root:
		children = t.Children
	case *Loop:
		children = t.Children
	case *If:
		children = t.Children
	case *Else:
		children = t.Children
	}
	for _, c := range children {
		if err := Walk(v, c); err != nil {
			return err
		}
	}
	return nil
}

// Pretty returns a line-oriented rendering of the AST.
func Pretty(root *Root) string {
	var buf bytes.Buffer
	ppNode(&buf, 0, root)
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	buf.WriteString(strings.Repeat(" ", indent))
	var children []Node
	switch t := n.(type) {
	case *Root:
		buf.WriteString("Root\n")
		children = t.Children
	case *Text:
		fmt.Fprintf(buf, "Text(%q)\n", t.Text)
	case *Placeholder:
		if len(t.Filters) > 0 {
			fmt.Fprintf(buf, "Placeholder(%s | %s)\n", t.Path, strings.Join(t.Filters, " | "))
		} else {
			fmt.Fprintf(buf, "Placeholder(%s)\n", t.Path)
		}
	case *Loop:
		fmt.Fprintf(buf, "Loop(%s in %s)\n", t.Var, t.Collection)
		children = t.Children
	case *If:
		fmt.Fprintf(buf, "If(%q)\n", t.Cond)
		children = t.Children
	case *Else:
		buf.WriteString("Else\n")
		children = t.Children
	case *EndIf:
		buf.WriteString("EndIf\n")
	case *Include:
		fmt.Fprintf(buf, "Include(%q)\n", t.Name)
	}
	for _, c := range children {
		ppNode(buf, indent+2, c)
	}
}

// Placeholders returns the paths of every placeholder and loop collection
// under root, in source order.
func Placeholders(root *Root) []string {
	var refs []string
	_ = Walk(VisitorFunc(func(n Node) error {
		switch t := n.(type) {
		case *Placeholder:
			refs = append(refs, t.Path)
		case *Loop:
			refs = append(refs, t.Collection)
		}
		return nil
	}), root)
	return refs
}
