package stringtemplate

import (
	"fmt"
	"strings"
)

const (
	placeholderOpen  = "{{"
	placeholderClose = "}}"
	statementOpen    = "{%"
	statementClose   = "%}"
)

type scanState int

const (
	stateText scanState = iota
	statePlaceholder
	stateStatement
)

// Parse parses template source into a Root. With trimBlocks set, the line
// terminator directly after a statement's closing delimiter is dropped.
// Placeholders never trim.
func Parse(src string, trimBlocks bool) (*Root, error) {
	root := &Root{}
	p := &parser{
		sc:         newScanner(src),
		trimBlocks: trimBlocks,
		stack:      []frame{{node: root}},
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return root, nil
}

// frame is an open container on the parser's node stack.
type frame struct {
	node   container
	stmt   string
	offset int
}

type parser struct {
	sc         *scanner
	trimBlocks bool
	stack      []frame

	state    scanState
	buf      strings.Builder
	tagStart int
	trim     bool
}

func (p *parser) run() error {
	for !p.sc.eof() {
		if p.trim {
			p.trim = false
			p.sc.skipNewline()
			continue
		}
		switch p.state {
		case stateText:
			start := p.sc.i
			switch {
			case p.sc.match(placeholderOpen):
				p.openTag(statePlaceholder, start)
			case p.sc.match(statementOpen):
				p.openTag(stateStatement, start)
			default:
				p.buf.WriteByte(p.sc.next())
			}
		case statePlaceholder, stateStatement:
			if strings.HasPrefix(p.sc.src[p.sc.i:], placeholderOpen) || strings.HasPrefix(p.sc.src[p.sc.i:], statementOpen) {
				return p.fail(p.sc.i, "", "delimiter opened inside an unterminated tag")
			}
			if p.state == statePlaceholder && p.sc.match(placeholderClose) {
				if err := p.closePlaceholder(); err != nil {
					return err
				}
				continue
			}
			if p.state == stateStatement && p.sc.match(statementClose) {
				if err := p.closeStatement(); err != nil {
					return err
				}
				p.trim = p.trimBlocks
				continue
			}
			p.buf.WriteByte(p.sc.next())
		}
	}

	if p.state != stateText {
		return p.fail(p.tagStart, strings.TrimSpace(p.buf.String()), "unterminated tag")
	}
	p.flushText()
	if len(p.stack) > 1 {
		open := p.stack[len(p.stack)-1]
		return p.fail(open.offset, open.stmt, "unclosed block")
	}
	return nil
}

func (p *parser) openTag(st scanState, offset int) {
	p.flushText()
	p.state = st
	p.tagStart = offset
}

func (p *parser) flushText() {
	if p.buf.Len() == 0 {
		return
	}
	p.top().add(&Text{Text: p.buf.String()})
	p.buf.Reset()
}

func (p *parser) takeTag() string {
	stmt := strings.TrimSpace(p.buf.String())
	p.buf.Reset()
	p.state = stateText
	return stmt
}

func (p *parser) top() container { return p.stack[len(p.stack)-1].node }

func (p *parser) push(n container, stmt string) {
	p.top().add(n)
	p.stack = append(p.stack, frame{node: n, stmt: stmt, offset: p.tagStart})
}

func (p *parser) pop() {
	p.stack = p.stack[:len(p.stack)-1]
}

func (p *parser) closePlaceholder() error {
	stmt := p.takeTag()
	ph := newPlaceholder(stmt)
	if ph.Path == "" {
		return p.fail(p.tagStart, stmt, "empty placeholder")
	}
	p.top().add(ph)
	return nil
}

func (p *parser) closeStatement() error {
	stmt := p.takeTag()
	name, _ := splitNameArgs(stmt)
	switch name {
	case "for":
		p.push(newLoop(stmt), stmt)
	case "endfor":
		if _, ok := p.top().(*Loop); !ok {
			return p.fail(p.tagStart, stmt, "endfor without matching for")
		}
		p.pop()
	case "if":
		n := newIf(stmt)
		if n.Cond == "" {
			return p.fail(p.tagStart, stmt, "if without condition")
		}
		p.push(n, stmt)
	case "else":
		if _, ok := p.top().(*If); !ok {
			return p.fail(p.tagStart, stmt, "else without matching if")
		}
		p.pop()
		p.push(&Else{}, stmt)
	case "endif":
		switch p.top().(type) {
		case *If, *Else:
		default:
			return p.fail(p.tagStart, stmt, "endif without matching if")
		}
		p.pop()
		p.top().add(&EndIf{})
	case "include":
		p.top().add(newInclude(stmt))
	case "":
		return p.fail(p.tagStart, stmt, "empty statement")
	default:
		return p.fail(p.tagStart, stmt, fmt.Sprintf("unknown statement %q", name))
	}
	return nil
}

func (p *parser) fail(offset int, stmt, msg string) *ParseError {
	return &ParseError{Pos: p.sc.position(offset), Stmt: stmt, Msg: msg}
}

// splitNameArgs splits a statement into its first word and the trimmed rest.
func splitNameArgs(stmt string) (name, args string) {
	s := strings.TrimSpace(stmt)
	i := 0
	for i < len(s) && !isSpace(s[i]) {
		i++
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
