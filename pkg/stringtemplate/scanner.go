package stringtemplate

// scanner is a byte cursor over template source.
type scanner struct {
	src string
	i   int
}

func newScanner(src string) *scanner {
	return &scanner{src: src}
}

func (s *scanner) eof() bool { return s.i >= len(s.src) }

func (s *scanner) next() byte {
	if s.i >= len(s.src) {
		return 0
	}
	b := s.src[s.i]
	s.i++
	return b
}

func (s *scanner) peek() byte {
	if s.i >= len(s.src) {
		return 0
	}
	return s.src[s.i]
}

// match consumes delim when the input continues with it.
func (s *scanner) match(delim string) bool {
	if s.i+len(delim) > len(s.src) || s.src[s.i:s.i+len(delim)] != delim {
		return false
	}
	s.i += len(delim)
	return true
}

// skipNewline consumes one line terminator: "\n", "\r" or "\r\n".
func (s *scanner) skipNewline() bool {
	switch s.peek() {
	case '\n':
		s.i++
		return true
	case '\r':
		s.i++
		if s.peek() == '\n' {
			s.i++
		}
		return true
	}
	return false
}

// position converts a byte offset into a line and column.
func (s *scanner) position(offset int) Position {
	if offset > len(s.src) {
		offset = len(s.src)
	}
	line, col := 1, 1
	for j := 0; j < offset; j++ {
		switch s.src[j] {
		case '\n':
			line++
			col = 1
		case '\r':
			if j+1 < len(s.src) && s.src[j+1] == '\n' {
				col++
				continue
			}
			line++
			col = 1
		default:
			col++
		}
	}
	return Position{Offset: offset, Line: line, Column: col}
}
