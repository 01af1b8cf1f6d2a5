package stringtemplate

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTextAndPlaceholder(t *testing.T) {
	root, err := Parse("Hello {{ name | upper|escapestring }}!", false)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	want := &Root{Children: []Node{
		&Text{Text: "Hello "},
		&Placeholder{Path: "name", Filters: []string{"upper", "escapestring"}},
		&Text{Text: "!"},
	}}
	if diff := cmp.Diff(want, root); diff != "" {
		t.Fatalf("AST mismatch (-want +got):\n%s", diff)
	}
}

func TestParseBlocks(t *testing.T) {
	src := `{% for u in users %}{% if loop.last %}{{ u.name }}{% else %}-{% endif %}{% endfor %}{% include "footer" %}`
	root, err := Parse(src, false)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	want := &Root{Children: []Node{
		&Loop{Var: "u", Collection: "users", Children: []Node{
			&If{Cond: "loop.last", Children: []Node{
				&Placeholder{Path: "u.name"},
			}},
			&Else{Children: []Node{&Text{Text: "-"}}},
			&EndIf{},
		}},
		&Include{Name: "footer"},
	}}
	if diff := cmp.Diff(want, root); diff != "" {
		t.Fatalf("AST mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNodeFactories(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want Node
	}{
		{"filters keep order and duplicates", "{{ x|upper| |lower|upper }}", &Placeholder{Path: "x", Filters: []string{"upper", "lower", "upper"}}},
		{"malformed loop keeps empty fields", "{% for x %}{% endfor %}", &Loop{}},
		{"loop with extra tokens", "{% for x in xs extra %}{% endfor %}", &Loop{}},
		{"if condition is the rest", "{%if   a  b %}{% endif %}", &If{Cond: "a  b"}},
		{"include unquoted", "{% include partials/head.txt %}", &Include{Name: "partials/head.txt"}},
		{"include single quoted", "{% include 'x' %}", &Include{Name: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root, err := Parse(tc.src, false)
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if diff := cmp.Diff(tc.want, root.Children[0]); diff != "" {
				t.Fatalf("node mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTrimBlocks(t *testing.T) {
	src := "{% if a %}\nA\n{% endif %}\r\nB{{ x }}\nC{% if b %}\r{% endif %}"
	cases := []struct {
		trim bool
		want []string
	}{
		{false, []string{"\nA\n", "\r\nB", "\nC", "\r"}},
		{true, []string{"A\n", "B", "\nC"}},
	}
	for _, tc := range cases {
		root, err := Parse(src, tc.trim)
		if err != nil {
			t.Fatalf("trim=%v: parse error: %v", tc.trim, err)
		}
		var got []string
		_ = Walk(VisitorFunc(func(n Node) error {
			if tn, ok := n.(*Text); ok {
				got = append(got, tn.Text)
			}
			return nil
		}), root)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("trim=%v: text nodes (-want +got):\n%s", tc.trim, diff)
		}
	}
}

func TestParseTrimOnlyOneNewline(t *testing.T) {
	root, err := Parse("{% if a %}\n\nx{% endif %}", true)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	text := root.Children[0].(*If).Children[0].(*Text)
	if text.Text != "\nx" {
		t.Fatalf("got %q, want %q", text.Text, "\nx")
	}
}

func TestParseStrayCloseDelimitersAreText(t *testing.T) {
	root, err := Parse("a }} b %} c", false)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(root.Children) != 1 || root.Children[0].(*Text).Text != "a }} b %} c" {
		t.Fatalf("unexpected AST:\n%s", Pretty(root))
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name   string
		src    string
		msg    string
		offset int
		line   int
		column int
	}{
		{"stray endfor", "ab{% endfor %}", "endfor without matching for", 2, 1, 3},
		{"stray endif", "x\n{% endif %}", "endif without matching if", 2, 2, 1},
		{"stray else", "{% else %}", "else without matching if", 0, 1, 1},
		{"double else", "{% if a %}{% else %}{% else %}{% endif %}", "else without matching if", 20, 1, 21},
		{"endfor closes if", "{% if a %}{% endfor %}", "endfor without matching for", 10, 1, 11},
		{"unclosed for", "x{% for i in xs %}y", "unclosed block", 1, 1, 2},
		{"unclosed if", "{% if a %}\n{% else %}", "unclosed block", 11, 2, 1},
		{"unknown statement", "{% set x = 1 %}", `unknown statement "set"`, 0, 1, 1},
		{"empty statement", "{%  %}", "empty statement", 0, 1, 1},
		{"empty placeholder", "a{{ }}", "empty placeholder", 1, 1, 2},
		{"filters only", "{{ | upper }}", "empty placeholder", 0, 1, 1},
		{"empty condition", "{% if %}{% endif %}", "if without condition", 0, 1, 1},
		{"unterminated placeholder", "a {{ x", "unterminated tag", 2, 1, 3},
		{"unterminated statement", "{% if x", "unterminated tag", 0, 1, 1},
		{"nested open", "{{ a {{ b }} }}", "delimiter opened inside", 5, 1, 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root, err := Parse(tc.src, false)
			if err == nil {
				t.Fatalf("expected error, got AST:\n%s", Pretty(root))
			}
			if root != nil {
				t.Fatalf("partial tree returned alongside error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("want *ParseError, got %T: %v", err, err)
			}
			if !strings.Contains(perr.Msg, tc.msg) {
				t.Fatalf("message %q does not contain %q", perr.Msg, tc.msg)
			}
			want := Position{Offset: tc.offset, Line: tc.line, Column: tc.column}
			if perr.Pos != want {
				t.Fatalf("position = %+v, want %+v", perr.Pos, want)
			}
		})
	}
}

func TestParseErrorIsDeterministic(t *testing.T) {
	src := "a\n{% for x in xs %}\n{% endif %}"
	_, err1 := Parse(src, false)
	_, err2 := Parse(src, false)
	if err1 == nil || err2 == nil || err1.Error() != err2.Error() {
		t.Fatalf("errors differ: %v / %v", err1, err2)
	}
}

func TestParseErrorMessage(t *testing.T) {
	_, err := New("page.txt", "x{% endfor %}").Parse()
	if err == nil {
		t.Fatal("expected error")
	}
	want := `page.txt:1:2: endfor without matching for (statement "endfor")`
	if err.Error() != want {
		t.Fatalf("got %q, want %q", err.Error(), want)
	}
}

func TestPretty(t *testing.T) {
	root, err := Parse("A{{ x|upper }}{% for i in xs %}{{ i }}{% endfor %}", false)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	want := `Root
  Text("A")
  Placeholder(x | upper)
  Loop(i in xs)
    Placeholder(i)
`
	if got := Pretty(root); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPlaceholders(t *testing.T) {
	root, err := Parse("{{ a }}{% for u in users %}{{ u.name }}{% endfor %}", false)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "users", "u.name"}, Placeholders(root)); diff != "" {
		t.Fatalf("refs (-want +got):\n%s", diff)
	}
}
