package stringtemplate

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/neurodesk/stringtemplate/internal/testutil"
	"github.com/neurodesk/stringtemplate/pkg/attrs"
)

func render(t *testing.T, src string, data map[string]any) string {
	t.Helper()
	out, err := New("test", src).Render(attrs.FromMap(data))
	if err != nil {
		t.Fatalf("render %q: %v", src, err)
	}
	return out
}

func TestRenderPlainTextIsIdentity(t *testing.T) {
	for _, src := range []string{
		"",
		"plain text",
		"multi\nline\r\ntext with { braces } and % signs",
		"stray }} and %} closers",
	} {
		if got := render(t, src, map[string]any{"x": "y"}); got != src {
			t.Fatalf("got %q, want %q", got, src)
		}
	}
}

func TestRenderPlaceholders(t *testing.T) {
	cases := []struct {
		name string
		src  string
		data map[string]any
		want string
	}{
		{"simple", "{{ x }}", map[string]any{"x": "Hello"}, "Hello"},
		{"surrounding text", "Hello {{ name }}!", map[string]any{"name": "world"}, "Hello world!"},
		{"upper", "{{ x | upper }}", map[string]any{"x": "abc"}, "ABC"},
		{"chain left to right", "{{ x | upper | lower }}", map[string]any{"x": "Abc"}, "abc"},
		{"capitalize", "{{ x|capitalize }}", map[string]any{"x": "élan vital"}, "Élan vital"},
		{"decapitalize", "{{ x|decapitalize }}", map[string]any{"x": "ABC"}, "aBC"},
		{"escapestring", "{{ x|escapestring }}", map[string]any{"x": "a b"}, `"a b"`},
		{"escapestring empty", "[{{ x|escapestring }}]", map[string]any{"x": ""}, "[]"},
		{"filters ignore numbers", "{{ n|upper|escapestring }}", map[string]any{"n": 42}, "42"},
		{"bool", "{{ b }}", map[string]any{"b": true}, "true"},
		{"float", "{{ f }}", map[string]any{"f": 1.5}, "1.5"},
		{"explicit global scope", "{{ global.x }}", map[string]any{"x": "g"}, "g"},
		{"nested path", "{{ app.name }}", map[string]any{"app": map[string]any{"name": "svc"}}, "svc"},
		{"undefined renders empty", "a{{ missing }}b{{ nope.x }}c", nil, "abc"},
		{"unknown filter skipped", "{{ x|shout|upper }}", map[string]any{"x": "a"}, "A"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := render(t, tc.src, tc.data); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRenderLoops(t *testing.T) {
	data := map[string]any{
		"xs": []int{1, 2, 3},
		"users": []map[string]any{
			{"name": "ada", "roles": []string{"admin", "dev"}},
			{"name": "bob", "roles": []string{"ops"}},
		},
		"empty": []string{},
		"name":  "global-name",
	}
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"scalars", "{% for i in xs %}{{ i }},{% endfor %}", "1,2,3,"},
		{"index", "{% for i in xs %}{{ loop.index }}{% endfor %}", "012"},
		{"last marker once", "{% for i in xs %}{{ i }}{% if loop.last %}!{% endif %}{% endfor %}", "123!"},
		{"stores", "{% for u in users %}{{ u.name }};{% endfor %}", "ada;bob;"},
		{"nested with shadowed loop", "{% for u in users %}{% for r in u.roles %}{{ u.name }}:{{ r }}{% if loop.last %}.{% else %},{% endif %}{% endfor %}{% endfor %}", "ada:admin,ada:dev.bob:ops."},
		{"loop scope restored", "{% for u in users %}{% for r in u.roles %}{% endfor %}{{ loop.index }}{% endfor %}", "01"},
		{"empty collection", "[{% for i in empty %}x{% endfor %}]", "[]"},
		{"missing collection", "[{% for i in nothing %}x{% endfor %}]after", "[]after"},
		{"global visible inside", "{% for i in xs %}{{ global.name }}{% endfor %}", "global-nameglobal-nameglobal-name"},
		{"variable gone after loop", "{% for name in xs %}{% endfor %}{{ name }}", "global-name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := render(t, tc.src, data); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRenderConditionals(t *testing.T) {
	src := "{% if x %}A{% else %}B{% endif %}"
	cases := []struct {
		name string
		data map[string]any
		want string
	}{
		{"empty string", map[string]any{"x": ""}, "B"},
		{"string", map[string]any{"x": "y"}, "A"},
		{"missing", nil, "B"},
		{"false", map[string]any{"x": false}, "B"},
		{"true", map[string]any{"x": true}, "A"},
		{"zero", map[string]any{"x": 0}, "B"},
		{"list", map[string]any{"x": []int{1}}, "A"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := render(t, src, tc.data); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRenderNestedConditionals(t *testing.T) {
	src := "{% if a %}1{% if b %}2{% else %}3{% endif %}4{% else %}5{% if b %}6{% else %}7{% endif %}{% endif %}"
	cases := []struct {
		a, b bool
		want string
	}{
		{true, true, "124"},
		{true, false, "134"},
		{false, true, "56"},
		{false, false, "57"},
	}
	for _, tc := range cases {
		got := render(t, src, map[string]any{"a": tc.a, "b": tc.b})
		if got != tc.want {
			t.Fatalf("a=%v b=%v: got %q, want %q", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestRenderMultiTokenConditionIsFalse(t *testing.T) {
	rec, log := testutil.NewRecorder()
	env := NewEnvironment(WithLogger(log))
	out, err := env.NewTemplate("t", "{% if a == b %}A{% else %}B{% endif %}").Render(attrs.FromMap(map[string]any{"a": "x", "b": "x"}))
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if out != "B" {
		t.Fatalf("got %q, want B", out)
	}
	if !rec.Contains("unsupported condition") {
		t.Fatalf("expected debug log, got:\n%s", rec)
	}
}

func TestRenderTrimBlocksPaired(t *testing.T) {
	src := "{% for i in xs %}\n{{ i }}\n{% endfor %}\ndone\n"
	data := attrs.FromMap(map[string]any{"xs": []int{1, 2}})

	cases := []struct {
		trim bool
		want string
	}{
		{false, "\n1\n\n2\n\ndone\n"},
		{true, "1\n2\ndone\n"},
	}
	for _, tc := range cases {
		env := NewEnvironment(WithTrimBlocks(tc.trim))
		got, err := env.NewTemplate("t", src).Render(data)
		if err != nil {
			t.Fatalf("trim=%v: render error: %v", tc.trim, err)
		}
		if got != tc.want {
			t.Fatalf("trim=%v: got %q, want %q", tc.trim, got, tc.want)
		}
	}
}

func TestRenderParseErrorReturnsNoOutput(t *testing.T) {
	var buf bytes.Buffer
	err := New("t", "text{% endfor %}").Execute(&buf, attrs.New())
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("want *ParseError, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("output written on error: %q", buf.String())
	}
}

func TestExecute(t *testing.T) {
	var buf bytes.Buffer
	if err := New("t", "{{ a }}-{{ b }}").Execute(&buf, attrs.FromMap(map[string]any{"a": 1, "b": "two"})); err != nil {
		t.Fatalf("execute error: %v", err)
	}
	if buf.String() != "1-two" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestRenderNilData(t *testing.T) {
	out, err := New("t", "a{{ x }}b").Render(nil)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if out != "ab" {
		t.Fatalf("got %q", out)
	}
}

func TestRenderLogsBindingMisses(t *testing.T) {
	rec, log := testutil.NewRecorder()
	env := NewEnvironment(WithLogger(log))
	if _, err := env.NewTemplate("page", "{{ who.name }}").Render(attrs.New()); err != nil {
		t.Fatalf("render error: %v", err)
	}
	s := rec.String()
	if !strings.Contains(s, "unresolved placeholder") || !strings.Contains(s, "template=page") {
		t.Fatalf("unexpected log output:\n%s", s)
	}
}

func TestRenderConcurrent(t *testing.T) {
	tmpl := NewEnvironment(WithParseCache(true)).NewTemplate("t", "{% for i in xs %}{{ i }}{% endfor %}")
	data := attrs.FromMap(map[string]any{"xs": []int{1, 2, 3}})
	errs := make(chan error, 8)
	for range 8 {
		go func() {
			out, err := tmpl.Render(data)
			if err == nil && out != "123" {
				err = errors.New("unexpected output " + out)
			}
			errs <- err
		}()
	}
	for range 8 {
		if err := <-errs; err != nil {
			t.Fatal(err)
		}
	}
}
