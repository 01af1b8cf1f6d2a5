package filterext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurodesk/stringtemplate/pkg/attrs"
	"github.com/neurodesk/stringtemplate/pkg/stringtemplate"
)

func TestFilters(t *testing.T) {
	cases := []struct {
		name string
		f    stringtemplate.Filter
		in   attrs.Value
		want attrs.Value
	}{
		{"title", Title, attrs.StringValue("hello big world"), attrs.StringValue("Hello Big World")},
		{"trim", Trim, attrs.StringValue("  x \n"), attrs.StringValue("x")},
		{"markdown", Markdown, attrs.StringValue("**hi**"), attrs.StringValue("<p><strong>hi</strong></p>\n")},
		{"title ignores ints", Title, attrs.IntValue(3), attrs.IntValue(3)},
		{"markdown ignores none", Markdown, attrs.NoneValue{}, attrs.NoneValue{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.f(tc.in, nil))
		})
	}
}

func TestRegister(t *testing.T) {
	env := stringtemplate.NewEnvironment()
	require.NoError(t, Register(env, "trim", "title"))
	assert.Equal(t, []string{"title", "trim"}, env.Filters())

	out, err := env.NewTemplate("t", "[{{ s|trim|title }}]").Render(attrs.FromMap(map[string]any{"s": "  go lang "}))
	require.NoError(t, err)
	assert.Equal(t, "[Go Lang]", out)

	require.ErrorIs(t, Register(env, "trim"), stringtemplate.ErrDuplicateFilter)
	require.Error(t, Register(env, "nope"))
}

func TestRegisterAll(t *testing.T) {
	env := stringtemplate.NewEnvironment()
	require.NoError(t, Register(env))
	assert.Equal(t, Names(), env.Filters())
}
