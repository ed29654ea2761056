package jsonpath

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prognoshealth/vtlemu/jsonvalue"
)

func doc(t *testing.T, text string) interface{} {
	v, err := jsonvalue.Parse(text)
	require.NoError(t, err)
	return v
}

func TestEvaluate_root(t *testing.T) {
	d := doc(t, `{"a":1}`)

	for _, p := range []string{"", "$"} {
		v, ok := Evaluate(d, p)
		assert.True(t, ok)
		assert.Equal(t, d, v)
	}
}

func TestEvaluate(t *testing.T) {
	d := doc(t, `{"user":{"name":"Alice","tags":["a","b"],"pets":[{"kind":"cat"}]},"0":"zero","odd key":true}`)

	cases := []struct {
		path     string
		expected interface{}
		found    bool
	}{
		{"$.user.name", "Alice", true},
		{"$.user.tags[1]", "b", true},
		{"$.user.tags.0", "a", true},
		{"$.user.pets[0].kind", "cat", true},
		{"$.user.pets.0.kind", "cat", true},
		{"$['odd key']", true, true},
		{"$.0", "zero", true},
		{"$.user.tags[2]", nil, false},
		{"$.user.tags[-1]", nil, false},
		{"$.user.name.first", nil, false},
		{"$.missing", nil, false},
		{"$.user.tags.x", nil, false},
		{"user.name", nil, false},
		{"$user", nil, false},
	}

	for _, c := range cases {
		v, ok := Evaluate(d, c.path)
		assert.Equal(t, c.found, ok, c.path)
		assert.Equal(t, c.expected, v, c.path)
	}
}

func TestNavigate_bare(t *testing.T) {
	d := doc(t, `{"a":{"b":[10,20]}}`)

	cases := []struct {
		path     string
		expected interface{}
		found    bool
	}{
		{"a.b.1", json.Number("20"), true},
		{"$.a.b[0]", json.Number("10"), true},
		{"a.b[5]", nil, false},
		{"$", d, true},
		{"", d, true},
	}

	for _, c := range cases {
		v, ok := Navigate(d, c.path)
		assert.Equal(t, c.found, ok, c.path)
		assert.Equal(t, c.expected, v, c.path)
	}
}

func TestParse(t *testing.T) {
	p, err := Parse("$.a[0][1].b")
	require.NoError(t, err)

	assert.Equal(t, Path{
		{Key: "a"},
		{Index: 0, IsIndex: true},
		{Index: 1, IsIndex: true},
		{Key: "b"},
	}, p)
	assert.Equal(t, "$.a[0][1].b", p.String())
}

func TestParse_errors(t *testing.T) {
	cases := []string{"a.b", "$.a[", "$.a[x]", "$['a]"}

	for _, c := range cases {
		_, err := Parse(c)
		assert.Error(t, err, c)
	}
}

func TestParse_emptySegments(t *testing.T) {
	d := doc(t, `{"a":{"b":1},"list":[1]}`)

	for _, c := range []string{"$..a", "$.a.", "$.a..b", "$.[0]", "$.list.[0]"} {
		_, err := Parse(c)
		assert.ErrorIs(t, err, ErrEmptySegment, c)

		v, ok := Evaluate(d, c)
		assert.False(t, ok, c)
		assert.Nil(t, v, c)
	}

	v, ok := Navigate(d, "a..b")
	assert.True(t, ok)
	assert.Equal(t, json.Number("1"), v)
}

func TestLookup_native(t *testing.T) {
	v, ok := Navigate(map[string]interface{}{"k": []interface{}{"x"}}, "k.0")

	assert.True(t, ok)
	assert.Equal(t, "x", v)
}
