package mapping

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prognoshealth/vtlemu/gwevent"
	"github.com/prognoshealth/vtlemu/jsonvalue"
)

func TestInput_paramsQuerystringScenario(t *testing.T) {
	req := gwevent.Request{QueryStringParameters: map[string]string{"name": "World"}}

	assert.Equal(t, "Hello, World!", render(t, `Hello, $input.params().querystring.get("name")!`, req))
}

func TestInput_jsonScenario(t *testing.T) {
	req := gwevent.Request{Body: `{"user":{"name":"Alice"}}`}

	assert.Equal(t, "Alice", render(t, `$input.json("$.user.name")`, req))
}

func TestInput_jsonMalformedBody(t *testing.T) {
	req := gwevent.Request{Body: "{invalid"}

	assert.Equal(t, "{}", render(t, `$input.json("$")`, req))
	assert.Equal(t, "{invalid", render(t, `$input.body`, req))
}

func TestInput_jsonWholeAndMissing(t *testing.T) {
	req := gwevent.Request{Body: `{"a":1}`}

	assert.Equal(t, `{"a":1}`, render(t, `$input.json('$')`, req))
	assert.Equal(t, `{"a":1}`, render(t, `$input.json('')`, req))
	assert.Equal(t, `[]`, render(t, `[$input.json('$.missing')]`, req))
	assert.Equal(t, `[]`, render(t, `[$input.json('a')]`, req))
}

func TestInput_jsonMissNull(t *testing.T) {
	n := gwevent.Normalize(gwevent.Request{Body: `{"a":1,"b":null}`})

	empty := NewInput(n, JSONMissEmpty)
	null := NewInput(n, JSONMissNull)

	// the empty string is the implemented contract
	assert.Equal(t, "", empty.JSON("$.missing"))
	// null is the alternate seen in other renderers
	assert.Equal(t, "null", null.JSON("$.missing"))

	assert.Equal(t, "null", empty.JSON("$.b"))
	assert.Equal(t, jsonvalueNumber("1"), empty.JSON("$.a"))
}

func TestInput_jsonNativeValues(t *testing.T) {
	req := petstoreRequest()

	assert.Equal(t, "Alice", render(t, `#set($u = $input.json('$.user'))$u.name`, req))
	assert.Equal(t, `["a","b"]`, render(t, `$input.json('$.user.tags')`, req))
	assert.Equal(t, "b", render(t, `$input.json('$.user.tags[1]')`, req))
	assert.Equal(t, "2", render(t, `$input.json('$.user.tags').size()`, req))
	assert.Equal(t, "10.00", render(t, `$input.json('$.price')`, req))
}

func TestInput_path(t *testing.T) {
	req := petstoreRequest()

	assert.Equal(t, "/pets/42", render(t, `$input.path()`, req))
	assert.Equal(t, "/pets/42", render(t, `$input.path`, req))
	assert.Equal(t, "42", render(t, `$input.path('petId')`, req))
	assert.Equal(t, "Alice", render(t, `$input.path('$.user.name')`, req))
	assert.Equal(t, "Alice", render(t, `$input.path('user.name')`, req))
	assert.Equal(t, "a", render(t, `$input.path('user.tags.0')`, req))
	assert.Equal(t, "[]", render(t, `[$input.path('nope')]`, req))

	assert.Equal(t, "/", render(t, `$input.path()`, gwevent.Request{}))
}

func TestInput_body(t *testing.T) {
	req := petstoreRequest()

	assert.Equal(t, `{"user": {"name": "Alice", "tags": ["a", "b"]}, "price": 10.00}`, render(t, `$input.body`, req))
	assert.Equal(t, render(t, `$input.body`, req), render(t, `$input.getBody()`, req))
}

func TestInput_headersCaseInsensitive(t *testing.T) {
	req := petstoreRequest()

	assert.Equal(t, "application/json|application/json|application/json",
		render(t, `$input.header('Content-Type')|$input.header('content-type')|$input.headers('CONTENT-TYPE')`, req))
	assert.Equal(t, "t-1", render(t, `$input.params().header.get('x-trace-id')`, req))
	assert.Equal(t, "t-1", render(t, `$input.params().header.get('X-TRACE-ID')`, req))
	assert.Equal(t, "[]", render(t, `[$input.header('missing')]`, req))
}

func TestInput_querystring(t *testing.T) {
	req := petstoreRequest()

	assert.Equal(t, "true", render(t, `$input.querystring('verbose')`, req))
	assert.Equal(t, "[]", render(t, `[$input.querystring('nope')]`, req))
}

func TestInput_paramsSearchOrder(t *testing.T) {
	req := gwevent.Request{
		PathParameters:        map[string]string{"id": "p"},
		QueryStringParameters: map[string]string{"id": "q", "page": "2"},
		Headers:               map[string]string{"id": "h", "X-Only": "header"},
	}

	assert.Equal(t, "p", render(t, `$input.params('id')`, req))
	assert.Equal(t, "2", render(t, `$input.params('page')`, req))
	assert.Equal(t, "header", render(t, `$input.params('x-only')`, req))
	assert.Equal(t, "[]", render(t, `[$input.params('none')]`, req))
}

func TestInput_paramGroups(t *testing.T) {
	req := petstoreRequest()

	assert.Equal(t, `["path","querystring","header"]`, render(t, `$input.params().keySet()`, req))
	assert.Equal(t, `["name","verbose"]`, render(t, `$input.params().querystring.keySet()`, req))
	assert.Equal(t, "2", render(t, `$input.params().get('querystring').size()`, req))
	assert.Equal(t, "true false", render(t, `$input.params().path.containsKey('petId') $input.params().path.isEmpty()`, req))
	assert.Equal(t, "42", render(t, `$input.params().path.petId`, req))
	assert.Equal(t, "[]", render(t, `[$input.params().path.get('nope')]`, req))
}

func TestInput_paramsRenderAsJSON(t *testing.T) {
	req := petstoreRequest()

	query := `{"name":"World","verbose":"true"}`
	header := `{"content-type":"application/json","x-trace-id":"t-1"}`

	cases := []struct {
		template string
		expected string
	}{
		{`$input.params()`, `{"path":{"petId":"42"},"querystring":` + query + `,"header":` + header + `}`},
		{`$input.params().header`, header},
		{`$input.params().querystring`, query},
		{`$input.params().querystring.toString()`, query},
		{`$util.toJson($input.params().path)`, `{"petId":"42"}`},
		{`$util.toJson($input.params())`, `{"path":{"petId":"42"},"querystring":` + query + `,"header":` + header + `}`},
		{`$input.params().path`, `{"petId":"42"}`},
		{`$stageVariables`, `{"backend":"pets.internal"}`},
		{`$util.toJson($stageVariables)`, `{"backend":"pets.internal"}`},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, render(t, c.template, req), c.template)
	}

	assert.Equal(t, `{"path":{},"querystring":{},"header":{}}`, render(t, `$input.params()`, gwevent.Request{}))
	assert.Equal(t, `{}`, render(t, `$stageVariables`, gwevent.Request{}))
}

func TestParams_MarshalJSON(t *testing.T) {
	in := NewInput(gwevent.Normalize(petstoreRequest()), JSONMissEmpty)

	raw, err := json.Marshal(in.Params().Path)

	assert.NoError(t, err)
	assert.Equal(t, `{"petId":"42"}`, string(raw))
}

func TestInput_methodAndSize(t *testing.T) {
	assert.Equal(t, "POST", render(t, `$input.method()`, petstoreRequest()))
	assert.Equal(t, "GET", render(t, `$input.method()`, gwevent.Request{}))

	assert.Equal(t, "2", render(t, `$input.size()`, petstoreRequest()))
	assert.Equal(t, "3", render(t, `$input.size()`, gwevent.Request{Body: `[1,2,3]`}))
	assert.Equal(t, "0", render(t, `$input.size()`, gwevent.Request{Body: `"text"`}))
}

func TestInput_all(t *testing.T) {
	req := gwevent.Request{
		Body:                  `{"a":1}`,
		PathParameters:        map[string]string{"id": "7"},
		QueryStringParameters: map[string]string{"q": "x"},
		Headers:               map[string]string{"Accept": "*/*"},
	}

	assert.Equal(t, `{"body":{"a":1},"path":{"id":"7"},"querystring":{"q":"x"},"header":{"accept":"*/*"}}`,
		render(t, `$input.all()`, req))
}

func jsonvalueNumber(s string) interface{} {
	v, _ := jsonvalue.Parse(s)
	return v
}
