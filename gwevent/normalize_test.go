package gwevent

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prognoshealth/vtlemu/jsonvalue"
)

func TestNormalize_empty(t *testing.T) {
	n := Normalize(Request{})

	assert.Equal(t, "GET", n.Method)
	assert.Equal(t, "/", n.Path)
	assert.Empty(t, n.Headers)
	assert.NotNil(t, n.Headers)
	assert.NotNil(t, n.Query)
	assert.NotNil(t, n.PathParams)
	assert.NotNil(t, n.StageVariables)
	assert.NotNil(t, n.RequestContext)
	assert.Equal(t, "", n.RawBody)
	assert.Equal(t, jsonvalue.NewObject(), n.ParsedBody)
	assert.NoError(t, n.BodyErr)
}

func TestNormalize_headersLowerCased(t *testing.T) {
	req := Request{Headers: map[string]string{"Content-Type": "application/json", "X-API-Key": "Secret"}}
	n := Normalize(req)

	assert.Equal(t, map[string]string{"content-type": "application/json", "x-api-key": "Secret"}, n.Headers)

	v, ok := n.Header("CONTENT-TYPE")
	assert.True(t, ok)
	assert.Equal(t, "application/json", v)

	// the original request is left alone
	assert.Contains(t, req.Headers, "Content-Type")
}

func TestNormalize_invalidBody(t *testing.T) {
	n := Normalize(Request{Body: "{invalid"})

	assert.Equal(t, "{invalid", n.RawBody)
	assert.Equal(t, jsonvalue.NewObject(), n.ParsedBody)
	assert.Error(t, n.BodyErr)
}

func TestNormalize_stringBody(t *testing.T) {
	n := Normalize(Request{Body: `{"price": 10.00}`})

	assert.Equal(t, `{"price": 10.00}`, n.RawBody)
	out, err := jsonvalue.Stringify(n.ParsedBody)
	assert.NoError(t, err)
	assert.Equal(t, `{"price":10.00}`, out)
}

func TestNormalize_objectBody(t *testing.T) {
	n := Normalize(Request{Body: map[string]interface{}{"b": 1, "a": "x"}})

	assert.Equal(t, `{"a":"x","b":1}`, n.RawBody)
	obj, ok := n.ParsedBody.(*jsonvalue.Object)
	require.True(t, ok)
	assert.Equal(t, 2, obj.Len())
}

func TestNormalize_base64Body(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"id":7}`))
	n := Normalize(Request{Body: encoded, IsBase64Encoded: true})

	assert.Equal(t, `{"id":7}`, n.RawBody)

	n = Normalize(Request{Body: "sefdfxsdf.d.dsd", IsBase64Encoded: true})
	assert.Equal(t, "sefdfxsdf.d.dsd", n.RawBody)
}

func TestParse_bodyShapes(t *testing.T) {
	cases := []struct {
		json     string
		expected interface{}
	}{
		{`{"body": "plain text"}`, "plain text"},
		{`{"body": null}`, nil},
		{`{}`, nil},
		{`{"body": {"b": 1,  "a": 2}}`, json.RawMessage(`{"b": 1,  "a": 2}`)},
	}

	for _, c := range cases {
		r, err := Parse([]byte(c.json))
		assert.NoError(t, err)
		assert.Equal(t, c.expected, r.Body)
	}
}

func TestParse_rawBodyPreserved(t *testing.T) {
	r, err := Parse([]byte(`{"body": {"b": 1,  "a": 2.50}}`))
	require.NoError(t, err)

	n := Normalize(r)
	assert.Equal(t, `{"b": 1,  "a": 2.50}`, n.RawBody)
}

func TestParse_contextAlias(t *testing.T) {
	r, err := Parse([]byte(`{"context": {"stage": "dev"}}`))

	assert.NoError(t, err)
	assert.Equal(t, "dev", r.RequestContext["stage"])
}

func TestParse_error(t *testing.T) {
	_, err := Parse([]byte(`{...`))
	assert.Error(t, err)

	r, err := Parse([]byte("  "))
	assert.NoError(t, err)
	assert.Equal(t, Request{}, r)
}

func TestLoad(t *testing.T) {
	r, err := Load(strings.NewReader(`{"httpMethod": "PUT", "path": "/x"}`))

	assert.NoError(t, err)
	assert.Equal(t, "PUT", r.HTTPMethod)
	assert.Equal(t, "/x", r.Path)
}

func TestFromProxyRequest(t *testing.T) {
	r := FromProxyRequest(dummyAPIGatewayProxyRequest("petstore"))
	n := Normalize(r)

	assert.Equal(t, "POST", n.Method)
	assert.Equal(t, "/pets/42", n.Path)
	assert.Equal(t, "application/json", n.Headers["content-type"])
	assert.Equal(t, "42", n.PathParams["petId"])
	assert.Equal(t, "true", n.Query["verbose"])
	assert.Equal(t, "pets.internal", n.StageVariables["backend"])
	assert.Equal(t, "999988887777", n.RequestContext["accountId"])
	assert.Equal(t, "prod", n.RequestContext["stage"])

	identity, ok := n.RequestContext["identity"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "203.0.113.7", identity["sourceIp"])

	assert.Equal(t, `{"name": "Rex", "price": 10.00}`, n.RawBody)
}

func TestFromV2HTTPRequest(t *testing.T) {
	r := FromV2HTTPRequest(dummyAPIGatewayV2HTTPRequest("base64"))
	n := Normalize(r)

	assert.Equal(t, "POST", n.Method)
	assert.Equal(t, "/orders", n.Path)
	assert.Equal(t, "2", n.Query["page"])
	assert.Equal(t, `{"id": 7}`, n.RawBody)
	assert.Equal(t, "POST", n.RequestContext["httpMethod"])
	assert.Equal(t, "POST /orders", n.RequestContext["resourcePath"])
	assert.Equal(t, "111122223333", n.RequestContext["accountId"])

	identity, ok := n.RequestContext["identity"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "198.51.100.1", identity["sourceIp"])
}

func TestNormalize_rawMessageBody(t *testing.T) {
	n := Normalize(Request{Body: json.RawMessage(`{"b": 1, "a": [true]}`)})

	assert.Equal(t, `{"b": 1, "a": [true]}`, n.RawBody)
	assert.NoError(t, n.BodyErr)
	out, err := jsonvalue.Stringify(n.ParsedBody)
	assert.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":[true]}`, out)

	n = Normalize(Request{Body: json.RawMessage(`{oops`)})
	assert.Equal(t, `{oops`, n.RawBody)
	assert.Equal(t, jsonvalue.NewObject(), n.ParsedBody)
	assert.Error(t, n.BodyErr)
}

func TestNormalize_byteBody(t *testing.T) {
	n := Normalize(Request{Body: []byte(`[1,2]`)})

	assert.Equal(t, `[1,2]`, n.RawBody)
	out, err := jsonvalue.Stringify(n.ParsedBody)
	assert.NoError(t, err)
	assert.Equal(t, `[1,2]`, out)
}
