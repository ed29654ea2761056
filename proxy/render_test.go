package proxy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prognoshealth/vtlemu/mapping"
	"github.com/prognoshealth/vtlemu/renderapi"
)

func testRenderRouter() *Router {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := renderapi.NewService(mapping.NewRenderer(mapping.WithLogger(logger)), mapping.Options{}, logger)
	return NewRenderRouter(svc, logger)
}

func TestRenderRouter_render(t *testing.T) {
	r := testRenderRouter()
	require.True(t, r.Valid())

	request := testRequest(POST, "/render")
	request.Body = `{"template": "{\"name\": \"$input.json('$.name')\"}", "event": {"body": {"name": "Ada"}}}`

	response, err := r.Route(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, 200, response.StatusCode)
	assert.Equal(t, "application/json", response.Headers["Content-Type"])

	var payload renderapi.Response
	require.NoError(t, json.Unmarshal([]byte(response.Body), &payload))
	assert.Equal(t, `{"name": "Ada"}`, payload.Result)
}

func TestRenderRouter_render_base64(t *testing.T) {
	r := testRenderRouter()

	request := testRequest(POST, "/render")
	request.Body = base64.StdEncoding.EncodeToString([]byte(`{"template": "$context.httpMethod"}`))
	request.IsBase64Encoded = true

	response, err := r.Route(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, 200, response.StatusCode)
	assert.JSONEq(t, `{"result": "GET", "overrides": {"request": {"header": {}, "path": {}, "querystring": {}}, "response": {"header": {}}}}`, response.Body)
}

func TestRenderRouter_missingTemplate(t *testing.T) {
	r := testRenderRouter()

	request := testRequest(POST, "/render")
	request.Body = `{"event": {}}`

	response, err := r.Route(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, 400, response.StatusCode)
	assert.JSONEq(t, `{"error": "Missing \"template\" in request body."}`, response.Body)
}

func TestRenderRouter_strictError(t *testing.T) {
	r := testRenderRouter()

	request := testRequest(POST, "/render")
	request.Body = `{"template": "#foreach($x [1])#end", "options": {"throwOnError": true}}`

	response, err := r.Route(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, 422, response.StatusCode)
	assert.Contains(t, response.Body, "#foreach expects 'in'")
}

func TestRenderRouter_health(t *testing.T) {
	response, err := testRenderRouter().Route(context.Background(), testRequest(GET, "/health"))

	require.NoError(t, err)
	assert.Equal(t, 200, response.StatusCode)
	assert.JSONEq(t, `{"status": "healthy"}`, response.Body)
}

func TestRenderRouter_notFound(t *testing.T) {
	response, err := testRenderRouter().Route(context.Background(), testRequest(GET, "/render"))

	require.NoError(t, err)
	assert.Equal(t, 404, response.StatusCode)
}

func TestRenderRouter_handlerError(t *testing.T) {
	r := testRenderRouter()
	r.GET("/boom", func(ctx *RouteContext) (events.APIGatewayProxyResponse, error) {
		return events.APIGatewayProxyResponse{}, errors.New("boom")
	})

	response, err := r.Route(context.Background(), testRequest(GET, "/boom"))

	require.NoError(t, err)
	assert.Equal(t, 500, response.StatusCode)
	assert.JSONEq(t, `{"error": "internal server error"}`, response.Body)
}

func TestRenderRouter_badBase64(t *testing.T) {
	request := testRequest(POST, "/render")
	request.Body = "not base64!"
	request.IsBase64Encoded = true

	response, err := testRenderRouter().Route(context.Background(), request)

	require.NoError(t, err)
	assert.Equal(t, 400, response.StatusCode)
	assert.Contains(t, response.Body, "illegal base64 data")
}

func TestRenderRouter_preview(t *testing.T) {
	r := testRenderRouter()

	cases := []struct {
		name     string
		query    map[string]string
		status   int
		expected string
	}{
		{"query template", map[string]string{"template": "$input.params('name') $context.httpMethod", "name": "Ada"}, 200, `{"result": "Ada GET"}`},
		{"method override", map[string]string{"template": "$input.method() $context.httpMethod", "method": "put"}, 200, `{"result": "PUT PUT"}`},
		{"unknown method", map[string]string{"template": "x", "method": "fetch"}, 400, `{"error": "unknown http method 'fetch'"}`},
		{"missing template", map[string]string{"name": "Ada"}, 400, `{"error": "Missing \"template\" in request body."}`},
	}

	for _, c := range cases {
		request := testRequest(GET, "/preview")
		request.QueryStringParameters = c.query

		response, err := r.Route(context.Background(), request)
		require.NoError(t, err, c.name)
		assert.Equal(t, c.status, response.StatusCode, c.name)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(response.Body), &payload), c.name)
		delete(payload, "overrides")
		actual, _ := json.Marshal(payload)
		assert.JSONEq(t, c.expected, string(actual), c.name)
	}
}

func TestRenderRouter_previewFormPost(t *testing.T) {
	request := testRequest(POST, "/preview")
	request.Headers["content-type"] = "application/x-www-form-urlencoded"
	request.Body = "template=%24input.body&greeting=hi+there"

	response, err := testRenderRouter().Route(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, 200, response.StatusCode)

	var payload renderapi.Response
	require.NoError(t, json.Unmarshal([]byte(response.Body), &payload))
	assert.Equal(t, request.Body, payload.Result)
}

func TestHttpMethod_String(t *testing.T) {
	assert.Equal(t, "GET", GET.String())
	assert.Equal(t, "PATCH", PATCH.String())
	assert.Equal(t, "UNKNOWN", HttpMethod(42).String())

	m, err := ParseHttpMethod("delete")
	assert.NoError(t, err)
	assert.Equal(t, DELETE, m)

	_, err = ParseHttpMethod("FETCH")
	assert.Error(t, err)
}
