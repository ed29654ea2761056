package renderapi

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prognoshealth/vtlemu/mapping"
)

func testService(defaults mapping.Options) *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	clock := func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	renderer := mapping.NewRenderer(mapping.WithClock(clock), mapping.WithLogger(logger))

	return NewService(renderer, defaults, logger)
}

func TestService_Handle(t *testing.T) {
	s := testService(mapping.Options{})

	status, payload := s.Handle([]byte(`{
		"template": "Hello, $input.params('name')! #set($context.responseOverride.status = 201)",
		"event": {"queryStringParameters": {"name": "World"}}
	}`))

	require.Equal(t, http.StatusOK, status)
	res, ok := payload.(Response)
	require.True(t, ok)
	assert.Equal(t, "Hello, World!", res.Result)
	assert.Equal(t, 201, res.Overrides.Response.Status)
}

func TestService_Handle_contextAlias(t *testing.T) {
	s := testService(mapping.Options{})

	status, payload := s.Handle([]byte(`{"template": "$input.json('$.a')", "context": {"body": "{\"a\": 1}"}}`))

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1", payload.(Response).Result)
}

func TestService_Handle_missingTemplate(t *testing.T) {
	s := testService(mapping.Options{})

	for _, body := range []string{``, `{}`, `{"template": ""}`} {
		status, payload := s.Handle([]byte(body))

		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.Equal(t, ErrorResponse{Error: `Missing "template" in request body.`}, payload, body)
	}
}

func TestService_Handle_badJSON(t *testing.T) {
	s := testService(mapping.Options{})

	status, payload := s.Handle([]byte(`{"template":`))

	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, payload.(ErrorResponse).Error)
}

func TestService_Handle_invalidOptions(t *testing.T) {
	s := testService(mapping.Options{})

	status, _ := s.Handle([]byte(`{"template": "x", "options": {"jsonMiss": "zero"}}`))

	assert.Equal(t, http.StatusBadRequest, status)
}

func TestService_Handle_templateErrors(t *testing.T) {
	s := testService(mapping.Options{})

	status, payload := s.Handle([]byte(`{"template": "#if(true) open"}`))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Error: line 1, column 1: #if without #end", payload.(Response).Result)

	status, payload = s.Handle([]byte(`{"template": "#if(true) open", "options": {"throwOnError": true}}`))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "line 1, column 1: #if without #end", payload.(ErrorResponse).Error)
}

func TestService_Options(t *testing.T) {
	s := testService(mapping.Options{MinifyJSON: true, ThrowOnError: true})

	assert.Equal(t, mapping.Options{MinifyJSON: true, ThrowOnError: true}, s.Options(&Request{}))

	off := false
	opts := s.Options(&Request{Options: &RequestOptions{ThrowOnError: &off, JSONMiss: "null"}})
	assert.Equal(t, mapping.Options{MinifyJSON: true, JSONMiss: mapping.JSONMissNull}, opts)
}
