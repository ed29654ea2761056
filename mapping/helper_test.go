package mapping

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/prognoshealth/vtlemu/gwevent"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 5, 6, 7, 8, 9000000, time.UTC)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testRenderer(opts ...RendererOption) *Renderer {
	opts = append([]RendererOption{WithClock(fixedClock), WithLogger(quietLogger())}, opts...)
	return NewRenderer(opts...)
}

func render(t *testing.T, template string, req gwevent.Request) string {
	t.Helper()

	out, err := testRenderer().Render(template, req, Options{ThrowOnError: true})
	require.NoError(t, err, template)
	return out
}

func petstoreRequest() gwevent.Request {
	return gwevent.Request{
		HTTPMethod:            "POST",
		Path:                  "/pets/42",
		Headers:               map[string]string{"Content-Type": "application/json", "X-Trace-Id": "t-1"},
		QueryStringParameters: map[string]string{"verbose": "true", "name": "World"},
		PathParameters:        map[string]string{"petId": "42"},
		Body:                  `{"user": {"name": "Alice", "tags": ["a", "b"]}, "price": 10.00}`,
		StageVariables:        map[string]string{"backend": "pets.internal"},
		RequestContext: map[string]interface{}{
			"stage":     "prod",
			"accountId": "999988887777",
			"identity": map[string]interface{}{
				"sourceIp": "203.0.113.7",
			},
		},
	}
}
