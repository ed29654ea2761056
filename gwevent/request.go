// Package gwevent models the simulated request a mapping template is
// evaluated against. The shape mirrors the API Gateway Lambda proxy
// integration event so real events can be replayed unchanged.
package gwevent

import (
	"bytes"
	"encoding/json"
	"io"
	"io/ioutil"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
)

// Request is a simulated API Gateway request. Every field is optional.
//
// Body is either nil, a string, a json.RawMessage holding a JSON document or
// any Go value produced by encoding/json.
type Request struct {
	HTTPMethod            string                 `json:"httpMethod,omitempty"`
	Path                  string                 `json:"path,omitempty"`
	Headers               map[string]string      `json:"headers,omitempty"`
	QueryStringParameters map[string]string      `json:"queryStringParameters,omitempty"`
	PathParameters        map[string]string      `json:"pathParameters,omitempty"`
	Body                  interface{}            `json:"body,omitempty"`
	IsBase64Encoded       bool                   `json:"isBase64Encoded,omitempty"`
	StageVariables        map[string]string      `json:"stageVariables,omitempty"`
	RequestContext        map[string]interface{} `json:"requestContext,omitempty"`
}

// wireRequest is the decoding shape. "context" is accepted as an alias of
// requestContext, which older emulator payloads used.
type wireRequest struct {
	HTTPMethod            string                 `json:"httpMethod"`
	Path                  string                 `json:"path"`
	Headers               map[string]string      `json:"headers"`
	QueryStringParameters map[string]string      `json:"queryStringParameters"`
	PathParameters        map[string]string      `json:"pathParameters"`
	Body                  json.RawMessage        `json:"body"`
	IsBase64Encoded       bool                   `json:"isBase64Encoded"`
	StageVariables        map[string]string      `json:"stageVariables"`
	RequestContext        map[string]interface{} `json:"requestContext"`
	Context               map[string]interface{} `json:"context"`
}

// UnmarshalJSON decodes a proxy event. A string body stays a string, an
// object or array body is kept as the raw JSON text so its formatting
// survives into $input.body.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return errors.Wrap(err, "failed decoding request")
	}

	*r = Request{
		HTTPMethod:            w.HTTPMethod,
		Path:                  w.Path,
		Headers:               w.Headers,
		QueryStringParameters: w.QueryStringParameters,
		PathParameters:        w.PathParameters,
		IsBase64Encoded:       w.IsBase64Encoded,
		StageVariables:        w.StageVariables,
		RequestContext:        w.RequestContext,
	}

	if r.RequestContext == nil {
		r.RequestContext = w.Context
	}

	raw := bytes.TrimSpace(w.Body)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")):
		r.Body = nil
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return errors.Wrap(err, "failed decoding request body")
		}
		r.Body = s
	default:
		r.Body = json.RawMessage(raw)
	}

	return nil
}

// Parse decodes a request from proxy event JSON.
func Parse(data []byte) (Request, error) {
	var r Request
	if len(bytes.TrimSpace(data)) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return Request{}, err
	}
	return r, nil
}

// Load reads and decodes a request from rd.
func Load(rd io.Reader) (Request, error) {
	data, err := ioutil.ReadAll(rd)
	if err != nil {
		return Request{}, errors.Wrap(err, "failed reading request")
	}
	return Parse(data)
}

// FromProxyRequest builds a simulated request from a REST API (v1) proxy
// event.
func FromProxyRequest(event events.APIGatewayProxyRequest) Request {
	return Request{
		HTTPMethod:            event.HTTPMethod,
		Path:                  event.Path,
		Headers:               event.Headers,
		QueryStringParameters: event.QueryStringParameters,
		PathParameters:        event.PathParameters,
		Body:                  event.Body,
		IsBase64Encoded:       event.IsBase64Encoded,
		StageVariables:        event.StageVariables,
		RequestContext:        toMap(event.RequestContext),
	}
}

// FromV2HTTPRequest builds a simulated request from an HTTP API (v2) event.
// The v2 request context is flattened into the v1 field names templates
// use.
func FromV2HTTPRequest(event events.APIGatewayV2HTTPRequest) Request {
	rc := toMap(event.RequestContext)
	if rc == nil {
		rc = map[string]interface{}{}
	}

	http := event.RequestContext.HTTP
	rc["httpMethod"] = http.Method
	rc["path"] = http.Path
	rc["protocol"] = http.Protocol
	rc["resourcePath"] = event.RouteKey
	rc["identity"] = map[string]interface{}{
		"sourceIp":  http.SourceIP,
		"userAgent": http.UserAgent,
	}

	return Request{
		HTTPMethod:            http.Method,
		Path:                  event.RawPath,
		Headers:               event.Headers,
		QueryStringParameters: event.QueryStringParameters,
		PathParameters:        event.PathParameters,
		Body:                  event.Body,
		IsBase64Encoded:       event.IsBase64Encoded,
		StageVariables:        event.StageVariables,
		RequestContext:        rc,
	}
}

// toMap converts an aws-lambda-go context struct into a generic map using
// its json tags.
func toMap(v interface{}) map[string]interface{} {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	m := map[string]interface{}{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}

	return m
}
