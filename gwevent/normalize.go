package gwevent

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/prognoshealth/vtlemu/jsonvalue"
)

const (
	// DefaultMethod is used when the request carries no HTTP method.
	DefaultMethod = "GET"

	// DefaultPath is used when the request carries no path.
	DefaultPath = "/"
)

// Normalized is the read-only view of a request the accessors work from.
// It is built once per render and discarded afterwards.
type Normalized struct {
	Method         string
	Path           string
	Headers        map[string]string
	Query          map[string]string
	PathParams     map[string]string
	ParsedBody     interface{}
	RawBody        string
	StageVariables map[string]string
	RequestContext map[string]interface{}

	// BodyErr records why RawBody could not be parsed as JSON. It never
	// reaches a template.
	BodyErr error
}

// Normalize derives the canonical view of req. Missing maps become empty
// maps, header names are lower-cased and the body is parsed leniently: a
// body that is not JSON parses as an empty object while RawBody keeps the
// original text.
func Normalize(req Request) *Normalized {
	n := &Normalized{
		Method:         req.HTTPMethod,
		Path:           req.Path,
		Headers:        lowerKeys(req.Headers),
		Query:          copyStrings(req.QueryStringParameters),
		PathParams:     copyStrings(req.PathParameters),
		StageVariables: copyStrings(req.StageVariables),
		RequestContext: copyContext(req.RequestContext),
	}

	if n.Method == "" {
		n.Method = DefaultMethod
	}

	if n.Path == "" {
		n.Path = DefaultPath
	}

	n.RawBody, n.ParsedBody, n.BodyErr = body(req)

	return n
}

// Header returns the header value for name, ignoring case.
func (n *Normalized) Header(name string) (string, bool) {
	v, ok := n.Headers[strings.ToLower(name)]
	return v, ok
}

func body(req Request) (string, interface{}, error) {
	switch b := req.Body.(type) {
	case nil:
		return "", jsonvalue.NewObject(), nil
	case string:
		raw := b
		if req.IsBase64Encoded {
			if decoded, err := base64.StdEncoding.DecodeString(b); err == nil {
				raw = string(decoded)
			}
		}
		v, err := parseOrEmpty(raw)
		return raw, v, err
	case []byte:
		return body(Request{Body: string(b), IsBase64Encoded: req.IsBase64Encoded})
	case json.RawMessage:
		raw := string(b)
		v, err := parseOrEmpty(raw)
		return raw, v, err
	default:
		raw, err := jsonvalue.Stringify(b)
		if err != nil {
			return "", jsonvalue.NewObject(), err
		}
		return raw, jsonvalue.FromNative(b), nil
	}
}

func parseOrEmpty(raw string) (interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return jsonvalue.NewObject(), nil
	}

	v, err := jsonvalue.Parse(raw)
	if err != nil {
		return jsonvalue.NewObject(), err
	}

	return v, nil
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

func copyStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyContext(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
