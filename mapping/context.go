package mapping

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/prognoshealth/vtlemu/jsonvalue"
	"github.com/prognoshealth/vtlemu/vtl"
)

// Field defaults used when the request context does not carry a value.
const (
	DefaultAccountID    = "123456789012"
	DefaultAPIID        = "abc123def4"
	DefaultStage        = "test"
	DefaultPrincipalID  = "user123"
	requestTimeLayout   = "02/Jan/2006:15:04:05 -0700"
	defaultWebACLArn    = "arn:aws:wafv2:us-east-1:123456789012:regional/webacl/test-webacl/12345678-1234-1234-1234-123456789012"
	defaultCognitoID    = "us-east-1:12345678-1234-1234-1234-123456789012"
	defaultCognitoProv  = "cognito-idp.us-east-1.amazonaws.com/us-east-1_example,cognito-idp.us-east-1.amazonaws.com/us-east-1_example:CognitoSignIn:user123"
	defaultCertPem      = "-----BEGIN CERTIFICATE-----\nMIIDXTCCAkWgAwIBAgIJAKoK/OvK5tYzMA0GCSqGSIb3DQEBCwUAMEUxCzAJBgNV\n-----END CERTIFICATE-----"
	defaultCallerID     = "AIDACKCEVSQ6C2EXAMPLE"
	defaultIdentityUA   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	defaultIdentityArn  = "arn:aws:iam::123456789012:user/example-user"
	defaultErrorMessage = "Internal server error"
)

var contextDefaults = map[string]string{
	"accountId":       DefaultAccountID,
	"apiId":           DefaultAPIID,
	"httpMethod":      "GET",
	"stage":           DefaultStage,
	"deploymentId":    "deployment-123",
	"domainName":      DefaultAPIID + ".execute-api.us-east-1.amazonaws.com",
	"domainPrefix":    DefaultAPIID,
	"path":            "/test/resource",
	"protocol":        "HTTP/1.1",
	"resourceId":      "resource-123",
	"resourcePath":    "/resource",
	"wafResponseCode": "WAF_ALLOW",
	"webaclArn":       defaultWebACLArn,
}

// contextComputed lists the $context fields derived at render time, in the
// order they are serialized after the static defaults.
var contextComputed = []string{
	"requestId",
	"extendedRequestId",
	"awsEndpointRequestId",
	"requestTime",
	"requestTimeEpoch",
	"isCanaryRequest",
	"identity",
	"authorizer",
	"error",
}

var identityDefaults = map[string]string{
	"accountId":                     DefaultAccountID,
	"apiKey":                        "",
	"apiKeyId":                      "",
	"accessKey":                     "",
	"caller":                        defaultCallerID,
	"cognitoAuthenticationProvider": defaultCognitoProv,
	"cognitoAuthenticationType":     "authenticated",
	"cognitoIdentityId":             defaultCognitoID,
	"cognitoIdentityPoolId":         defaultCognitoID,
	"principalOrgId":                "o-1234567890",
	"sourceIp":                      "192.0.2.1",
	"user":                          defaultCallerID,
	"userAgent":                     defaultIdentityUA,
	"userArn":                       defaultIdentityArn,
	"vpcId":                         "vpc-12345678",
	"vpceId":                        "vpce-12345678",
}

var clientCertDefaults = map[string]string{
	"clientCertPem": defaultCertPem,
	"subjectDN":     "CN=example.com, O=Example Corp, C=US",
	"issuerDN":      "CN=Example CA, O=Example Corp, C=US",
	"serialNumber":  "1234567890123456789012345678901234567890",
}

// Context is bound to $context. Fields missing from the request context
// fall back to static defaults; unknown fields yield "".
type Context struct {
	raw   map[string]interface{}
	clock Clock

	requestID        string
	requestOverride  *jsonvalue.Object
	responseOverride *jsonvalue.Object
}

// NewContext binds $context to a request context. A nil clock uses the
// wall clock.
func NewContext(raw map[string]interface{}, clock Clock) *Context {
	if raw == nil {
		raw = map[string]interface{}{}
	}
	if clock == nil {
		clock = defaultClock
	}

	requestOverride := jsonvalue.NewObject()
	requestOverride.Set("header", jsonvalue.NewObject())
	requestOverride.Set("path", jsonvalue.NewObject())
	requestOverride.Set("querystring", jsonvalue.NewObject())

	responseOverride := jsonvalue.NewObject()
	responseOverride.Set("header", jsonvalue.NewObject())

	c := &Context{
		raw:              raw,
		clock:            clock,
		requestOverride:  requestOverride,
		responseOverride: responseOverride,
	}

	c.requestID = lookup(raw, "requestId")
	if c.requestID == "" {
		c.requestID = uuid.NewString()
	}
	return c
}

// Field returns the named $context member.
func (c *Context) Field(name string) interface{} {
	switch name {
	case "requestId":
		return c.requestID
	case "extendedRequestId":
		if v := lookup(c.raw, name); v != "" {
			return v
		}
		return extendedID(c.requestID)
	case "awsEndpointRequestId":
		if v := lookup(c.raw, name); v != "" {
			return v
		}
		return c.requestID
	case "requestTime":
		if v := lookup(c.raw, name); v != "" {
			return v
		}
		return c.clock().UTC().Format(requestTimeLayout)
	case "requestTimeEpoch":
		if v, ok := present(c.raw, name); ok {
			return jsonvalue.FromNative(v)
		}
		return c.clock().UnixMilli()
	case "isCanaryRequest":
		if v, ok := present(c.raw, name); ok {
			return jsonvalue.FromNative(v)
		}
		return false
	case "identity":
		return &Identity{raw: nested(c.raw, "identity")}
	case "authorizer":
		return &Authorizer{raw: nested(c.raw, "authorizer")}
	case "error":
		return c.errorInfo()
	case "requestOverride":
		return c.requestOverride
	case "responseOverride":
		return c.responseOverride
	}

	if def, ok := contextDefaults[name]; ok {
		if v := lookup(c.raw, name); v != "" {
			return v
		}
		return def
	}

	if v, ok := present(c.raw, name); ok {
		return jsonvalue.FromNative(v)
	}
	return ""
}

func (c *Context) errorInfo() *jsonvalue.Object {
	info := jsonvalue.NewObject()
	raw := nested(c.raw, "error")

	for _, f := range []struct{ name, def string }{
		{"message", defaultErrorMessage},
		{"messageString", strconv.Quote(defaultErrorMessage)},
		{"responseType", "DEFAULT_5XX"},
		{"validationErrorString", "Validation error: Invalid parameter value"},
	} {
		v := lookup(raw, f.name)
		if v == "" {
			v = f.def
		}
		info.Set(f.name, v)
	}
	return info
}

// Overrides returns the values the template wrote to
// $context.requestOverride and $context.responseOverride.
func (c *Context) Overrides() Overrides {
	o := Overrides{
		Request: RequestOverrides{
			Header:      stringMap(c.requestOverride, "header"),
			Path:        stringMap(c.requestOverride, "path"),
			Querystring: stringMap(c.requestOverride, "querystring"),
		},
		Response: ResponseOverrides{
			Header: stringMap(c.responseOverride, "header"),
		},
	}

	if status, ok := c.responseOverride.Get("status"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(vtl.ToString(status))); err == nil {
			o.Response.Status = n
		}
	}
	return o
}

// JSONValue returns every field the context serves, defaults included.
func (c *Context) JSONValue() interface{} {
	obj := jsonvalue.NewObject()
	for _, k := range jsonvalue.SortedKeys(contextDefaults) {
		obj.Set(k, c.Field(k))
	}
	for _, k := range contextComputed {
		obj.Set(k, c.Field(k))
	}
	addPresent(obj, c.raw)
	return obj
}

// String renders every field as compact JSON.
func (c *Context) String() string {
	return jsonText(c)
}

// MarshalJSON serializes the context like String.
func (c *Context) MarshalJSON() ([]byte, error) {
	return jsonBytes(c)
}

func (c *Context) resolve(m vtl.Member) (interface{}, bool) {
	if m.Call && m.Name == "get" {
		return c.Field(stringArg(m, 0)), true
	}
	if m.Call {
		return nil, false
	}
	return c.Field(m.Name), true
}

// Identity is bound to $context.identity.
type Identity struct {
	raw map[string]interface{}
}

// Field returns the named identity member.
func (id *Identity) Field(name string) interface{} {
	if name == "clientCert" {
		return &ClientCert{raw: nested(id.raw, "clientCert")}
	}
	if def, ok := identityDefaults[name]; ok {
		if v := lookup(id.raw, name); v != "" {
			return v
		}
		return def
	}
	if v, ok := present(id.raw, name); ok {
		return jsonvalue.FromNative(v)
	}
	return ""
}

// JSONValue returns the identity fields with their defaults, then any other
// value the request context carries.
func (id *Identity) JSONValue() interface{} {
	obj := jsonvalue.NewObject()
	for _, k := range jsonvalue.SortedKeys(identityDefaults) {
		obj.Set(k, id.Field(k))
	}
	obj.Set("clientCert", id.Field("clientCert"))
	addPresent(obj, id.raw)
	return obj
}

// String renders the identity as compact JSON.
func (id *Identity) String() string {
	return jsonText(id)
}

// MarshalJSON serializes the identity like String.
func (id *Identity) MarshalJSON() ([]byte, error) {
	return jsonBytes(id)
}

func (id *Identity) resolve(m vtl.Member) (interface{}, bool) {
	return fieldMember(id.Field, m)
}

// ClientCert is bound to $context.identity.clientCert.
type ClientCert struct {
	raw map[string]interface{}
}

// Field returns the named certificate member.
func (cc *ClientCert) Field(name string) interface{} {
	if name == "validity" {
		validity := nested(cc.raw, "validity")
		obj := jsonvalue.NewObject()
		obj.Set("notBefore", orDefault(lookup(validity, "notBefore"), "Jan 01 00:00:00 2023 GMT"))
		obj.Set("notAfter", orDefault(lookup(validity, "notAfter"), "Jan 01 00:00:00 2024 GMT"))
		return obj
	}
	if def, ok := clientCertDefaults[name]; ok {
		return orDefault(lookup(cc.raw, name), def)
	}
	return ""
}

// JSONValue returns the certificate fields with their defaults.
func (cc *ClientCert) JSONValue() interface{} {
	obj := jsonvalue.NewObject()
	for _, k := range jsonvalue.SortedKeys(clientCertDefaults) {
		obj.Set(k, cc.Field(k))
	}
	obj.Set("validity", cc.Field("validity"))
	return obj
}

// String renders the certificate as compact JSON.
func (cc *ClientCert) String() string {
	return jsonText(cc)
}

// MarshalJSON serializes the certificate like String.
func (cc *ClientCert) MarshalJSON() ([]byte, error) {
	return jsonBytes(cc)
}

func (cc *ClientCert) resolve(m vtl.Member) (interface{}, bool) {
	return fieldMember(cc.Field, m)
}

// Authorizer is bound to $context.authorizer.
type Authorizer struct {
	raw map[string]interface{}
}

// Field returns the named authorizer member.
func (a *Authorizer) Field(name string) interface{} {
	switch name {
	case "principalId":
		return orDefault(lookup(a.raw, name), DefaultPrincipalID)
	case "claims":
		return &Claims{raw: nested(a.raw, "claims")}
	}
	if v, ok := present(a.raw, name); ok {
		return jsonvalue.FromNative(v)
	}
	return ""
}

// JSONValue returns the principal and claims, then any other value the
// authorizer carries.
func (a *Authorizer) JSONValue() interface{} {
	obj := jsonvalue.NewObject()
	obj.Set("principalId", a.Field("principalId"))
	obj.Set("claims", a.Field("claims"))
	addPresent(obj, a.raw)
	return obj
}

// String renders the authorizer as compact JSON.
func (a *Authorizer) String() string {
	return jsonText(a)
}

// MarshalJSON serializes the authorizer like String.
func (a *Authorizer) MarshalJSON() ([]byte, error) {
	return jsonBytes(a)
}

func (a *Authorizer) resolve(m vtl.Member) (interface{}, bool) {
	return fieldMember(a.Field, m)
}

// Claims is bound to $context.authorizer.claims. Any claim name may be
// asked for; missing claims yield "".
type Claims struct {
	raw map[string]interface{}
}

// Field returns the named claim, or "".
func (c *Claims) Field(name string) interface{} {
	if v, ok := present(c.raw, name); ok {
		return jsonvalue.FromNative(v)
	}
	return ""
}

// JSONValue returns the claims the request context carries, sorted by name.
func (c *Claims) JSONValue() interface{} {
	obj := jsonvalue.NewObject()
	addPresent(obj, c.raw)
	return obj
}

// String renders the claims as compact JSON.
func (c *Claims) String() string {
	return jsonText(c)
}

// MarshalJSON serializes the claims like String.
func (c *Claims) MarshalJSON() ([]byte, error) {
	return jsonBytes(c)
}

func (c *Claims) resolve(m vtl.Member) (interface{}, bool) {
	return fieldMember(c.Field, m)
}

// fieldMember serves property access and get(name) from field.
func fieldMember(field func(string) interface{}, m vtl.Member) (interface{}, bool) {
	if !m.Call {
		return field(m.Name), true
	}
	if m.Name == "get" {
		return field(stringArg(m, 0)), true
	}
	return nil, false
}

// present reports whether the context carries a usable value for name. Null,
// empty strings and zero count as absent.
func present(raw map[string]interface{}, name string) (interface{}, bool) {
	v, ok := raw[name]
	if !ok {
		return nil, false
	}

	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		return t, t != ""
	case float64:
		return t, t != 0
	case int:
		return t, t != 0
	case int64:
		return t, t != 0
	case json.Number:
		f, err := t.Float64()
		return t, err != nil || f != 0
	}
	return v, true
}

// lookup returns the string form of a present value, or "".
func lookup(raw map[string]interface{}, name string) string {
	v, ok := present(raw, name)
	if !ok {
		return ""
	}
	return vtl.ToString(jsonvalue.FromNative(v))
}

func nested(raw map[string]interface{}, name string) map[string]interface{} {
	if m, ok := raw[name].(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// extendedID derives an API Gateway style extended request id from a
// request id.
func extendedID(requestID string) string {
	id := strings.ReplaceAll(requestID, "-", "")
	if len(id) > 16 {
		id = id[:16]
	}
	return id + "="
}

func stringMap(obj *jsonvalue.Object, name string) map[string]string {
	out := map[string]string{}

	v, _ := obj.Get(name)
	group, ok := v.(*jsonvalue.Object)
	if !ok {
		return out
	}
	for _, k := range group.Keys() {
		val, _ := group.Get(k)
		out[k] = vtl.ToString(val)
	}
	return out
}
