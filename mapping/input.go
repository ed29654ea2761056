package mapping

import (
	"sort"
	"strings"

	"github.com/prognoshealth/vtlemu/gwevent"
	"github.com/prognoshealth/vtlemu/jsonpath"
	"github.com/prognoshealth/vtlemu/jsonvalue"
	"github.com/prognoshealth/vtlemu/vtl"
)

// JSONMiss selects what $input.json returns for a path that does not exist.
type JSONMiss int

const (
	// JSONMissEmpty returns an empty string.
	JSONMissEmpty JSONMiss = iota
	// JSONMissNull returns the text null.
	JSONMissNull
)

// Input is bound to $input.
type Input struct {
	req  *gwevent.Normalized
	miss JSONMiss
}

// NewInput binds $input to a normalized request.
func NewInput(req *gwevent.Normalized, miss JSONMiss) *Input {
	return &Input{req: req, miss: miss}
}

// JSON evaluates a $-rooted path against the parsed body. Objects and arrays
// are returned as values so templates can keep navigating them; they render
// as compact JSON.
func (in *Input) JSON(path string) interface{} {
	v, ok := jsonpath.Evaluate(in.req.ParsedBody, path)
	if !ok {
		if in.miss == JSONMissNull {
			return "null"
		}
		return ""
	}
	if v == nil {
		return "null"
	}
	return v
}

// Path returns the request path when name is empty. A name starting with $
// navigates the body; any other name is a path parameter, falling back to
// navigating the body with a bare dotted path.
func (in *Input) Path(name string) interface{} {
	if name == "" {
		return in.req.Path
	}

	if !strings.HasPrefix(name, "$") {
		if v, ok := in.req.PathParams[name]; ok {
			return v
		}
	}

	v, ok := jsonpath.Navigate(in.req.ParsedBody, name)
	if !ok || v == nil {
		return ""
	}
	return v
}

// Body returns the raw request body.
func (in *Input) Body() string {
	return in.req.RawBody
}

// Method returns the http method, GET when the request has none.
func (in *Input) Method() string {
	return in.req.Method
}

// Querystring returns one query string value, or "".
func (in *Input) Querystring(name string) string {
	return in.req.Query[name]
}

// Header returns one header value, matching the name without case.
func (in *Input) Header(name string) string {
	v, _ := in.req.Header(name)
	return v
}

// Params returns the path, querystring and header groups.
func (in *Input) Params() *Params {
	return &Params{
		Path:        &ParamGroup{values: in.req.PathParams},
		Querystring: &ParamGroup{values: in.req.Query},
		Header:      &ParamGroup{values: in.req.Headers, fold: true},
	}
}

// Param searches path parameters, then the query string, then headers.
func (in *Input) Param(name string) string {
	if v, ok := in.req.PathParams[name]; ok {
		return v
	}
	if v, ok := in.req.Query[name]; ok {
		return v
	}
	v, _ := in.req.Header(name)
	return v
}

// Size is the length of an array body or the key count of an object body.
func (in *Input) Size() int64 {
	switch t := in.req.ParsedBody.(type) {
	case *jsonvalue.Array:
		return int64(t.Len())
	case *jsonvalue.Object:
		return int64(t.Len())
	}
	return 0
}

// All returns the parsed body with every parameter group.
func (in *Input) All() *jsonvalue.Object {
	all := jsonvalue.NewObject()
	all.Set("body", in.req.ParsedBody)
	all.Set("path", jsonvalue.FromNative(in.req.PathParams))
	all.Set("querystring", jsonvalue.FromNative(in.req.Query))
	all.Set("header", jsonvalue.FromNative(in.req.Headers))
	return all
}

func (in *Input) resolve(m vtl.Member) (interface{}, bool) {
	switch m.Name {
	case "json":
		return in.JSON(stringArg(m, 0)), true
	case "path":
		return in.Path(stringArg(m, 0)), true
	case "body", "getBody":
		return in.Body(), true
	case "method", "httpMethod":
		return in.Method(), true
	case "querystring":
		if len(m.Args) == 0 {
			return in.Params().Querystring, true
		}
		return in.Querystring(stringArg(m, 0)), true
	case "header", "headers":
		if len(m.Args) == 0 {
			return in.Params().Header, true
		}
		return in.Header(stringArg(m, 0)), true
	case "params":
		if len(m.Args) == 0 {
			return in.Params(), true
		}
		return in.Param(stringArg(m, 0)), true
	case "size":
		return in.Size(), true
	case "all":
		return in.All(), true
	}
	return nil, false
}

// Params is the value of $input.params().
type Params struct {
	Path        *ParamGroup
	Querystring *ParamGroup
	Header      *ParamGroup
}

var groupNames = []string{"path", "querystring", "header"}

// Group returns the named group, or nil.
func (p *Params) Group(name string) *ParamGroup {
	switch name {
	case "path":
		return p.Path
	case "querystring":
		return p.Querystring
	case "header":
		return p.Header
	}
	return nil
}

func (p *Params) resolve(m vtl.Member) (interface{}, bool) {
	if !m.Call {
		if g := p.Group(m.Name); g != nil {
			return g, true
		}
		return nil, false
	}

	switch m.Name {
	case "get":
		if g := p.Group(stringArg(m, 0)); g != nil {
			return g, true
		}
		return nil, true
	case "keySet":
		return jsonvalue.FromNative(groupNames), true
	case "size":
		return int64(len(groupNames)), true
	}
	return nil, false
}

// JSONValue returns the groups keyed path, querystring and header.
func (p *Params) JSONValue() interface{} {
	obj := jsonvalue.NewObject()
	for _, name := range groupNames {
		obj.Set(name, p.Group(name).JSONValue())
	}
	return obj
}

// String renders the groups as compact JSON.
func (p *Params) String() string {
	return jsonText(p)
}

// MarshalJSON serializes the groups like String.
func (p *Params) MarshalJSON() ([]byte, error) {
	return jsonBytes(p)
}

// ParamGroup is one parameter map. Lookups of missing names yield "".
type ParamGroup struct {
	values map[string]string
	fold   bool
}

// Get returns the named parameter, or "".
func (g *ParamGroup) Get(name string) string {
	if g.fold {
		name = strings.ToLower(name)
	}
	return g.values[name]
}

// Has reports whether the named parameter is present.
func (g *ParamGroup) Has(name string) bool {
	if g.fold {
		name = strings.ToLower(name)
	}
	_, ok := g.values[name]
	return ok
}

// Keys returns the parameter names sorted.
func (g *ParamGroup) Keys() []string {
	keys := make([]string, 0, len(g.values))
	for k := range g.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (g *ParamGroup) resolve(m vtl.Member) (interface{}, bool) {
	if !m.Call {
		return g.Get(m.Name), true
	}

	switch m.Name {
	case "get":
		return g.Get(stringArg(m, 0)), true
	case "containsKey":
		return g.Has(stringArg(m, 0)), true
	case "keySet":
		return jsonvalue.FromNative(g.Keys()), true
	case "size":
		return int64(len(g.values)), true
	case "isEmpty":
		return len(g.values) == 0, true
	case "toString":
		return g.String(), true
	}
	return nil, false
}

// JSONValue returns the parameters as an object sorted by name.
func (g *ParamGroup) JSONValue() interface{} {
	return jsonvalue.FromNative(g.values)
}

// String renders the group as a JSON object.
func (g *ParamGroup) String() string {
	return jsonText(g)
}

// MarshalJSON serializes the group like String.
func (g *ParamGroup) MarshalJSON() ([]byte, error) {
	return jsonBytes(g)
}

func stringArg(m vtl.Member, i int) string {
	if i < len(m.Args) {
		return vtl.ToString(m.Args[i])
	}
	return ""
}
