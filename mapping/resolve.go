package mapping

import (
	"sort"

	"github.com/prognoshealth/vtlemu/jsonvalue"
	"github.com/prognoshealth/vtlemu/vtl"
)

// Resolve dispatches member access on the values bound to $input, $util,
// $context and $stageVariables. Values of any other type are left to the
// template engine.
func Resolve(target interface{}, m vtl.Member) (interface{}, bool) {
	switch t := target.(type) {
	case *Input:
		return t.resolve(m)
	case *Params:
		return t.resolve(m)
	case *ParamGroup:
		return t.resolve(m)
	case *Util:
		return t.resolve(m)
	case *UtilTime:
		return t.resolve(m)
	case *StageVariables:
		return t.resolve(m)
	case *Identity:
		return t.resolve(m)
	case *ClientCert:
		return t.resolve(m)
	case *Authorizer:
		return t.resolve(m)
	case *Claims:
		return t.resolve(m)
	case *Context:
		return t.resolve(m)
	}
	return nil, false
}

// jsonText renders an accessor the way API Gateway prints a map reference.
func jsonText(v jsonvalue.Valuer) string {
	s, err := jsonvalue.Stringify(v)
	if err != nil {
		return ""
	}
	return s
}

func jsonBytes(v jsonvalue.Valuer) ([]byte, error) {
	s, err := jsonvalue.Stringify(v)
	return []byte(s), err
}

// addPresent copies the present raw values obj does not carry yet, sorted by
// name.
func addPresent(obj *jsonvalue.Object, raw map[string]interface{}) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := obj.Get(k); ok {
			continue
		}
		if v, ok := present(raw, k); ok {
			obj.Set(k, jsonvalue.FromNative(v))
		}
	}
}
