package mapping

import (
	"github.com/prognoshealth/vtlemu/jsonvalue"
	"github.com/prognoshealth/vtlemu/vtl"
)

// StageVariables is bound to $stageVariables. Undefined variables yield "".
type StageVariables struct {
	values map[string]string
}

// NewStageVariables binds $stageVariables to values.
func NewStageVariables(values map[string]string) *StageVariables {
	if values == nil {
		values = map[string]string{}
	}
	return &StageVariables{values: values}
}

// Get returns the named variable, or "".
func (s *StageVariables) Get(name string) string {
	return s.values[name]
}

func (s *StageVariables) resolve(m vtl.Member) (interface{}, bool) {
	if !m.Call {
		return s.Get(m.Name), true
	}

	switch m.Name {
	case "get":
		return s.Get(stringArg(m, 0)), true
	case "keySet":
		return jsonvalue.FromNative(jsonvalue.SortedKeys(s.values)), true
	case "size":
		return int64(len(s.values)), true
	}
	return nil, false
}

// JSONValue returns the variables as an object sorted by name.
func (s *StageVariables) JSONValue() interface{} {
	return jsonvalue.FromNative(s.values)
}

// String renders the variables as compact JSON.
func (s *StageVariables) String() string {
	return jsonText(s)
}

// MarshalJSON serializes the variables like String.
func (s *StageVariables) MarshalJSON() ([]byte, error) {
	return jsonBytes(s)
}
