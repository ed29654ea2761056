package mapping

import (
	"fmt"
)

// BindingError reports a failure inside one of the bound variables while a
// template was executing.
type BindingError struct {
	Value interface{}
}

func (e *BindingError) Error() string {
	if err, ok := e.Value.(error); ok {
		return fmt.Sprintf("binding failed: %s", err.Error())
	}
	return fmt.Sprintf("binding failed: %v", e.Value)
}
