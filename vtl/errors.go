package vtl

import (
	"fmt"
	"strings"
)

// SyntaxError reports a malformed template.
type SyntaxError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// syntaxError builds a SyntaxError for byte offset pos of src.
func syntaxError(src string, pos int, format string, args ...interface{}) *SyntaxError {
	if pos > len(src) {
		pos = len(src)
	}

	before := src[:pos]
	line := strings.Count(before, "\n") + 1
	col := pos - strings.LastIndex(before, "\n")

	return &SyntaxError{
		Line:   line,
		Column: col,
		Msg:    fmt.Sprintf(format, args...),
	}
}
