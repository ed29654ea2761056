// Package jsonpath resolves the restricted JSONPath dialect API Gateway
// accepts in $input.json and $input.path: dotted keys and integer indexes,
// nothing else.
//
// Two grammars are provided on purpose. Evaluate is strict and only accepts
// paths rooted at "$." (or exactly "$"), which is how $input.json behaves.
// Navigate is lenient, the leading "$" is optional, which is how $input.path
// behaves.
package jsonpath

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/prognoshealth/vtlemu/jsonvalue"
)

// MaxSegments bounds the number of segments in a path.
const MaxSegments = 256

var (
	// ErrNotRooted is returned by Parse for paths that do not start with "$".
	ErrNotRooted = errors.New("path must start with $")

	// ErrEmptySegment is returned by Parse for paths with an empty dotted
	// segment such as "$..a" or "$.a.".
	ErrEmptySegment = errors.New("path has an empty segment")

	// ErrTooDeep is returned for paths with more than MaxSegments segments.
	ErrTooDeep = errors.New("path has too many segments")
)

// Segment is a single navigation step: an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// String returns the segment as it would appear in a path.
func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// Path is a parsed path. The empty path addresses the whole document.
type Path []Segment

// String returns the path in normalized "$.a[0]" form.
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("$")
	for _, s := range p {
		if !s.IsIndex {
			b.WriteString(".")
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Parse parses a strict path. "" and "$" address the whole document; every
// other path must begin with "$." or "$[".
func Parse(expr string) (Path, error) {
	if expr == "" || expr == "$" {
		return Path{}, nil
	}

	if !strings.HasPrefix(expr, "$.") && !strings.HasPrefix(expr, "$[") {
		return nil, errors.Wrapf(ErrNotRooted, "invalid path '%s'", expr)
	}

	return scan(expr[1:], true)
}

// ParseLoose parses a lenient path where the leading "$" is optional.
func ParseLoose(expr string) (Path, error) {
	expr = strings.TrimPrefix(expr, "$")
	return scan(expr, false)
}

// Evaluate resolves a strict path against value. The second result is false
// when the path is invalid or does not resolve.
func Evaluate(value interface{}, expr string) (interface{}, bool) {
	p, err := Parse(expr)
	if err != nil {
		return nil, false
	}
	return p.Lookup(value)
}

// Navigate resolves a lenient path against value.
func Navigate(value interface{}, expr string) (interface{}, bool) {
	p, err := ParseLoose(expr)
	if err != nil {
		return nil, false
	}
	return p.Lookup(value)
}

// Lookup walks the path. Any type mismatch, missing key or out of range
// index stops the walk and reports not found.
func (p Path) Lookup(value interface{}) (interface{}, bool) {
	current := jsonvalue.FromNative(value)

	for _, seg := range p {
		next, ok := step(current, seg)
		if !ok {
			return nil, false
		}
		current = next
	}

	return current, true
}

func step(current interface{}, seg Segment) (interface{}, bool) {
	switch t := current.(type) {
	case *jsonvalue.Object:
		key := seg.Key
		if seg.IsIndex {
			key = strconv.Itoa(seg.Index)
		}
		return t.Get(key)
	case *jsonvalue.Array:
		idx := seg.Index
		if !seg.IsIndex {
			n, err := strconv.Atoi(seg.Key)
			if err != nil {
				return nil, false
			}
			idx = n
		}
		return t.Get(idx)
	}

	return nil, false
}

// scan splits the remainder of a path (after the optional "$") into
// segments. In strict mode every "." must introduce a key.
func scan(expr string, strict bool) (Path, error) {
	path := Path{}
	i := 0

	for i < len(expr) {
		if len(path) > MaxSegments {
			return nil, ErrTooDeep
		}

		switch expr[i] {
		case '.':
			i++
			if strict && (i == len(expr) || expr[i] == '.' || expr[i] == '[') {
				return nil, errors.Wrapf(ErrEmptySegment, "invalid path '%s'", expr)
			}
		case '[':
			seg, n, err := scanBracket(expr[i:])
			if err != nil {
				return nil, errors.Wrapf(err, "invalid path '%s'", expr)
			}
			path = append(path, seg)
			i += n
		default:
			j := i
			for j < len(expr) && expr[j] != '.' && expr[j] != '[' {
				j++
			}
			path = append(path, keySegment(expr[i:j]))
			i = j
		}
	}

	if len(path) > MaxSegments {
		return nil, ErrTooDeep
	}

	return path, nil
}

// keySegment turns a dotted token into a segment. Purely numeric tokens are
// kept as keys; step converts them when they land on an array.
func keySegment(token string) Segment {
	return Segment{Key: token}
}

func scanBracket(s string) (Segment, int, error) {
	if len(s) > 1 && (s[1] == '\'' || s[1] == '"') {
		quote := s[1]
		closing := strings.IndexByte(s[2:], quote)
		if closing < 0 || len(s) < closing+4 || s[closing+3] != ']' {
			return Segment{}, 0, errors.New("unterminated quoted key")
		}
		return Segment{Key: s[2 : closing+2]}, closing + 4, nil
	}

	end := strings.IndexByte(s, ']')
	if end < 0 {
		return Segment{}, 0, errors.New("missing ]")
	}

	idx, err := strconv.Atoi(strings.TrimSpace(s[1:end]))
	if err != nil || idx < 0 {
		return Segment{}, 0, errors.Errorf("invalid index '%s'", s[1:end])
	}

	return Segment{Index: idx, IsIndex: true}, end + 1, nil
}
