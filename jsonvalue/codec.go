package jsonvalue

import (
	"encoding/json"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// MaxDepth bounds nesting while decoding and encoding.
const MaxDepth = 512

// ErrTooDeep is returned when a document nests deeper than MaxDepth.
var ErrTooDeep = errors.New("json nesting exceeds maximum depth")

// Parse decodes text into the value model. Numbers keep their original
// spelling as json.Number.
func Parse(text string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	v, err := decode(dec, 0)
	if err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}

	return v, nil
}

func decode(dec *json.Decoder, depth int) (interface{}, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(err, "failed reading json token")
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, errors.Wrap(err, "failed reading object key")
			}
			key, _ := keyTok.(string)
			v, err := decode(dec, depth+1)
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, errors.Wrap(err, "failed closing object")
		}
		return obj, nil
	case '[':
		arr := NewArray()
		for dec.More() {
			v, err := decode(dec, depth+1)
			if err != nil {
				return nil, err
			}
			arr.Append(v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, errors.Wrap(err, "failed closing array")
		}
		return arr, nil
	}

	return nil, errors.Errorf("unexpected delimiter %q", delim)
}

// Stringify writes v as compact JSON. Strings are escaped the way
// JSON.stringify does it: HTML characters and U+2028/U+2029 are left alone.
func Stringify(v interface{}) (string, error) {
	var b strings.Builder
	if err := write(&b, v, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func write(b *strings.Builder, v interface{}, depth int) error {
	if depth > MaxDepth {
		return ErrTooDeep
	}

	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(t))
	case string:
		WriteString(b, t)
	case json.Number:
		if t == "" {
			b.WriteString("0")
		} else {
			b.WriteString(string(t))
		}
	case int:
		b.WriteString(strconv.Itoa(t))
	case int32:
		b.WriteString(strconv.FormatInt(int64(t), 10))
	case int64:
		b.WriteString(strconv.FormatInt(t, 10))
	case uint64:
		b.WriteString(strconv.FormatUint(t, 10))
	case float32:
		writeFloat(b, float64(t))
	case float64:
		writeFloat(b, t)
	case *Object:
		if t == nil {
			b.WriteString("null")
			return nil
		}
		b.WriteByte('{')
		for i, k := range t.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			WriteString(b, k)
			b.WriteByte(':')
			if err := write(b, t.values[k], depth+1); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case *Array:
		if t == nil {
			b.WriteString("null")
			return nil
		}
		return writeList(b, t.Items, depth)
	case []interface{}:
		return writeList(b, t, depth)
	case []string:
		items := make([]interface{}, len(t))
		for i, s := range t {
			items[i] = s
		}
		return writeList(b, items, depth)
	case map[string]interface{}:
		return write(b, FromNative(t), depth)
	case map[string]string:
		return write(b, FromNative(t), depth)
	case Valuer:
		if rv := reflect.ValueOf(t); rv.Kind() == reflect.Ptr && rv.IsNil() {
			b.WriteString("null")
			return nil
		}
		return write(b, t.JSONValue(), depth)
	default:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
			b.WriteString("null")
			return nil
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return errors.Wrapf(err, "failed marshalling %T", v)
		}
		b.Write(raw)
	}

	return nil
}

func writeList(b *strings.Builder, items []interface{}, depth int) error {
	b.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := write(b, item, depth+1); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

func writeFloat(b *strings.Builder, f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		b.WriteString("null")
		return
	}
	b.WriteString(FormatFloat(f))
}

// FormatFloat formats f the shortest way that round-trips, without an
// exponent for ordinary magnitudes.
func FormatFloat(f float64) string {
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

const hex = "0123456789abcdef"

// WriteString writes s as a quoted JSON string.
func WriteString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				b.WriteString(`\"`)
			case '\\':
				b.WriteString(`\\`)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			case '\b':
				b.WriteString(`\b`)
			case '\f':
				b.WriteString(`\f`)
			default:
				if c < 0x20 {
					b.WriteString(`\u00`)
					b.WriteByte(hex[c>>4])
					b.WriteByte(hex[c&0xf])
				} else {
					b.WriteByte(c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteString(`�`)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	b.WriteByte('"')
}

// Quote returns s as a quoted JSON string.
func Quote(s string) string {
	var b strings.Builder
	WriteString(&b, s)
	return b.String()
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
