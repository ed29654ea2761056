package vtl

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/prognoshealth/vtlemu/jsonvalue"
)

// ToString renders a value the way it appears in template output. Whole
// floating point numbers keep a trailing ".0" as Java prints them; objects
// and arrays render as compact JSON.
func ToString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return formatDouble(t)
	case json.Number:
		return string(t)
	case *jsonvalue.Object, *jsonvalue.Array:
		s, err := jsonvalue.Stringify(t)
		if err != nil {
			return ""
		}
		return s
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

func formatDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	if f == math.Trunc(f) && math.Abs(f) < 1e7 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// number converts v to int64 or float64. Strings are not numbers.
func number(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		if f, err := t.Float64(); err == nil {
			return f, true
		}
	}
	return nil, false
}

func toFloat(n interface{}) float64 {
	if i, ok := n.(int64); ok {
		return float64(i)
	}
	return n.(float64)
}

// toInt converts numeric values to int. Numeric strings are accepted since
// method arguments frequently arrive as strings from request data.
func toInt(v interface{}) (int, bool) {
	if s, ok := v.(string); ok {
		i, err := strconv.Atoi(strings.TrimSpace(s))
		return i, err == nil
	}

	n, ok := number(v)
	if !ok {
		return 0, false
	}
	if i, ok := n.(int64); ok {
		return int(i), true
	}
	f := n.(float64)
	if f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// truthy implements #if conditions. Velocity 1.7 treats only null and false
// as false; with emptyCheck empty strings, collections and zero are false
// too.
func truthy(v interface{}, emptyCheck bool) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	}

	if !emptyCheck {
		return true
	}

	switch t := v.(type) {
	case string:
		return t != ""
	case *jsonvalue.Object:
		return t.Len() > 0
	case *jsonvalue.Array:
		return t.Len() > 0
	}
	if n, ok := number(v); ok {
		return toFloat(n) != 0
	}
	return true
}

func equals(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	na, aok := number(a)
	nb, bok := number(b)
	if aok && bok {
		return compareNumbers(na, nb) == 0
	}

	ba, aok := a.(bool)
	bb, bok := b.(bool)
	if aok || bok {
		return aok && bok && ba == bb
	}

	return ToString(a) == ToString(b)
}

func compareNumbers(a, b interface{}) int {
	ia, aok := a.(int64)
	ib, bok := b.(int64)
	if aok && bok {
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		}
		return 0
	}

	fa, fb := toFloat(a), toFloat(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

// compare orders two numbers, or two strings. Other combinations are not
// comparable.
func compare(a, b interface{}) (int, bool) {
	na, aok := number(a)
	nb, bok := number(b)
	if aok && bok {
		return compareNumbers(na, nb), true
	}

	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

// arithmetic applies + - * / %. A string on either side of + concatenates.
// Invalid operands and division by zero yield null.
func arithmetic(op string, a, b interface{}) interface{} {
	if op == "+" {
		_, aString := a.(string)
		_, bString := b.(string)
		if aString || bString {
			if a == nil || b == nil {
				return nil
			}
			return ToString(a) + ToString(b)
		}
	}

	na, aok := number(a)
	nb, bok := number(b)
	if !aok || !bok {
		return nil
	}

	ia, aInt := na.(int64)
	ib, bInt := nb.(int64)
	if aInt && bInt {
		switch op {
		case "+":
			return ia + ib
		case "-":
			return ia - ib
		case "*":
			return ia * ib
		case "/":
			if ib == 0 {
				return nil
			}
			return ia / ib
		case "%":
			if ib == 0 {
				return nil
			}
			return ia % ib
		}
		return nil
	}

	fa, fb := toFloat(na), toFloat(nb)
	switch op {
	case "+":
		return fa + fb
	case "-":
		return fa - fb
	case "*":
		return fa * fb
	case "/":
		if fb == 0 {
			return nil
		}
		return fa / fb
	case "%":
		if fb == 0 {
			return nil
		}
		return math.Mod(fa, fb)
	}
	return nil
}

func negate(v interface{}) interface{} {
	n, ok := number(v)
	if !ok {
		return nil
	}
	if i, ok := n.(int64); ok {
		return -i
	}
	return -n.(float64)
}
