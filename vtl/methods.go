package vtl

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/prognoshealth/vtlemu/jsonvalue"
)

// builtin resolves members of the values the engine understands natively.
// The result is nil when the member does not exist.
func builtin(target interface{}, m Member) interface{} {
	switch t := target.(type) {
	case string:
		return stringMember(t, m)
	case *jsonvalue.Array:
		return arrayMember(t, m)
	case *jsonvalue.Object:
		return objectMember(t, m)
	case *Loop:
		return loopMember(t, m)
	}

	if m.Call && m.Name == "toString" && len(m.Args) == 0 {
		return ToString(target)
	}
	return nil
}

func arg(m Member, i int) interface{} {
	if i < len(m.Args) {
		return m.Args[i]
	}
	return nil
}

func stringArg(m Member, i int) (string, bool) {
	v := arg(m, i)
	if v == nil {
		return "", false
	}
	return ToString(v), true
}

func stringMember(s string, m Member) interface{} {
	if !m.Call {
		if m.Name == "empty" {
			return s == ""
		}
		return nil
	}

	switch m.Name {
	case "length":
		return int64(utf8.RuneCountInString(s))
	case "isEmpty":
		return s == ""
	case "toString":
		return s
	case "toLowerCase":
		return strings.ToLower(s)
	case "toUpperCase":
		return strings.ToUpper(s)
	case "trim":
		return strings.TrimSpace(s)
	case "contains":
		if sub, ok := stringArg(m, 0); ok {
			return strings.Contains(s, sub)
		}
	case "startsWith":
		if prefix, ok := stringArg(m, 0); ok {
			return strings.HasPrefix(s, prefix)
		}
	case "endsWith":
		if suffix, ok := stringArg(m, 0); ok {
			return strings.HasSuffix(s, suffix)
		}
	case "equals":
		return arg(m, 0) != nil && ToString(arg(m, 0)) == s
	case "equalsIgnoreCase":
		return arg(m, 0) != nil && strings.EqualFold(ToString(arg(m, 0)), s)
	case "concat":
		if other, ok := stringArg(m, 0); ok {
			return s + other
		}
	case "indexOf":
		if sub, ok := stringArg(m, 0); ok {
			return runeIndex(s, strings.Index(s, sub))
		}
	case "lastIndexOf":
		if sub, ok := stringArg(m, 0); ok {
			return runeIndex(s, strings.LastIndex(s, sub))
		}
	case "charAt":
		runes := []rune(s)
		if i, ok := toInt(arg(m, 0)); ok && i >= 0 && i < len(runes) {
			return string(runes[i])
		}
	case "substring":
		return substring(s, m)
	case "replace":
		old, ok1 := stringArg(m, 0)
		repl, ok2 := stringArg(m, 1)
		if ok1 && ok2 {
			return strings.ReplaceAll(s, old, repl)
		}
	case "replaceAll", "replaceFirst":
		pattern, ok1 := stringArg(m, 0)
		repl, ok2 := stringArg(m, 1)
		if !ok1 || !ok2 {
			return nil
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil
		}
		repl = javaReplacement(repl)
		if m.Name == "replaceAll" {
			return re.ReplaceAllString(s, repl)
		}
		loc := re.FindStringSubmatchIndex(s)
		if loc == nil {
			return s
		}
		return s[:loc[0]] + string(re.ExpandString(nil, repl, s, loc)) + s[loc[1]:]
	case "matches":
		pattern, ok := stringArg(m, 0)
		if !ok {
			return nil
		}
		re, err := regexp.Compile(`^(?:` + pattern + `)$`)
		if err != nil {
			return false
		}
		return re.MatchString(s)
	case "split":
		pattern, ok := stringArg(m, 0)
		if !ok {
			return nil
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil
		}
		parts := re.Split(s, -1)
		for len(parts) > 1 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
		arr := jsonvalue.NewArray()
		for _, p := range parts {
			arr.Append(p)
		}
		return arr
	}
	return nil
}

// javaReplacement converts $1 group references to the ${1} form regexp
// expects.
var javaGroup = regexp.MustCompile(`\$(\d+)`)

func javaReplacement(repl string) string {
	return javaGroup.ReplaceAllString(repl, `$${$1}`)
}

func runeIndex(s string, byteIndex int) int64 {
	if byteIndex < 0 {
		return -1
	}
	return int64(utf8.RuneCountInString(s[:byteIndex]))
}

func substring(s string, m Member) interface{} {
	runes := []rune(s)

	begin, ok := toInt(arg(m, 0))
	if !ok {
		return nil
	}
	end := len(runes)
	if len(m.Args) > 1 {
		if end, ok = toInt(arg(m, 1)); !ok {
			return nil
		}
	}

	if begin < 0 || end > len(runes) || begin > end {
		return nil
	}
	return string(runes[begin:end])
}

func arrayMember(a *jsonvalue.Array, m Member) interface{} {
	if !m.Call {
		if m.Name == "empty" {
			return a.Len() == 0
		}
		return nil
	}

	switch m.Name {
	case "size":
		return int64(a.Len())
	case "isEmpty":
		return a.Len() == 0
	case "toString":
		return ToString(a)
	case "get":
		i, ok := toInt(arg(m, 0))
		if !ok {
			return nil
		}
		if i < 0 {
			i += a.Len()
		}
		v, _ := a.Get(i)
		return v
	case "contains":
		return indexIn(a.Items, arg(m, 0)) >= 0
	case "indexOf":
		return int64(indexIn(a.Items, arg(m, 0)))
	case "add":
		if len(m.Args) == 2 {
			i, ok := toInt(m.Args[0])
			if !ok || i < 0 || i > a.Len() {
				return nil
			}
			a.Items = append(a.Items[:i], append([]interface{}{m.Args[1]}, a.Items[i:]...)...)
			return true
		}
		a.Append(arg(m, 0))
		return true
	case "addAll":
		other, ok := arg(m, 0).(*jsonvalue.Array)
		if !ok {
			return false
		}
		a.Items = append(a.Items, other.Items...)
		return true
	case "set":
		i, ok := toInt(arg(m, 0))
		if !ok || i < 0 || i >= a.Len() {
			return nil
		}
		old := a.Items[i]
		a.Items[i] = arg(m, 1)
		return old
	case "remove":
		i, ok := toInt(arg(m, 0))
		if !ok || i < 0 || i >= a.Len() {
			return nil
		}
		old := a.Items[i]
		a.Items = append(a.Items[:i], a.Items[i+1:]...)
		return old
	}
	return nil
}

func indexIn(items []interface{}, v interface{}) int {
	for i, item := range items {
		if equals(item, v) {
			return i
		}
	}
	return -1
}

func objectMember(o *jsonvalue.Object, m Member) interface{} {
	if !m.Call {
		v, _ := o.Get(m.Name)
		return v
	}

	switch m.Name {
	case "get":
		if key, ok := stringArg(m, 0); ok {
			v, _ := o.Get(key)
			return v
		}
	case "put":
		key, ok := stringArg(m, 0)
		if !ok {
			return nil
		}
		old, _ := o.Get(key)
		o.Set(key, arg(m, 1))
		return old
	case "putAll":
		other, ok := arg(m, 0).(*jsonvalue.Object)
		if !ok {
			return nil
		}
		for _, k := range other.Keys() {
			v, _ := other.Get(k)
			o.Set(k, v)
		}
		return true
	case "remove":
		if key, ok := stringArg(m, 0); ok {
			old, _ := o.Delete(key)
			return old
		}
	case "containsKey":
		if key, ok := stringArg(m, 0); ok {
			_, found := o.Get(key)
			return found
		}
		return false
	case "containsValue":
		return indexIn(o.Values(), arg(m, 0)) >= 0
	case "keySet":
		arr := jsonvalue.NewArray()
		for _, k := range o.Keys() {
			arr.Append(k)
		}
		return arr
	case "values":
		return jsonvalue.NewArray(o.Values()...)
	case "entrySet":
		arr := jsonvalue.NewArray()
		for _, k := range o.Keys() {
			v, _ := o.Get(k)
			entry := jsonvalue.NewObject()
			entry.Set("key", k)
			entry.Set("value", v)
			arr.Append(entry)
		}
		return arr
	case "size":
		return int64(o.Len())
	case "isEmpty":
		return o.Len() == 0
	case "toString":
		return ToString(o)
	}
	return nil
}

func loopMember(l *Loop, m Member) interface{} {
	switch m.Name {
	case "index", "getIndex":
		return int64(l.Index)
	case "count", "getCount":
		return int64(l.Count)
	case "hasNext":
		return l.HasNext
	case "first", "isFirst":
		return l.First
	case "last", "isLast":
		return l.Last
	case "parent", "getParent":
		if l.Parent == nil {
			return nil
		}
		return l.Parent
	}
	return nil
}
