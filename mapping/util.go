package mapping

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prognoshealth/vtlemu/jsonvalue"
	"github.com/prognoshealth/vtlemu/vtl"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

var defaultClock Clock = time.Now

// DefaultTimeFormat is used by $util.time.nowFormatted() without a format.
const DefaultTimeFormat = "yyyy-MM-dd HH:mm:ss"

// Util is bound to $util. Every function tolerates null input.
type Util struct {
	Time *UtilTime
}

// NewUtil binds $util. A nil clock uses the wall clock.
func NewUtil(clock Clock) *Util {
	if clock == nil {
		clock = defaultClock
	}
	return &Util{Time: &UtilTime{clock: clock}}
}

var jsEscapes = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\f", `\f`,
	"\b", `\b`,
)

// EscapeJavaScript escapes backslashes, both quote characters and the
// \n \r \t \f \b control characters. Values other than strings are
// serialized to JSON first.
func EscapeJavaScript(v interface{}) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		s = t
	default:
		s = ToJSON(v)
	}
	return jsEscapes.Replace(s)
}

// Base64Encode encodes the string form of v with the standard alphabet.
func Base64Encode(v interface{}) string {
	if v == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(vtl.ToString(v)))
}

// Base64Decode accepts padded and unpadded input in both the standard and
// URL alphabets. Undecodable input yields "".
func Base64Decode(v interface{}) string {
	if v == nil {
		return ""
	}

	s := strings.TrimSpace(vtl.ToString(v))
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return string(b)
		}
	}
	return ""
}

// URLEncode applies form encoding: space becomes + and everything outside
// letters, digits and -_.~ is percent encoded.
func URLEncode(v interface{}) string {
	if v == nil {
		return ""
	}
	return url.QueryEscape(vtl.ToString(v))
}

// URLDecode reverses URLEncode. Malformed input is returned unchanged.
func URLDecode(v interface{}) string {
	if v == nil {
		return ""
	}

	s := vtl.ToString(v)
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// ParseJSON parses JSON text. Invalid or empty input yields nil.
func ParseJSON(v interface{}) interface{} {
	if v == nil {
		return nil
	}

	s := vtl.ToString(v)
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parsed, err := jsonvalue.Parse(s)
	if err != nil {
		return nil
	}
	return parsed
}

// ToJSON serializes v, yielding "null" when it cannot be serialized.
func ToJSON(v interface{}) string {
	s, err := jsonvalue.Stringify(v)
	if err != nil {
		return "null"
	}
	return s
}

// Matches reports whether pattern matches anywhere in s. An invalid pattern
// never matches.
func Matches(s, pattern interface{}) bool {
	if s == nil || pattern == nil {
		return false
	}

	re, err := regexp.Compile(vtl.ToString(pattern))
	if err != nil {
		return false
	}
	return re.MatchString(vtl.ToString(s))
}

func (u *Util) resolve(m vtl.Member) (interface{}, bool) {
	if !m.Call {
		if m.Name == "time" {
			return u.Time, true
		}
		return nil, false
	}

	switch m.Name {
	case "escapeJavaScript":
		return EscapeJavaScript(arg(m, 0)), true
	case "base64Encode":
		return Base64Encode(arg(m, 0)), true
	case "base64Decode":
		return Base64Decode(arg(m, 0)), true
	case "urlEncode":
		return URLEncode(arg(m, 0)), true
	case "urlDecode":
		return URLDecode(arg(m, 0)), true
	case "parseJson":
		return ParseJSON(arg(m, 0)), true
	case "toJson":
		return ToJSON(arg(m, 0)), true
	case "randomUUID":
		return uuid.NewString(), true
	case "matches":
		return Matches(arg(m, 0), arg(m, 1)), true
	}
	return nil, false
}

// UtilTime is bound to $util.time.
type UtilTime struct {
	clock Clock
}

func (t *UtilTime) now() time.Time {
	return t.clock().UTC()
}

// NowEpochSeconds returns the current time in seconds since the epoch.
func (t *UtilTime) NowEpochSeconds() int64 {
	return t.now().Unix()
}

// NowEpochMilliSeconds returns the current time in milliseconds since the
// epoch.
func (t *UtilTime) NowEpochMilliSeconds() int64 {
	return t.now().UnixMilli()
}

// NowISO8601 returns the current UTC time with millisecond precision.
func (t *UtilTime) NowISO8601() string {
	return t.now().Format("2006-01-02T15:04:05.000Z07:00")
}

// NowFormatted formats the current UTC time. The format understands the
// tokens yyyy yy MM dd HH mm ss SSS; everything else is copied as is.
func (t *UtilTime) NowFormatted(format string) string {
	if format == "" {
		format = DefaultTimeFormat
	}
	return formatTime(t.now(), format)
}

func (t *UtilTime) resolve(m vtl.Member) (interface{}, bool) {
	switch m.Name {
	case "nowEpochSeconds":
		return t.NowEpochSeconds(), true
	case "nowEpochMilliSeconds":
		return t.NowEpochMilliSeconds(), true
	case "nowISO8601":
		return t.NowISO8601(), true
	case "nowFormatted":
		return t.NowFormatted(stringArg(m, 0)), true
	}
	return nil, false
}

var timeTokens = []struct {
	token  string
	format func(time.Time) string
}{
	{"yyyy", func(t time.Time) string { return pad(t.Year(), 4) }},
	{"SSS", func(t time.Time) string { return pad(t.Nanosecond()/int(time.Millisecond), 3) }},
	{"yy", func(t time.Time) string { return pad(t.Year()%100, 2) }},
	{"MM", func(t time.Time) string { return pad(int(t.Month()), 2) }},
	{"dd", func(t time.Time) string { return pad(t.Day(), 2) }},
	{"HH", func(t time.Time) string { return pad(t.Hour(), 2) }},
	{"mm", func(t time.Time) string { return pad(t.Minute(), 2) }},
	{"ss", func(t time.Time) string { return pad(t.Second(), 2) }},
}

func formatTime(t time.Time, format string) string {
	var b strings.Builder

outer:
	for i := 0; i < len(format); {
		for _, tok := range timeTokens {
			if strings.HasPrefix(format[i:], tok.token) {
				b.WriteString(tok.format(t))
				i += len(tok.token)
				continue outer
			}
		}
		b.WriteByte(format[i])
		i++
	}

	return b.String()
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func arg(m vtl.Member, i int) interface{} {
	if i < len(m.Args) {
		return m.Args[i]
	}
	return nil
}
