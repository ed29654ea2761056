package vtl

import (
	"strings"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokRef
	tokDirective
	tokComment
)

// token is a lexed template element. Directive tokens carry their parsed
// arguments.
type token struct {
	kind tokenKind
	pos  int

	// tokText
	text string

	// tokRef
	ref   *reference
	quiet bool
	raw   string

	// tokDirective
	name  string
	cond  expr
	value expr
	loop  string

	// tokComment: the comment consumed its trailing newline
	eol bool
}

var directives = map[string]bool{
	"set":     true,
	"if":      true,
	"elseif":  true,
	"else":    true,
	"end":     true,
	"foreach": true,
	"break":   true,
	"stop":    true,
}

// lexer scans a template. inString disables directives, which is the mode
// used for the body of an interpolated string literal.
type lexer struct {
	src      string
	pos      int
	inString bool
	tokens   []token
}

func lex(src string) ([]token, error) {
	l := &lexer{src: src}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

func (l *lexer) run() error {
	for l.pos < len(l.src) {
		var err error

		switch l.src[l.pos] {
		case '#':
			err = l.hash()
		case '$':
			err = l.dollar()
		case '\\':
			l.backslash()
		default:
			l.text()
		}

		if err != nil {
			return err
		}
	}
	return nil
}

func (l *lexer) errorf(pos int, format string, args ...interface{}) error {
	return syntaxError(l.src, pos, format, args...)
}

func (l *lexer) emitText(s string) {
	if s == "" {
		return
	}
	if n := len(l.tokens); n > 0 && l.tokens[n-1].kind == tokText {
		l.tokens[n-1].text += s
		return
	}
	l.tokens = append(l.tokens, token{kind: tokText, pos: l.pos, text: s})
}

func (l *lexer) text() {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '#' || c == '$' || c == '\\' {
			break
		}
		l.pos++
	}
	l.emitText(l.src[start:l.pos])
}

// backslash handles \$ and \# which render the next character literally.
func (l *lexer) backslash() {
	if l.pos+1 < len(l.src) && (l.src[l.pos+1] == '$' || l.src[l.pos+1] == '#') {
		l.emitText(l.src[l.pos+1 : l.pos+2])
		l.pos += 2
		return
	}
	l.emitText("\\")
	l.pos++
}

func (l *lexer) dollar() error {
	start := l.pos
	ref, quiet, ok, err := l.reference(false)
	if err != nil {
		return err
	}
	if !ok {
		l.pos = start + 1
		l.emitText("$")
		return nil
	}
	l.tokens = append(l.tokens, token{
		kind:  tokRef,
		pos:   start,
		ref:   ref,
		quiet: quiet,
		raw:   l.src[start:l.pos],
	})
	return nil
}

func (l *lexer) hash() error {
	start := l.pos
	rest := l.src[l.pos:]

	if l.inString {
		l.emitText("#")
		l.pos++
		return nil
	}

	switch {
	case strings.HasPrefix(rest, "##"):
		end := strings.IndexByte(rest, '\n')
		eol := end >= 0
		if !eol {
			end = len(rest) - 1
		}
		l.pos += end + 1
		l.tokens = append(l.tokens, token{kind: tokComment, pos: start, eol: eol})
		return nil
	case strings.HasPrefix(rest, "#*"):
		end := strings.Index(rest[2:], "*#")
		if end < 0 {
			return l.errorf(start, "unterminated comment")
		}
		l.pos += end + 4
		l.tokens = append(l.tokens, token{kind: tokComment, pos: start})
		return nil
	case strings.HasPrefix(rest, "#[["):
		end := strings.Index(rest[3:], "]]#")
		if end < 0 {
			return l.errorf(start, "unterminated literal block")
		}
		l.pos += 3
		l.emitText(l.src[l.pos : l.pos+end])
		l.pos += end + 3
		return nil
	}

	name, size := directiveName(rest)
	if !directives[name] {
		l.emitText("#")
		l.pos++
		return nil
	}

	l.pos += size
	tok := token{kind: tokDirective, pos: start, name: name}

	switch name {
	case "set":
		if err := l.open(name); err != nil {
			return err
		}
		l.skipSpace()
		if !l.peek('$') {
			return l.errorf(l.pos, "#set expects a reference")
		}
		target, _, _, err := l.reference(true)
		if err != nil {
			return err
		}
		l.skipSpace()
		if !l.accept("=") {
			return l.errorf(l.pos, "#set expects '='")
		}
		value, err := l.parseExpr()
		if err != nil {
			return err
		}
		if err := l.close(name); err != nil {
			return err
		}
		tok.cond = target
		tok.value = value
	case "if", "elseif":
		if err := l.open(name); err != nil {
			return err
		}
		cond, err := l.parseExpr()
		if err != nil {
			return err
		}
		if err := l.close(name); err != nil {
			return err
		}
		tok.cond = cond
	case "foreach":
		if err := l.open(name); err != nil {
			return err
		}
		l.skipSpace()
		if !l.accept("$") {
			return l.errorf(l.pos, "#foreach expects a loop variable")
		}
		l.accept("!")
		braced := l.accept("{")
		loopVar := l.ident(false)
		if loopVar == "" {
			return l.errorf(l.pos, "#foreach expects a loop variable")
		}
		if braced && !l.accept("}") {
			return l.errorf(l.pos, "expected '}'")
		}
		l.skipSpace()
		if !l.acceptWord("in") {
			return l.errorf(l.pos, "#foreach expects 'in'")
		}
		iter, err := l.parseExpr()
		if err != nil {
			return err
		}
		if err := l.close(name); err != nil {
			return err
		}
		tok.loop = loopVar
		tok.value = iter
	}

	l.tokens = append(l.tokens, tok)
	return nil
}

// directiveName reads the directive after '#', either #name or #{name}.
func directiveName(s string) (string, int) {
	if strings.HasPrefix(s, "#{") {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return "", 0
		}
		return s[2:end], end + 1
	}

	i := 1
	for i < len(s) && isIdentPart(s[i]) {
		i++
	}
	return s[1:i], i
}

func (l *lexer) open(name string) error {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
		l.pos++
	}
	if !l.accept("(") {
		return l.errorf(l.pos, "expected '(' after #%s", name)
	}
	return nil
}

func (l *lexer) close(name string) error {
	l.skipSpace()
	if !l.accept(")") {
		return l.errorf(l.pos, "expected ')' to close #%s", name)
	}
	return nil
}

// reference parses $name, $!name, ${name} and $!{name} with an accessor
// chain. In template text (strict false) anything that does not look like a
// reference is reported with ok false so it can be emitted as text.
func (l *lexer) reference(strict bool) (*reference, bool, bool, error) {
	start := l.pos
	l.pos++

	quiet := l.accept("!")
	braced := l.accept("{")

	name := l.ident(false)
	if name == "" {
		if strict {
			return nil, false, false, l.errorf(start, "invalid reference")
		}
		l.pos = start
		return nil, false, false, nil
	}

	ref := &reference{name: name}

	for l.pos < len(l.src) {
		c := l.src[l.pos]

		if c == '.' && l.pos+1 < len(l.src) && isIdentStart(l.src[l.pos+1]) {
			l.pos++
			acc := accessor{name: l.ident(true)}
			if l.peek('(') {
				l.pos++
				args, err := l.parseArgs(')')
				if err != nil {
					return nil, false, false, err
				}
				acc.call = true
				acc.args = args
			}
			ref.chain = append(ref.chain, acc)
			continue
		}

		if c == '[' {
			mark := l.pos
			l.pos++
			index, err := l.parseExpr()
			if err == nil {
				l.skipSpace()
				if l.accept("]") {
					ref.chain = append(ref.chain, accessor{index: index})
					continue
				}
			}
			if strict {
				if err != nil {
					return nil, false, false, err
				}
				return nil, false, false, l.errorf(l.pos, "expected ']'")
			}
			l.pos = mark
		}

		break
	}

	if braced && !l.accept("}") {
		if strict {
			return nil, false, false, l.errorf(l.pos, "expected '}'")
		}
		l.pos = start
		return nil, false, false, nil
	}

	return ref, quiet, true, nil
}

// ident reads an identifier. Member names may contain '-' as long as an
// identifier character follows it, the way Velocity 1.7 allowed
// $context.responseOverride.header.Content-Type.
func (l *lexer) ident(member bool) string {
	if l.pos >= len(l.src) || !isIdentStart(l.src[l.pos]) {
		return ""
	}
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if isIdentPart(c) {
			l.pos++
			continue
		}
		if member && c == '-' && l.pos+1 < len(l.src) && isIdentStart(l.src[l.pos+1]) {
			l.pos++
			continue
		}
		break
	}
	return l.src[start:l.pos]
}

func (l *lexer) peek(c byte) bool {
	return l.pos < len(l.src) && l.src[l.pos] == c
}

func (l *lexer) accept(s string) bool {
	if strings.HasPrefix(l.src[l.pos:], s) {
		l.pos += len(s)
		return true
	}
	return false
}

// acceptWord accepts a keyword that is not followed by an identifier
// character.
func (l *lexer) acceptWord(w string) bool {
	if !strings.HasPrefix(l.src[l.pos:], w) {
		return false
	}
	end := l.pos + len(w)
	if end < len(l.src) && isIdentPart(l.src[end]) {
		return false
	}
	l.pos = end
	return true
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
