package vtl

import (
	"strconv"
	"strings"
)

// parseExpr parses an expression starting at the current position. Leading
// whitespace is skipped; trailing whitespace is left for the caller.
func (l *lexer) parseExpr() (expr, error) {
	return l.parseOr()
}

// parseArgs parses a comma separated argument list. The opening delimiter
// has already been consumed.
func (l *lexer) parseArgs(close byte) ([]expr, error) {
	args := []expr{}

	l.skipSpace()
	if l.accept(string(close)) {
		return args, nil
	}

	for {
		arg, err := l.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		l.skipSpace()
		if l.accept(",") {
			continue
		}
		if l.accept(string(close)) {
			return args, nil
		}
		return nil, l.errorf(l.pos, "expected ',' or '%c'", close)
	}
}

type binaryLevel struct {
	symbols []string
	words   map[string]string
}

var (
	orLevel  = binaryLevel{[]string{"||"}, map[string]string{"or": "||"}}
	andLevel = binaryLevel{[]string{"&&"}, map[string]string{"and": "&&"}}
	eqLevel  = binaryLevel{[]string{"==", "!="}, map[string]string{"eq": "==", "ne": "!="}}
	relLevel = binaryLevel{[]string{"<=", ">=", "<", ">"}, map[string]string{"le": "<=", "ge": ">=", "lt": "<", "gt": ">"}}
	addLevel = binaryLevel{[]string{"+", "-"}, nil}
	mulLevel = binaryLevel{[]string{"*", "/", "%"}, nil}
)

// operator reports the operator of lvl at the current position without
// consuming it.
func (l *lexer) operator(lvl binaryLevel) (string, int) {
	rest := l.src[l.pos:]
	for _, sym := range lvl.symbols {
		if strings.HasPrefix(rest, sym) {
			return sym, len(sym)
		}
	}
	for word, op := range lvl.words {
		if strings.HasPrefix(rest, word) {
			end := l.pos + len(word)
			if end < len(l.src) && isIdentPart(l.src[end]) {
				continue
			}
			return op, len(word)
		}
	}
	return "", 0
}

func (l *lexer) binary(lvl binaryLevel, next func() (expr, error)) (expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}

	for {
		mark := l.pos
		l.skipSpace()
		op, size := l.operator(lvl)
		if op == "" {
			l.pos = mark
			return left, nil
		}
		l.pos += size

		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{op: op, left: left, right: right}
	}
}

func (l *lexer) parseOr() (expr, error) {
	return l.binary(orLevel, l.parseAnd)
}

func (l *lexer) parseAnd() (expr, error) {
	return l.binary(andLevel, l.parseEquality)
}

func (l *lexer) parseEquality() (expr, error) {
	return l.binary(eqLevel, l.parseRelational)
}

func (l *lexer) parseRelational() (expr, error) {
	return l.binary(relLevel, l.parseAdditive)
}

func (l *lexer) parseAdditive() (expr, error) {
	return l.binary(addLevel, l.parseMultiplicative)
}

func (l *lexer) parseMultiplicative() (expr, error) {
	return l.binary(mulLevel, l.parseUnary)
}

func (l *lexer) parseUnary() (expr, error) {
	l.skipSpace()

	switch {
	case l.peek('!') && !strings.HasPrefix(l.src[l.pos:], "!="):
		l.pos++
		x, err := l.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: "!", x: x}, nil
	case l.acceptWord("not"):
		x, err := l.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: "!", x: x}, nil
	case l.peek('-') && l.pos+1 < len(l.src) && !isDigit(l.src[l.pos+1]):
		l.pos++
		x, err := l.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: "-", x: x}, nil
	}

	return l.parsePrimary()
}

func (l *lexer) parsePrimary() (expr, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return nil, l.errorf(l.pos, "unexpected end of template")
	}

	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		x, err := l.parseExpr()
		if err != nil {
			return nil, err
		}
		l.skipSpace()
		if !l.accept(")") {
			return nil, l.errorf(l.pos, "expected ')'")
		}
		return x, nil
	case c == '"':
		return l.doubleQuoted()
	case c == '\'':
		return l.singleQuoted()
	case c == '[':
		return l.list()
	case c == '{':
		return l.mapLiteral()
	case c == '$':
		ref, _, _, err := l.reference(true)
		if err != nil {
			return nil, err
		}
		return ref, nil
	case c == '-' || isDigit(c):
		return l.number()
	case l.acceptWord("true"):
		return &literal{value: true}, nil
	case l.acceptWord("false"):
		return &literal{value: false}, nil
	case l.acceptWord("null"):
		return &literal{value: nil}, nil
	}

	return nil, l.errorf(l.pos, "unexpected %q in expression", c)
}

func (l *lexer) number() (expr, error) {
	start := l.pos
	if l.peek('-') {
		l.pos++
	}
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}

	float := false
	if l.peek('.') && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
		float = true
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}

	text := l.src[start:l.pos]
	if float {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, l.errorf(start, "invalid number %q", text)
		}
		return &literal{value: f}, nil
	}

	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, l.errorf(start, "invalid number %q", text)
	}
	return &literal{value: i}, nil
}

// quoted returns the body of a string literal delimited by q, with \q
// unescaped.
func (l *lexer) quoted(q byte) (string, error) {
	start := l.pos
	l.pos++

	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) && l.src[l.pos+1] == q {
			b.WriteByte(q)
			l.pos += 2
			continue
		}
		if c == q {
			l.pos++
			return b.String(), nil
		}
		b.WriteByte(c)
		l.pos++
	}

	return "", l.errorf(start, "unterminated string literal")
}

func (l *lexer) singleQuoted() (expr, error) {
	s, err := l.quoted('\'')
	if err != nil {
		return nil, err
	}
	return &literal{value: s}, nil
}

// doubleQuoted parses a string literal. References inside it are evaluated
// when the expression is.
func (l *lexer) doubleQuoted() (expr, error) {
	start := l.pos
	s, err := l.quoted('"')
	if err != nil {
		return nil, err
	}
	if !strings.ContainsRune(s, '$') {
		return &literal{value: s}, nil
	}

	sub := &lexer{src: s, inString: true}
	if err := sub.run(); err != nil {
		msg := err.Error()
		if se, ok := err.(*SyntaxError); ok {
			msg = se.Msg
		}
		return nil, l.errorf(start, "in string literal: %s", msg)
	}

	nodes := make([]node, 0, len(sub.tokens))
	for _, t := range sub.tokens {
		switch t.kind {
		case tokText:
			nodes = append(nodes, &textNode{text: t.text})
		case tokRef:
			nodes = append(nodes, &refNode{ref: t.ref, quiet: t.quiet, raw: t.raw})
		}
	}
	return &interpString{nodes: nodes}, nil
}

func (l *lexer) list() (expr, error) {
	l.pos++
	l.skipSpace()
	if l.accept("]") {
		return &listExpr{}, nil
	}

	first, err := l.parseExpr()
	if err != nil {
		return nil, err
	}

	l.skipSpace()
	if l.accept("..") {
		to, err := l.parseExpr()
		if err != nil {
			return nil, err
		}
		l.skipSpace()
		if !l.accept("]") {
			return nil, l.errorf(l.pos, "expected ']' to close range")
		}
		return &rangeExpr{from: first, to: to}, nil
	}

	items := []expr{first}
	for {
		l.skipSpace()
		if l.accept("]") {
			return &listExpr{items: items}, nil
		}
		if !l.accept(",") {
			return nil, l.errorf(l.pos, "expected ',' or ']'")
		}
		item, err := l.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func (l *lexer) mapLiteral() (expr, error) {
	l.pos++
	m := &mapExpr{}

	l.skipSpace()
	if l.accept("}") {
		return m, nil
	}

	for {
		key, err := l.parseExpr()
		if err != nil {
			return nil, err
		}
		l.skipSpace()
		if !l.accept(":") {
			return nil, l.errorf(l.pos, "expected ':' in map literal")
		}
		value, err := l.parseExpr()
		if err != nil {
			return nil, err
		}
		m.keys = append(m.keys, key)
		m.values = append(m.values, value)

		l.skipSpace()
		if l.accept("}") {
			return m, nil
		}
		if !l.accept(",") {
			return nil, l.errorf(l.pos, "expected ',' or '}'")
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
