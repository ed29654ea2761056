package vtl

import "strings"

// gobble removes the indentation and line break around directives and
// comments that sit alone on their line, so that control flow does not leave
// blank lines in the output.
func gobble(tokens []token) []token {
	// bol marks text tokens that start a line because the line break before
	// them was consumed.
	bol := make([]bool, len(tokens))

	for i := 0; i < len(tokens); {
		if !isControl(tokens[i]) {
			i++
			continue
		}

		j := i
		for j < len(tokens) && isControl(tokens[j]) {
			j++
		}

		lead, leadOK := lineLead(tokens, bol, i)
		trail, trailOK := lineTrail(tokens, j)
		if leadOK && trailOK {
			if lead >= 0 {
				tokens[i-1].text = tokens[i-1].text[:lead]
			}
			if trail > 0 {
				tokens[j].text = tokens[j].text[trail:]
				bol[j] = true
			}
		}
		i = j
	}

	out := tokens[:0]
	for _, t := range tokens {
		if t.kind == tokText && t.text == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func isControl(t token) bool {
	return t.kind == tokDirective || t.kind == tokComment
}

// lineLead reports whether only blanks precede token i on its line, and the
// offset in the previous text token where those blanks start (-1 when there
// is no previous text token).
func lineLead(tokens []token, bol []bool, i int) (int, bool) {
	if i == 0 {
		return -1, true
	}

	prev := tokens[i-1]
	if prev.kind == tokComment && prev.eol {
		return -1, true
	}
	if prev.kind != tokText {
		return 0, false
	}

	text := prev.text
	nl := strings.LastIndexByte(text, '\n')
	if strings.Trim(text[nl+1:], " \t") != "" {
		return 0, false
	}
	if nl < 0 && !bol[i-1] && !lineStart(tokens, i-1) {
		return 0, false
	}
	return nl + 1, true
}

func lineStart(tokens []token, i int) bool {
	return i == 0 || (tokens[i-1].kind == tokComment && tokens[i-1].eol)
}

// lineTrail reports whether only blanks and a line break follow the control
// run ending before token j, and how many bytes of the next text token to
// drop.
func lineTrail(tokens []token, j int) (int, bool) {
	if last := tokens[j-1]; last.kind == tokComment && last.eol {
		return 0, true
	}
	if j == len(tokens) {
		return 0, true
	}

	next := tokens[j]
	if next.kind != tokText {
		return 0, false
	}

	text := next.text
	k := 0
	for k < len(text) && (text[k] == ' ' || text[k] == '\t') {
		k++
	}
	switch {
	case k == len(text) && j == len(tokens)-1:
		return k, true
	case strings.HasPrefix(text[k:], "\r\n"):
		return k + 2, true
	case strings.HasPrefix(text[k:], "\n"):
		return k + 1, true
	}
	return 0, false
}
