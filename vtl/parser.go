package vtl

// builder turns the flat token list into a node tree, pairing block
// directives with their #end.
type builder struct {
	src    string
	tokens []token
	pos    int
}

func build(src string, tokens []token) ([]node, error) {
	b := &builder{src: src, tokens: tokens}

	nodes, term, err := b.block()
	if err != nil {
		return nil, err
	}
	if term != nil {
		return nil, syntaxError(src, term.pos, "unexpected #%s", term.name)
	}
	return nodes, nil
}

// block collects nodes until #elseif, #else, #end or the end of input. The
// terminating directive is returned, nil at end of input.
func (b *builder) block() ([]node, *token, error) {
	nodes := []node{}

	for b.pos < len(b.tokens) {
		t := &b.tokens[b.pos]
		b.pos++

		switch t.kind {
		case tokText:
			nodes = append(nodes, &textNode{text: t.text})
		case tokRef:
			nodes = append(nodes, &refNode{ref: t.ref, quiet: t.quiet, raw: t.raw})
		case tokDirective:
			switch t.name {
			case "set":
				nodes = append(nodes, &setNode{target: t.cond.(*reference), value: t.value})
			case "if":
				n, err := b.ifBlock(t)
				if err != nil {
					return nil, nil, err
				}
				nodes = append(nodes, n)
			case "foreach":
				n, err := b.foreachBlock(t)
				if err != nil {
					return nil, nil, err
				}
				nodes = append(nodes, n)
			case "break":
				nodes = append(nodes, &breakNode{})
			case "stop":
				nodes = append(nodes, &stopNode{})
			default:
				return nodes, t, nil
			}
		}
	}

	return nodes, nil, nil
}

func (b *builder) ifBlock(start *token) (*ifNode, error) {
	n := &ifNode{}
	cond := start.cond

	for {
		body, term, err := b.block()
		if err != nil {
			return nil, err
		}
		if term == nil {
			return nil, syntaxError(b.src, start.pos, "#%s without #end", start.name)
		}
		n.branches = append(n.branches, ifBranch{cond: cond, body: body})

		switch term.name {
		case "end":
			return n, nil
		case "elseif":
			cond = term.cond
		case "else":
			body, end, err := b.block()
			if err != nil {
				return nil, err
			}
			if end == nil {
				return nil, syntaxError(b.src, start.pos, "#%s without #end", start.name)
			}
			if end.name != "end" {
				return nil, syntaxError(b.src, end.pos, "unexpected #%s after #else", end.name)
			}
			n.elseBody = body
			return n, nil
		}
	}
}

func (b *builder) foreachBlock(start *token) (*foreachNode, error) {
	body, term, err := b.block()
	if err != nil {
		return nil, err
	}
	if term == nil {
		return nil, syntaxError(b.src, start.pos, "#foreach without #end")
	}
	if term.name != "end" {
		return nil, syntaxError(b.src, term.pos, "unexpected #%s in #foreach", term.name)
	}
	return &foreachNode{name: start.loop, iter: start.value, body: body}, nil
}
