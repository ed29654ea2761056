package vtl

// node is an element of a parsed template.
type node interface{}

type textNode struct {
	text string
}

type refNode struct {
	ref   *reference
	quiet bool
	raw   string
}

type setNode struct {
	target *reference
	value  expr
}

type ifBranch struct {
	cond expr
	body []node
}

type ifNode struct {
	branches []ifBranch
	elseBody []node
}

type foreachNode struct {
	name string
	iter expr
	body []node
}

type breakNode struct{}

type stopNode struct{}

// expr is an expression inside a directive or method argument list.
type expr interface{}

type literal struct {
	value interface{}
}

// interpString is a double-quoted string literal containing references.
type interpString struct {
	nodes []node
}

type listExpr struct {
	items []expr
}

type rangeExpr struct {
	from, to expr
}

type mapExpr struct {
	keys   []expr
	values []expr
}

type unaryExpr struct {
	op string
	x  expr
}

type binaryExpr struct {
	op          string
	left, right expr
}

// reference is $name followed by a chain of property, method and index
// accessors.
type reference struct {
	name  string
	chain []accessor
}

type accessor struct {
	name  string
	call  bool
	args  []expr
	index expr
}
