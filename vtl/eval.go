package vtl

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/prognoshealth/vtlemu/jsonvalue"
)

// maxRange caps the number of elements a [a..b] range may produce.
const maxRange = 100000

// Loop is the value bound to $foreach inside a #foreach body.
type Loop struct {
	Index   int
	Count   int
	HasNext bool
	First   bool
	Last    bool
	Parent  *Loop
}

// state is the per execution context. Nothing in it is shared between
// calls.
type state struct {
	engine   *Engine
	vars     map[string]interface{}
	out      *strings.Builder
	stopped  bool
	breaking bool
	err      error
}

func newState(e *Engine, vars map[string]interface{}) *state {
	s := &state{
		engine: e,
		vars:   make(map[string]interface{}, len(vars)),
		out:    &strings.Builder{},
	}
	for k, v := range vars {
		s.vars[k] = v
	}
	return s
}

func (s *state) halted() bool {
	return s.stopped || s.breaking || s.err != nil
}

func (s *state) run(nodes []node) {
	for _, n := range nodes {
		if s.halted() {
			return
		}

		switch n := n.(type) {
		case *textNode:
			s.out.WriteString(n.text)
		case *refNode:
			s.writeRef(n)
		case *setNode:
			s.set(n)
		case *ifNode:
			s.runIf(n)
		case *foreachNode:
			s.runForeach(n)
		case *breakNode:
			s.breaking = true
		case *stopNode:
			s.stopped = true
		}
	}
}

// writeRef renders a reference. A null reference renders as its source text
// unless it is quiet.
func (s *state) writeRef(n *refNode) {
	v := s.ref(n.ref)
	if v == nil {
		if !n.quiet {
			s.out.WriteString(n.raw)
		}
		return
	}
	s.out.WriteString(ToString(v))
}

// set assigns the value of a #set. A null value leaves the target
// untouched.
func (s *state) set(n *setNode) {
	v := s.eval(n.value)
	if v == nil {
		return
	}

	target := n.target
	if len(target.chain) == 0 {
		s.vars[target.name] = v
		return
	}

	parent := s.walk(s.vars[target.name], target.chain[:len(target.chain)-1])
	last := target.chain[len(target.chain)-1]

	key := last.name
	if last.index != nil {
		idx := s.eval(last.index)
		if arr, ok := parent.(*jsonvalue.Array); ok {
			if i, ok := toInt(idx); ok && i >= 0 && i < arr.Len() {
				arr.Items[i] = v
			}
			return
		}
		key = ToString(idx)
	}
	if last.call {
		return
	}

	if obj, ok := parent.(*jsonvalue.Object); ok {
		obj.Set(key, v)
	}
}

func (s *state) runIf(n *ifNode) {
	for _, b := range n.branches {
		if truthy(s.eval(b.cond), s.engine.emptyCheck) {
			s.run(b.body)
			return
		}
	}
	s.run(n.elseBody)
}

func (s *state) runForeach(n *foreachNode) {
	items := iterable(s.eval(n.iter))
	if len(items) == 0 {
		return
	}

	saved := map[string]interface{}{}
	for _, name := range []string{n.name, "foreach", "velocityCount", "velocityHasNext"} {
		if v, ok := s.vars[name]; ok {
			saved[name] = v
		}
	}
	defer func() {
		for _, name := range []string{n.name, "foreach", "velocityCount", "velocityHasNext"} {
			if v, ok := saved[name]; ok {
				s.vars[name] = v
			} else {
				delete(s.vars, name)
			}
		}
	}()

	parent, _ := saved["foreach"].(*Loop)

	for i, item := range items {
		if i >= s.engine.maxLoops {
			return
		}

		loop := &Loop{
			Index:   i,
			Count:   i + 1,
			HasNext: i < len(items)-1 && i+1 < s.engine.maxLoops,
			First:   i == 0,
			Last:    i == len(items)-1,
			Parent:  parent,
		}
		s.vars[n.name] = item
		s.vars["foreach"] = loop
		s.vars["velocityCount"] = int64(loop.Count)
		s.vars["velocityHasNext"] = loop.HasNext

		s.run(n.body)

		if s.breaking {
			s.breaking = false
			return
		}
		if s.stopped || s.err != nil {
			return
		}
	}
}

// iterable returns the items a #foreach walks. Objects iterate their values.
func iterable(v interface{}) []interface{} {
	switch t := v.(type) {
	case *jsonvalue.Array:
		items := make([]interface{}, len(t.Items))
		copy(items, t.Items)
		return items
	case *jsonvalue.Object:
		return t.Values()
	case []interface{}:
		return t
	case map[string]interface{}, []string, map[string]string:
		return iterable(jsonvalue.FromNative(t))
	}
	return nil
}

func (s *state) eval(e expr) interface{} {
	switch e := e.(type) {
	case *literal:
		return e.value
	case *reference:
		return s.ref(e)
	case *interpString:
		return s.interpolate(e)
	case *listExpr:
		arr := jsonvalue.NewArray()
		for _, item := range e.items {
			arr.Append(s.eval(item))
		}
		return arr
	case *rangeExpr:
		return s.rangeOf(e)
	case *mapExpr:
		obj := jsonvalue.NewObject()
		for i := range e.keys {
			obj.Set(ToString(s.eval(e.keys[i])), s.eval(e.values[i]))
		}
		return obj
	case *unaryExpr:
		x := s.eval(e.x)
		if e.op == "!" {
			return !truthy(x, s.engine.emptyCheck)
		}
		return negate(x)
	case *binaryExpr:
		return s.binary(e)
	}
	return nil
}

func (s *state) binary(e *binaryExpr) interface{} {
	switch e.op {
	case "&&":
		return truthy(s.eval(e.left), s.engine.emptyCheck) && truthy(s.eval(e.right), s.engine.emptyCheck)
	case "||":
		return truthy(s.eval(e.left), s.engine.emptyCheck) || truthy(s.eval(e.right), s.engine.emptyCheck)
	}

	left, right := s.eval(e.left), s.eval(e.right)

	switch e.op {
	case "==":
		return equals(left, right)
	case "!=":
		return !equals(left, right)
	case "<", ">", "<=", ">=":
		c, ok := compare(left, right)
		if !ok {
			return false
		}
		switch e.op {
		case "<":
			return c < 0
		case ">":
			return c > 0
		case "<=":
			return c <= 0
		}
		return c >= 0
	}

	return arithmetic(e.op, left, right)
}

func (s *state) interpolate(e *interpString) string {
	saved := s.out
	s.out = &strings.Builder{}
	defer func() {
		s.out = saved
	}()

	for _, n := range e.nodes {
		switch n := n.(type) {
		case *textNode:
			s.out.WriteString(n.text)
		case *refNode:
			s.writeRef(n)
		}
	}
	return s.out.String()
}

func (s *state) rangeOf(e *rangeExpr) interface{} {
	from, ok1 := toInt(s.eval(e.from))
	to, ok2 := toInt(s.eval(e.to))
	if !ok1 || !ok2 {
		return nil
	}

	step := 1
	n := to - from + 1
	if to < from {
		step = -1
		n = from - to + 1
	}
	if n > maxRange {
		s.err = errors.Errorf("range [%d..%d] exceeds %d elements", from, to, maxRange)
		return nil
	}

	arr := &jsonvalue.Array{Items: make([]interface{}, 0, n)}
	for i, v := 0, from; i < n; i, v = i+1, v+step {
		arr.Items = append(arr.Items, int64(v))
	}
	return arr
}

func (s *state) ref(r *reference) interface{} {
	return s.walk(s.vars[r.name], r.chain)
}

// walk applies an accessor chain to v. A null anywhere in the chain makes
// the whole reference null.
func (s *state) walk(v interface{}, chain []accessor) interface{} {
	for _, acc := range chain {
		if v == nil {
			return nil
		}

		if acc.index != nil {
			v = s.index(v, s.eval(acc.index))
			continue
		}

		m := Member{Name: acc.name, Call: acc.call}
		if acc.call {
			m.Args = make([]interface{}, len(acc.args))
			for i, a := range acc.args {
				m.Args[i] = s.eval(a)
			}
		}
		v = s.member(v, m)
	}
	return v
}

func (s *state) member(target interface{}, m Member) interface{} {
	if s.engine.resolver != nil {
		if v, ok := s.engine.resolver.Resolve(target, m); ok {
			return v
		}
	}
	return builtin(target, m)
}

func (s *state) index(target, idx interface{}) interface{} {
	switch t := target.(type) {
	case *jsonvalue.Array:
		i, ok := toInt(idx)
		if !ok {
			return nil
		}
		v, _ := t.Get(i)
		return v
	case *jsonvalue.Object:
		v, _ := t.Get(ToString(idx))
		return v
	}
	return s.member(target, Member{Name: "get", Args: []interface{}{idx}, Call: true})
}
