package vtl

import (
	"github.com/pkg/errors"
)

// DefaultMaxLoops bounds the iterations of a single #foreach.
const DefaultMaxLoops = 10000

// Member describes a property access ($x.name) or method call
// ($x.name(args)) on a value. Args are already evaluated.
type Member struct {
	Name string
	Args []interface{}
	Call bool
}

// Resolver resolves members on values bound by the caller. Resolve reports
// false when it does not handle the target, in which case the built-in
// string, list and map members are tried.
type Resolver interface {
	Resolve(target interface{}, m Member) (interface{}, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(target interface{}, m Member) (interface{}, bool)

// Resolve calls f.
func (f ResolverFunc) Resolve(target interface{}, m Member) (interface{}, bool) {
	return f(target, m)
}

// Engine parses and executes templates. An Engine is safe for concurrent use
// once built.
type Engine struct {
	resolver   Resolver
	maxLoops   int
	emptyCheck bool
	gobble     bool
	cache      *Cache
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver installs the resolver used for caller bound values.
func WithResolver(r Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithMaxLoops sets the per #foreach iteration limit. Values below one keep
// the default.
func WithMaxLoops(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxLoops = n
		}
	}
}

// WithEmptyCheck makes empty strings, empty collections and zero false in
// conditions, as Velocity 2 does.
func WithEmptyCheck(on bool) Option {
	return func(e *Engine) {
		e.emptyCheck = on
	}
}

// WithLineGobbling removes the whitespace and line break around directives
// that are alone on their line.
func WithLineGobbling(on bool) Option {
	return func(e *Engine) {
		e.gobble = on
	}
}

// WithCache memoizes parsed templates in c.
func WithCache(c *Cache) Option {
	return func(e *Engine) {
		e.cache = c
	}
}

// New returns an Engine configured by opts.
func New(opts ...Option) *Engine {
	e := &Engine{maxLoops: DefaultMaxLoops}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Template is a parsed template. It is immutable and may be executed
// concurrently.
type Template struct {
	src   string
	nodes []node
}

// Source returns the template text the Template was parsed from.
func (t *Template) Source() string {
	return t.src
}

// Parse parses src, consulting the engine's cache first when one is set.
func (e *Engine) Parse(src string) (*Template, error) {
	key := cacheKey(src, e.gobble)
	if e.cache != nil {
		if t, ok := e.cache.get(key); ok {
			return t, nil
		}
	}

	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	if e.gobble {
		tokens = gobble(tokens)
	}

	nodes, err := build(src, tokens)
	if err != nil {
		return nil, err
	}

	t := &Template{src: src, nodes: nodes}
	if e.cache != nil {
		e.cache.set(key, t)
	}
	return t, nil
}

// Execute renders t with vars bound as top level references. vars is not
// modified; #set writes go to a per call copy.
func (e *Engine) Execute(t *Template, vars map[string]interface{}) (string, error) {
	s := newState(e, vars)
	s.run(t.nodes)
	if s.err != nil {
		return "", s.err
	}
	return s.out.String(), nil
}

// Render parses and executes src.
func (e *Engine) Render(src string, vars map[string]interface{}) (string, error) {
	t, err := e.Parse(src)
	if err != nil {
		return "", errors.Wrap(err, "parse template")
	}

	out, err := e.Execute(t, vars)
	if err != nil {
		return "", errors.Wrap(err, "execute template")
	}
	return out, nil
}
