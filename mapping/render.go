package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/prognoshealth/vtlemu/gwevent"
	"github.com/prognoshealth/vtlemu/vtl"
)

// Options control a single render.
type Options struct {
	// ThrowOnError returns failures as errors instead of an "Error: ..."
	// output string.
	ThrowOnError bool
	// MinifyJSON compacts output that is valid JSON.
	MinifyJSON bool
	// PreserveWhitespace keeps leading and trailing whitespace.
	PreserveWhitespace bool
	JSONMiss           JSONMiss
}

// ParseJSONMiss maps "empty" (or "") and "null" to a JSONMiss.
func ParseJSONMiss(s string) (JSONMiss, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "empty":
		return JSONMissEmpty, nil
	case "null":
		return JSONMissNull, nil
	}
	return JSONMissEmpty, errors.Errorf("unknown json miss mode %q", s)
}

// String returns the option name, empty or null.
func (m JSONMiss) String() string {
	if m == JSONMissNull {
		return "null"
	}
	return "empty"
}

// Result is a rendered template along with the overrides it set.
type Result struct {
	Output    string    `json:"output"`
	Overrides Overrides `json:"overrides"`
}

// Overrides are the values a template wrote to the override objects.
type Overrides struct {
	Request  RequestOverrides  `json:"request"`
	Response ResponseOverrides `json:"response"`
}

// RequestOverrides is $context.requestOverride after rendering.
type RequestOverrides struct {
	Header      map[string]string `json:"header"`
	Path        map[string]string `json:"path"`
	Querystring map[string]string `json:"querystring"`
}

// ResponseOverrides is $context.responseOverride after rendering. A zero
// Status means the template set none.
type ResponseOverrides struct {
	Status int               `json:"status,omitempty"`
	Header map[string]string `json:"header"`
}

// Renderer renders mapping templates against simulated requests. It is safe
// for concurrent use.
type Renderer struct {
	engine     *vtl.Engine
	engineOpts []vtl.Option
	clock      Clock
	logger     *logrus.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithEngineOptions configures the template engine. The resolver for the
// API Gateway variables is always installed.
func WithEngineOptions(opts ...vtl.Option) RendererOption {
	return func(r *Renderer) {
		r.engineOpts = append(r.engineOpts, opts...)
	}
}

// WithClock sets the time source for $context and $util.time.
func WithClock(clock Clock) RendererOption {
	return func(r *Renderer) {
		r.clock = clock
	}
}

// WithLogger sets the logger render failures are reported to.
func WithLogger(logger *logrus.Logger) RendererOption {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// NewRenderer returns a Renderer configured by opts.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{clock: defaultClock}
	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = logrus.New()
	}
	if r.clock == nil {
		r.clock = defaultClock
	}

	engineOpts := append([]vtl.Option{}, r.engineOpts...)
	engineOpts = append(engineOpts, vtl.WithResolver(vtl.ResolverFunc(Resolve)))
	r.engine = vtl.New(engineOpts...)

	return r
}

var defaultRenderer = NewRenderer()

// Render renders template against req with a default Renderer.
func Render(template string, req gwevent.Request, opts Options) (string, error) {
	return defaultRenderer.Render(template, req, opts)
}

// Render renders template against req. Failures produce an output starting
// with "Error: " unless opts.ThrowOnError is set.
func (r *Renderer) Render(template string, req gwevent.Request, opts Options) (string, error) {
	res, err := r.RenderDetailed(template, req, opts)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

// Bindings returns the variables a template sees for req.
func (r *Renderer) Bindings(req *gwevent.Normalized, miss JSONMiss) (map[string]interface{}, *Context) {
	ctx := NewContext(req.RequestContext, r.clock)

	return map[string]interface{}{
		"input":          NewInput(req, miss),
		"util":           NewUtil(r.clock),
		"context":        ctx,
		"stageVariables": NewStageVariables(req.StageVariables),
	}, ctx
}

// RenderDetailed renders like Render and also reports the request and
// response overrides set by the template.
func (r *Renderer) RenderDetailed(template string, req gwevent.Request, opts Options) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = r.fail(&BindingError{Value: p}, opts)
		}
	}()

	n := gwevent.Normalize(req)
	if n.BodyErr != nil {
		r.logger.WithFields(logrus.Fields{
			"error": n.BodyErr,
		}).Debug("request body is not JSON, using an empty object")
	}

	t, err := r.engine.Parse(template)
	if err != nil {
		return r.fail(errors.Wrap(err, "parse template"), opts)
	}

	vars, ctx := r.Bindings(n, opts.JSONMiss)

	out, err := r.engine.Execute(t, vars)
	if err != nil {
		return r.fail(errors.Wrap(err, "execute template"), opts)
	}

	return &Result{
		Output:    finish(out, opts),
		Overrides: ctx.Overrides(),
	}, nil
}

func (r *Renderer) fail(err error, opts Options) (*Result, error) {
	r.logger.WithFields(logrus.Fields{
		"error":  err,
		"strict": opts.ThrowOnError,
	}).Warn("template render failed")

	if opts.ThrowOnError {
		return nil, errors.Wrap(err, "render template")
	}
	return &Result{Output: fmt.Sprintf("Error: %s", errors.Cause(err).Error())}, nil
}

func finish(out string, opts Options) string {
	if !opts.PreserveWhitespace {
		out = strings.TrimSpace(out)
	}

	if opts.MinifyJSON && json.Valid([]byte(out)) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(out)); err == nil {
			out = buf.String()
		}
	}
	return out
}
