// Package renderapi implements the JSON render endpoint shared by the
// Lambda handler and the local dev server.
package renderapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/prognoshealth/vtlemu/gwevent"
	"github.com/prognoshealth/vtlemu/mapping"
)

// Request is the body of a render call. Event and Context are aliases; Event
// wins when both are present.
type Request struct {
	Template string           `json:"template" validate:"required"`
	Event    *gwevent.Request `json:"event"`
	Context  *gwevent.Request `json:"context"`
	Options  *RequestOptions  `json:"options"`
}

// RequestOptions override the configured render defaults for one call.
type RequestOptions struct {
	ThrowOnError       *bool  `json:"throwOnError"`
	MinifyJSON         *bool  `json:"minifyJson"`
	PreserveWhitespace *bool  `json:"preserveWhitespace"`
	JSONMiss           string `json:"jsonMiss" validate:"omitempty,oneof=empty null"`
}

// Response is a successful render.
type Response struct {
	Result    string            `json:"result"`
	Overrides mapping.Overrides `json:"overrides"`
}

// ErrorResponse is returned for rejected requests and strict mode failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrMissingTemplate is reported when the request has no template.
var ErrMissingTemplate = errors.New(`Missing "template" in request body.`)

// Service decodes, validates and renders render calls.
type Service struct {
	renderer *mapping.Renderer
	defaults mapping.Options
	validate *validator.Validate
	logger   *logrus.Logger
}

// NewService returns a Service rendering with renderer. defaults apply to
// every call unless the request overrides them.
func NewService(renderer *mapping.Renderer, defaults mapping.Options, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}

	return &Service{
		renderer: renderer,
		defaults: defaults,
		validate: validator.New(),
		logger:   logger,
	}
}

// Decode parses and validates a request body.
func (s *Service) Decode(body []byte) (*Request, error) {
	req := &Request{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, req); err != nil {
			return nil, errors.Wrap(err, "invalid request body")
		}
	}

	return req, s.Validate(req)
}

// Validate checks the request against its validation tags.
func (s *Service) Validate(req *Request) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Template" {
					return ErrMissingTemplate
				}
			}
		}
		return errors.Wrap(err, "invalid request")
	}

	if req.Options != nil {
		if err := s.validate.Struct(req.Options); err != nil {
			return errors.Wrap(err, "invalid options")
		}
	}

	return nil
}

// Options merges the request overrides onto the service defaults.
func (s *Service) Options(req *Request) mapping.Options {
	opts := s.defaults
	if req.Options == nil {
		return opts
	}

	o := req.Options
	if o.ThrowOnError != nil {
		opts.ThrowOnError = *o.ThrowOnError
	}
	if o.MinifyJSON != nil {
		opts.MinifyJSON = *o.MinifyJSON
	}
	if o.PreserveWhitespace != nil {
		opts.PreserveWhitespace = *o.PreserveWhitespace
	}
	if o.JSONMiss != "" {
		opts.JSONMiss, _ = mapping.ParseJSONMiss(o.JSONMiss)
	}

	return opts
}

// Render renders a validated request and returns the HTTP status with the
// payload to encode.
func (s *Service) Render(req *Request) (int, interface{}) {
	event := gwevent.Request{}
	switch {
	case req.Event != nil:
		event = *req.Event
	case req.Context != nil:
		event = *req.Context
	}

	res, err := s.renderer.RenderDetailed(req.Template, event, s.Options(req))
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"error": err,
		}).Info("strict render rejected")

		return http.StatusUnprocessableEntity, ErrorResponse{Error: errors.Cause(err).Error()}
	}

	return http.StatusOK, Response{Result: res.Output, Overrides: res.Overrides}
}

// Handle decodes body and renders it.
func (s *Service) Handle(body []byte) (int, interface{}) {
	req, err := s.Decode(body)
	if err != nil {
		return http.StatusBadRequest, ErrorResponse{Error: errors.Cause(err).Error()}
	}

	return s.Render(req)
}
