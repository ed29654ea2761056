package proxy

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/prognoshealth/vtlemu/lambdautils"
	"github.com/prognoshealth/vtlemu/renderapi"
)

// NewRenderRouter returns a router serving the render endpoint:
//
//	POST /render    render a template against an event
//	GET  /preview   render the template param against this request
//	POST /preview   same, the template may come from a form body
//	GET  /health    liveness check
//
// Unmatched requests get a json 404 and handler errors a json 500.
func NewRenderRouter(svc *renderapi.Service, logger *logrus.Logger) *Router {
	if logger == nil {
		logger = logrus.New()
	}

	router := &Router{}

	router.POST("/render", func(ctx *RouteContext) (events.APIGatewayProxyResponse, error) {
		body, err := ctx.Body()
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, renderapi.ErrorResponse{Error: err.Error()})
		}

		status, payload := svc.Handle([]byte(body))

		lambdautils.Logger(ctx.Context, logger).WithFields(logrus.Fields{
			"status":     status,
			"request_id": ctx.Request.RequestContext.RequestID,
		}).Info("render request")

		return ctx.JSON(status, payload)
	})

	preview := previewHandler(svc, logger)
	router.GET("/preview", preview)
	router.POST("/preview", preview)

	router.GET("/health", func(ctx *RouteContext) (events.APIGatewayProxyResponse, error) {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	router.AddCatchAllHandler(func(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayProxyResponse, error) {
		return jsonResponse(http.StatusNotFound, renderapi.ErrorResponse{Error: "not found"})
	})

	router.AddErrorHandler(func(ctx context.Context, request events.APIGatewayV2HTTPRequest, err error) (events.APIGatewayProxyResponse, error) {
		lambdautils.Logger(ctx, logger).WithFields(logrus.Fields{
			"error":  err,
			"method": request.RequestContext.HTTP.Method,
			"path":   request.RawPath,
		}).Error("request failed")

		return jsonResponse(http.StatusInternalServerError, renderapi.ErrorResponse{Error: "internal server error"})
	})

	return router
}

// previewHandler renders the "template" param against the incoming request
// as API Gateway would have passed it to an integration. A "method" param
// replaces the simulated http method.
func previewHandler(svc *renderapi.Service, logger *logrus.Logger) RouteHandler {
	return func(ctx *RouteContext) (events.APIGatewayProxyResponse, error) {
		event := ctx.Event()

		if name, ok := ctx.Params["method"]; ok {
			method, err := ParseHttpMethod(name)
			if err != nil {
				return ctx.JSON(http.StatusBadRequest, renderapi.ErrorResponse{Error: err.Error()})
			}
			event.HTTPMethod = method.String()
			event.RequestContext["httpMethod"] = method.String()
		}

		req := &renderapi.Request{Template: ctx.Params["template"], Event: &event}
		if err := svc.Validate(req); err != nil {
			return ctx.JSON(http.StatusBadRequest, renderapi.ErrorResponse{Error: errors.Cause(err).Error()})
		}

		status, payload := svc.Render(req)

		lambdautils.Logger(ctx.Context, logger).WithFields(logrus.Fields{
			"status":     status,
			"method":     event.HTTPMethod,
			"request_id": ctx.Request.RequestContext.RequestID,
		}).Info("preview request")

		return ctx.JSON(status, payload)
	}
}
