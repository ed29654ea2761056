// lambda serves the render endpoint behind an api gateway http api.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"github.com/prognoshealth/vtlemu/config"
	"github.com/prognoshealth/vtlemu/mapping"
	"github.com/prognoshealth/vtlemu/proxy"
	"github.com/prognoshealth/vtlemu/renderapi"
)

var router *proxy.Router

func init() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed loading configuration")
	}

	logger := cfg.Logger()

	engineOpts, _, err := cfg.EngineOptions()
	if err != nil {
		logger.WithError(err).Fatal("failed configuring template engine")
	}

	renderer := mapping.NewRenderer(mapping.WithEngineOptions(engineOpts...), mapping.WithLogger(logger))
	router = proxy.NewRenderRouter(renderapi.NewService(renderer, cfg.RenderOptions(), logger), logger)
}

func handler(ctx context.Context, request events.APIGatewayV2HTTPRequest) (events.APIGatewayProxyResponse, error) {
	if !router.Valid() {
		return events.APIGatewayProxyResponse{}, router.BuildErrors()
	}

	return router.Route(ctx, request)
}

func main() {
	lambda.Start(handler)
}
