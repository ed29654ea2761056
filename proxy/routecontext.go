package proxy

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"

	"github.com/prognoshealth/vtlemu/gwevent"
)

// RouteContext contains all the request information for a route when matched.
type RouteContext struct {
	Context context.Context
	Request events.APIGatewayV2HTTPRequest
	Params  map[string]string
}

// Body returns a string representation of the request body
func (ctx *RouteContext) Body() (string, error) {
	return decodeBody(ctx.Request)
}

// Event returns the request as the simulated request templates see.
func (ctx *RouteContext) Event() gwevent.Request {
	return gwevent.FromV2HTTPRequest(ctx.Request)
}

// JSON builds a json response with the given status.
func (ctx *RouteContext) JSON(status int, v interface{}) (events.APIGatewayProxyResponse, error) {
	return jsonResponse(status, v)
}

func decodeBody(request events.APIGatewayV2HTTPRequest) (string, error) {
	if request.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			return "", errors.Wrapf(err, "unable to decode request body for request %s", request.RequestContext.RequestID)
		}

		return string(b), nil
	}

	return request.Body, nil
}

func jsonResponse(status int, v interface{}) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayProxyResponse{}, errors.Wrap(err, "failed encoding response")
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}
