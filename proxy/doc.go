// Package proxy serves the render endpoint from an aws lambda function acting
// as an aws api gateway v2 (http) integration. The request/response pass
// through the lambda as events.APIGatewayV2HTTPRequest and
// events.APIGatewayProxyResponse.
//
// The router is designed to be as simplistic as possible and is not feature
// rich.
package proxy
