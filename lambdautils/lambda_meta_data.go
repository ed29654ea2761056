package lambdautils

import (
	"context"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/sirupsen/logrus"
)

// LambdaMetaData stored details about the current lambda context.
type LambdaMetaData struct {
	FunctionName    string
	FunctionVersion string
	LogGroupName    string
	LogStreamName   string
	MemoryLimitInMB int
	Context         *lambdacontext.LambdaContext
}

// GetLambdaMetaData returns MetaData extracted from the current lambda context.
func GetLambdaMetaData(ctx context.Context) LambdaMetaData {
	lm := LambdaMetaData{
		FunctionName:    lambdacontext.FunctionName,
		FunctionVersion: lambdacontext.FunctionVersion,
		LogGroupName:    lambdacontext.LogGroupName,
		LogStreamName:   lambdacontext.LogStreamName,
		MemoryLimitInMB: lambdacontext.MemoryLimitInMB,
	}

	lm.Context, _ = lambdacontext.FromContext(ctx)
	return lm
}

// Fields returns the metadata as log fields. Empty values are left out.
func (lm LambdaMetaData) Fields() logrus.Fields {
	fields := logrus.Fields{}

	add := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}

	add("function_name", lm.FunctionName)
	add("function_version", lm.FunctionVersion)
	add("log_stream", lm.LogStreamName)

	if lm.Context != nil {
		add("aws_request_id", lm.Context.AwsRequestID)
		add("function_arn", lm.Context.InvokedFunctionArn)
	}

	return fields
}

// Logger returns a log entry carrying the invocation metadata of ctx.
func Logger(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithFields(GetLambdaMetaData(ctx).Fields())
}
