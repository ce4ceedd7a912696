package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span and metric attribute keys.
//
// Never put actual credential values (tokens, secrets, codes) into telemetry;
// only metadata such as grant types, status codes, and error codes.
const (
	AttrGrantType     = "oauth.grant_type"
	AttrClientID      = "oauth.client_id"
	AttrStatusCode    = "oauth.status_code"
	AttrError         = "oauth.error"
	AttrRefreshIssued = "oauth.refresh_issued"
)

// SetGrantAttributes annotates a pipeline span with the request outcome.
func SetGrantAttributes(span trace.Span, grantType string, statusCode int) {
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String(AttrGrantType, grantType),
		attribute.Int(AttrStatusCode, statusCode),
	)
	if statusCode >= 400 {
		span.SetStatus(codes.Error, "grant rejected")
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
