package instrumentation

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metric instruments for the grant pipeline.
type Metrics struct {
	GrantRequestsTotal metric.Int64Counter
	GrantDuration      metric.Float64Histogram
	GrantErrorsTotal   metric.Int64Counter
	TokensIssuedTotal  metric.Int64Counter
}

// newMetrics creates and registers all metric instruments.
func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error
	m.GrantRequestsTotal, err = meter.Int64Counter(
		"oauth.grant.requests.total",
		metric.WithDescription("Total number of token-endpoint requests processed"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create grant.requests.total counter: %w", err)
	}

	m.GrantDuration, err = meter.Float64Histogram(
		"oauth.grant.duration",
		metric.WithDescription("Grant pipeline duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create grant.duration histogram: %w", err)
	}

	m.GrantErrorsTotal, err = meter.Int64Counter(
		"oauth.grant.errors.total",
		metric.WithDescription("Total number of failed token-endpoint requests by error code"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create grant.errors.total counter: %w", err)
	}

	m.TokensIssuedTotal, err = meter.Int64Counter(
		"oauth.tokens.issued.total",
		metric.WithDescription("Total number of access tokens issued"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokens.issued.total counter: %w", err)
	}

	return m, nil
}

// RecordGrant records one completed token-endpoint request.
func (m *Metrics) RecordGrant(ctx context.Context, grantType string, statusCode int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String(AttrGrantType, grantType),
		attribute.String(AttrStatusCode, strconv.Itoa(statusCode)),
	)
	m.GrantRequestsTotal.Add(ctx, 1, attrs)
	m.GrantDuration.Record(ctx, durationMs, attrs)
}

// RecordGrantError records a failed token-endpoint request by error code.
func (m *Metrics) RecordGrantError(ctx context.Context, grantType, errorCode string) {
	m.GrantErrorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrGrantType, grantType),
		attribute.String(AttrError, errorCode),
	))
}

// RecordTokenIssued records a successful issuance and whether it carried a
// refresh token.
func (m *Metrics) RecordTokenIssued(ctx context.Context, grantType string, withRefresh bool) {
	m.TokensIssuedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrGrantType, grantType),
		attribute.Bool(AttrRefreshIssued, withRefresh),
	))
}
