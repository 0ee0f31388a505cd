package main

import (
	"context"

	"transcript-calculator/internal/calculator"
	"transcript-calculator/internal/config"
	"transcript-calculator/internal/observability"
)

// initTelemetry initialises the logger, every enabled OTLP pipeline and the
// application-specific metric instruments. Add new domain InitMetrics calls
// here as the project grows.
func initTelemetry(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	shutdown, err := observability.Init(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := calculator.InitMetrics(); err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	return shutdown, nil
}
