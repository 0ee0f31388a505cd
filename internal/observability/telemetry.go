package observability

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"transcript-calculator/internal/config"
)

// Init sets up the logger and every enabled OTLP pipeline. The returned
// shutdown flushes the pipelines in reverse order.
func Init(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	if err := InitLogger(cfg.Log); err != nil {
		return nil, err
	}

	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	pipelines := []struct {
		name    string
		enabled bool
		init    func(context.Context, string) (func(context.Context) error, error)
	}{
		{"tracing", cfg.Telemetry.Traces, InitTracing},
		{"metrics", cfg.Telemetry.Metrics, InitMetrics},
		{"logging", cfg.Telemetry.Logs, InitLogging},
	}

	for _, p := range pipelines {
		if !p.enabled {
			continue
		}
		fn, err := p.init(ctx, cfg.ServiceName)
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("init %s: %w", p.name, err)
		}
		shutdowns = append(shutdowns, fn)
		Logger.Info("telemetry pipeline enabled", zap.String("pipeline", p.name))
	}

	return shutdown, nil
}
