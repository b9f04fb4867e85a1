package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"user-service/pkg/config"
	"user-service/pkg/logger"
)

// TimingSettings configures the timing stage for one operation.
type TimingSettings struct {
	Operation     string
	WarnThreshold time.Duration
	Detailed      bool
}

// Timing returns a stage that measures wall-clock duration around the
// wrapped operation. Records for calls over the threshold are elevated to
// warning severity and flagged slow. The error, if any, always propagates.
func Timing(global config.PerfConfig, s TimingSettings, log *logger.Logger) Stage {
	return func(next Operation) Operation {
		return func(ctx context.Context, args []any) (any, error) {
			if !global.Enabled {
				return next(ctx, args)
			}

			start := time.Now()
			result, err := next(ctx, args)
			elapsed := time.Since(start)

			fields := []zap.Field{
				zap.String("operation", s.Operation),
				zap.Duration("duration", elapsed),
				zap.Bool("success", err == nil),
			}
			if s.Detailed || global.IncludeDetails {
				fields = append(fields, zap.Int("arg_count", len(args)))
				if err != nil {
					fields = append(fields, zap.String("error", err.Error()))
				}
			}

			slow := s.WarnThreshold > 0 && elapsed > s.WarnThreshold
			if slow {
				fields = append(fields,
					zap.Bool("slow", true),
					zap.Duration("threshold", s.WarnThreshold),
				)
			}

			if slow && global.LogSlowOperations {
				log.WithContext(ctx).Warn("operation timing", fields...)
			} else {
				log.WithContext(ctx).Info("operation timing", fields...)
			}

			return result, err
		}
	}
}
