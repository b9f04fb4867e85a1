package pipeline

import (
	"context"

	"go.uber.org/zap"

	"user-service/pkg/config"
	apperrors "user-service/pkg/errors"
	"user-service/pkg/logger"
)

// AuditSettings configures the audit stage for one operation.
type AuditSettings struct {
	Operation       string
	EntityType      string
	LogParameters   bool
	LogResult       bool
	SensitiveFields []string
}

// Audit returns a stage that emits a structured record after the wrapped
// operation completes, with parameters and results passed through the
// redaction policy. Errors are observed and re-raised, never suppressed.
func Audit(global config.AuditConfig, s AuditSettings, log *logger.Logger) Stage {
	return func(next Operation) Operation {
		return func(ctx context.Context, args []any) (any, error) {
			if !global.Enabled {
				return next(ctx, args)
			}

			result, err := next(ctx, args)

			red := newRedactor(s.SensitiveFields, global.MaxParameterLength)
			fields := []zap.Field{
				zap.String("operation", s.Operation),
				zap.String("entity", s.EntityType),
			}
			if s.LogParameters && global.IncludeParameters {
				fields = append(fields, zap.String("parameters", red.Args(args)))
			}

			if err != nil {
				fields = append(fields,
					zap.String("status", "ERROR"),
					zap.String("error_kind", apperrors.Code(err)),
					zap.String("error_message", err.Error()),
				)
				log.WithContext(ctx).Error("audit record", fields...)
				return nil, err
			}

			fields = append(fields, zap.String("status", "SUCCESS"))
			if s.LogResult && global.IncludeReturnValue {
				fields = append(fields, zap.String("result", red.Value(result)))
			}
			log.WithContext(ctx).Info("audit record", fields...)

			return result, nil
		}
	}
}
