package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"user-service/pkg/config"
	apperrors "user-service/pkg/errors"
	"user-service/pkg/logger"
)

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logger.FromZap(zap.New(core)), logs
}

func validationOn() config.ValidationConfig {
	return config.ValidationConfig{Enabled: true, FailFast: true, ValidateEmailFormat: true}
}

func auditOn() config.AuditConfig {
	return config.AuditConfig{Enabled: true, IncludeParameters: true, IncludeReturnValue: true, MaxParameterLength: 200}
}

func perfOn() config.PerfConfig {
	return config.PerfConfig{Enabled: true, LogSlowOperations: true}
}

func TestChainOrder(t *testing.T) {
	var order []string
	stage := func(name string) Stage {
		return func(next Operation) Operation {
			return func(ctx context.Context, args []any) (any, error) {
				order = append(order, name)
				return next(ctx, args)
			}
		}
	}

	op := Chain(func(ctx context.Context, args []any) (any, error) {
		order = append(order, "business")
		return nil, nil
	}, stage("validate"), stage("audit"), stage("timing"))

	_, err := op(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"validate", "audit", "timing", "business"}, order)
}

func TestValidateNotNull(t *testing.T) {
	log, _ := observedLogger()
	called := false
	op := Chain(func(ctx context.Context, args []any) (any, error) {
		called = true
		return nil, nil
	}, Validate(validationOn(), ValidateSettings{NotNull: true, Message: "user cannot be null"}, log))

	_, err := op(context.Background(), []any{nil})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	assert.Contains(t, err.Error(), "parameter at index 0 is null: user cannot be null")
	assert.False(t, called, "wrapped operation must not run on validation failure")
}

func TestValidateTypedNilPointer(t *testing.T) {
	log, _ := observedLogger()
	type thing struct{}
	var p *thing

	op := Chain(func(ctx context.Context, args []any) (any, error) {
		return nil, nil
	}, Validate(validationOn(), ValidateSettings{NotNull: true, Message: "required"}, log))

	_, err := op(context.Background(), []any{p})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestValidateNotEmpty(t *testing.T) {
	log, _ := observedLogger()
	op := Chain(func(ctx context.Context, args []any) (any, error) {
		return nil, nil
	}, Validate(validationOn(), ValidateSettings{NotNull: true, NotEmpty: true, Message: "required"}, log))

	_, err := op(context.Background(), []any{"   "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")

	_, err = op(context.Background(), []any{[]string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}

func TestValidateEmailFormat(t *testing.T) {
	log, _ := observedLogger()
	op := Chain(func(ctx context.Context, args []any) (any, error) {
		return "ok", nil
	}, Validate(validationOn(), ValidateSettings{NotNull: true, ValidateEmail: true, Message: "must be valid"}, log))

	_, err := op(context.Background(), []any{"invalid-email@"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email format")

	out, err := op(context.Background(), []any{"user@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestValidateCollectAll(t *testing.T) {
	log, _ := observedLogger()
	cfg := validationOn()
	cfg.FailFast = false

	op := Chain(func(ctx context.Context, args []any) (any, error) {
		return nil, nil
	}, Validate(cfg, ValidateSettings{NotNull: true, NotEmpty: true, Message: "required"}, log))

	_, err := op(context.Background(), []any{nil, ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parameter at index 0 is null")
	assert.Contains(t, err.Error(), "parameter at index 1 is empty")
}

func TestValidateDisabled(t *testing.T) {
	log, _ := observedLogger()
	op := Chain(func(ctx context.Context, args []any) (any, error) {
		return "ran", nil
	}, Validate(config.ValidationConfig{Enabled: false}, ValidateSettings{NotNull: true}, log))

	out, err := op(context.Background(), []any{nil})
	require.NoError(t, err)
	assert.Equal(t, "ran", out)
}

func TestAuditSuccessRecord(t *testing.T) {
	log, logs := observedLogger()
	op := Chain(func(ctx context.Context, args []any) (any, error) {
		return "done", nil
	}, Audit(auditOn(), AuditSettings{
		Operation:     "SAVE_USER",
		EntityType:    "User",
		LogParameters: true,
		LogResult:     true,
	}, log))

	out, err := op(context.Background(), []any{"jo@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	records := logs.FilterMessage("audit record").All()
	require.Len(t, records, 1)
	fields := records[0].ContextMap()
	assert.Equal(t, "SAVE_USER", fields["operation"])
	assert.Equal(t, "User", fields["entity"])
	assert.Equal(t, "SUCCESS", fields["status"])
}

func TestAuditObservesButNeverSwallowsErrors(t *testing.T) {
	log, logs := observedLogger()
	boom := apperrors.NewInvalidState("user does not exist")

	op := Chain(func(ctx context.Context, args []any) (any, error) {
		return nil, boom
	}, Audit(auditOn(), AuditSettings{Operation: "UPDATE_USER", EntityType: "User"}, log))

	_, err := op(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))

	records := logs.FilterMessage("audit record").All()
	require.Len(t, records, 1)
	assert.Equal(t, zap.ErrorLevel, records[0].Level)
	assert.Equal(t, "ERROR", records[0].ContextMap()["status"])
	assert.Equal(t, apperrors.CodeInvalidState, records[0].ContextMap()["error_kind"])
}

func TestTimingSlowOperationElevatedToWarning(t *testing.T) {
	log, logs := observedLogger()
	op := Chain(func(ctx context.Context, args []any) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return nil, nil
	}, Timing(perfOn(), TimingSettings{Operation: "Get User By ID", WarnThreshold: time.Millisecond}, log))

	_, err := op(context.Background(), nil)
	require.NoError(t, err)

	records := logs.FilterMessage("operation timing").All()
	require.Len(t, records, 1)
	assert.Equal(t, zap.WarnLevel, records[0].Level)
	assert.Equal(t, true, records[0].ContextMap()["slow"])
}

func TestTimingPropagatesError(t *testing.T) {
	log, logs := observedLogger()
	boom := errors.New("db down")

	op := Chain(func(ctx context.Context, args []any) (any, error) {
		return nil, boom
	}, Timing(perfOn(), TimingSettings{Operation: "Save User", WarnThreshold: time.Second}, log))

	_, err := op(context.Background(), nil)
	require.ErrorIs(t, err, boom)

	records := logs.FilterMessage("operation timing").All()
	require.Len(t, records, 1)
	assert.Equal(t, false, records[0].ContextMap()["success"])
}

func TestRedactorMasksSensitiveFields(t *testing.T) {
	r := newRedactor(nil, 200)
	v := r.Value(map[string]any{
		"email":    "john@example.com",
		"password": "hunter2",
	})
	assert.Contains(t, v, maskedPlaceholder)
	assert.NotContains(t, v, "hunter2")
}

func TestRedactorMasksEmails(t *testing.T) {
	r := newRedactor(nil, 200)
	assert.Equal(t, "jo**@example.com", r.Value("john@example.com"))
}

func TestRedactorTruncatesOversizedValues(t *testing.T) {
	r := newRedactor(nil, 10)
	long := "abcdefghijklmnopqrstuvwxyz"
	v := r.Value(long)
	assert.Contains(t, v, "...(truncated)")
	assert.Less(t, len(v), len(long)+len("...(truncated)")+1)
}

func TestRedactorArgs(t *testing.T) {
	r := newRedactor([]string{"token"}, 200)
	out := r.Args([]any{nil, "plain", map[string]any{"token": "abc"}})
	assert.Contains(t, out, "null")
	assert.Contains(t, out, "plain")
	assert.Contains(t, out, maskedPlaceholder)
}
