package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"user-service/pkg/config"
	apperrors "user-service/pkg/errors"
	"user-service/pkg/logger"
)

// emailPattern is the full address pattern applied by the validation stage.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateSettings configures the validation stage for one operation.
type ValidateSettings struct {
	NotNull       bool
	NotEmpty      bool
	ValidateEmail bool
	Message       string
}

// Validate returns a stage that checks positional arguments before the
// wrapped operation runs. On failure the operation is never invoked and
// no inner audit or timing record is produced. FailFast (global) stops at
// the first failure; otherwise all failures are collected into one error.
func Validate(global config.ValidationConfig, s ValidateSettings, log *logger.Logger) Stage {
	return func(next Operation) Operation {
		return func(ctx context.Context, args []any) (any, error) {
			if !global.Enabled {
				return next(ctx, args)
			}

			var failures []string
			fail := func(msg string) (any, error) {
				log.WithContext(ctx).Warn("parameter validation failed: " + msg)
				return nil, apperrors.NewValidation(msg, nil)
			}

			for i, arg := range args {
				if s.NotNull && isNil(arg) {
					msg := fmt.Sprintf("parameter at index %d is null: %s", i, s.Message)
					if global.FailFast {
						return fail(msg)
					}
					failures = append(failures, msg)
					continue
				}
				if s.NotEmpty && !isNil(arg) && isEmpty(arg) {
					msg := fmt.Sprintf("parameter at index %d is empty: %s", i, s.Message)
					if global.FailFast {
						return fail(msg)
					}
					failures = append(failures, msg)
					continue
				}
				if s.ValidateEmail && global.ValidateEmailFormat {
					// Only strings that look like addresses are checked.
					if str, ok := arg.(string); ok && strings.Contains(str, "@") && !emailPattern.MatchString(str) {
						msg := fmt.Sprintf("parameter at index %d has invalid email format: %s", i, s.Message)
						if global.FailFast {
							return fail(msg)
						}
						failures = append(failures, msg)
					}
				}
			}

			if len(failures) > 0 {
				return fail(strings.Join(failures, "; "))
			}

			return next(ctx, args)
		}
	}
}

// isNil reports whether the argument is absent, including typed nil
// pointers hidden behind the interface.
func isNil(arg any) bool {
	if arg == nil {
		return true
	}
	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// isEmpty reports whether a string, slice, map or array argument is empty.
func isEmpty(arg any) bool {
	switch v := arg.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	}
	rv := reflect.ValueOf(arg)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}
