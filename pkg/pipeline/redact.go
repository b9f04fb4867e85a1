package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// defaultSensitive are the field-name fragments always masked in audit
// records, regardless of per-operation settings.
var defaultSensitive = []string{"password", "credential", "secret"}

const maskedPlaceholder = "***MASKED***"

// redactor renders argument and result values for audit records with an
// explicit redaction policy: declared sensitive field names are masked at
// serialization time, oversized values are truncated, and email-like
// strings keep only their first two characters and the domain.
type redactor struct {
	sensitive []string
	maxLen    int
}

func newRedactor(extraFields []string, maxLen int) *redactor {
	if maxLen <= 0 {
		maxLen = 200
	}
	sensitive := make([]string, 0, len(defaultSensitive)+len(extraFields))
	sensitive = append(sensitive, defaultSensitive...)
	for _, f := range extraFields {
		sensitive = append(sensitive, strings.ToLower(f))
	}
	return &redactor{sensitive: sensitive, maxLen: maxLen}
}

// Args renders a positional argument list.
func (r *redactor) Args(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = r.Value(arg)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Value renders a single value with the redaction policy applied.
func (r *redactor) Value(v any) string {
	if v == nil {
		return "null"
	}

	switch s := v.(type) {
	case string:
		return r.renderString(s)
	case fmt.Stringer:
		return r.renderString(s.String())
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return r.truncate(fmt.Sprintf("%v", v))
	}

	// Structured values are redacted field by field.
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err == nil {
		redacted, err := json.Marshal(r.redactMap(m))
		if err == nil {
			return r.truncate(string(redacted))
		}
	}

	return r.truncate(string(raw))
}

func (r *redactor) redactMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if r.isSensitiveField(k) {
			out[k] = maskedPlaceholder
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			out[k] = r.redactMap(val)
		case string:
			out[k] = r.renderString(val)
		default:
			out[k] = v
		}
	}
	return out
}

func (r *redactor) isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range r.sensitive {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// renderString masks email-like strings (first two characters of the
// local part and the domain survive) and truncates oversized values.
func (r *redactor) renderString(s string) string {
	if emailPattern.MatchString(s) {
		return maskEmail(s)
	}
	return r.truncate(s)
}

func (r *redactor) truncate(s string) string {
	if len(s) > r.maxLen {
		return s[:r.maxLen] + "...(truncated)"
	}
	return s
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 2 {
		return "***" + email[at:]
	}
	return email[:2] + strings.Repeat("*", at-2) + email[at:]
}
