// Package auth verifies bearer tokens and extracts the caller identity.
// Role claims are read from "authorities", "roles", or a space-delimited
// "scope" claim, in that priority order, and normalized to the canonical
// "role:" prefixed form.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RolePrefix is the canonical prefix role strings are normalized to.
const RolePrefix = "role:"

// Claims is the verified caller identity.
type Claims struct {
	Subject string
	Email   string
	Name    string
	Roles   []string
}

// HasAnyRole reports whether the caller holds at least one of the given
// canonical roles.
func (c *Claims) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		want = NormalizeRole(want)
		for _, have := range c.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// NormalizeRole maps a raw role string to the canonical "role:" form.
// Legacy "ROLE_" prefixed authorities are accepted.
func NormalizeRole(role string) string {
	role = strings.TrimSpace(role)
	if strings.HasPrefix(role, RolePrefix) {
		return role
	}
	role = strings.TrimPrefix(role, "ROLE_")
	return RolePrefix + strings.ToLower(role)
}

// Verifier parses and validates bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a verifier for HS256 tokens from the given issuer.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Parse validates the token and returns the caller's claims.
func (v *Verifier) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer), jwt.WithLeeway(60*time.Second))
	if err != nil {
		return nil, err
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return &Claims{
		Subject: stringClaim(mc, "sub"),
		Email:   stringClaim(mc, "email"),
		Name:    stringClaim(mc, "name"),
		Roles:   extractRoles(mc),
	}, nil
}

// extractRoles reads role claims in priority order: authorities, roles,
// then the space-delimited scope claim.
func extractRoles(mc jwt.MapClaims) []string {
	if v, ok := mc["authorities"]; ok {
		return normalizeAll(toStrings(v))
	}
	if v, ok := mc["roles"]; ok {
		return normalizeAll(toStrings(v))
	}
	if v, ok := mc["scope"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return normalizeAll(strings.Fields(s))
		}
	}
	return nil
}

func normalizeAll(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, NormalizeRole(r))
		}
	}
	return out
}

func toStrings(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{vals}
	}
	return nil
}

func stringClaim(mc jwt.MapClaims, key string) string {
	if s, ok := mc[key].(string); ok {
		return s
	}
	return ""
}
