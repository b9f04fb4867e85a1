package domain

import "regexp"

// User represents the user identity and profile record. An ID of zero
// means the user has not been persisted yet; the store assigns the ID on
// first save and it is immutable thereafter.
type User struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Address   string `json:"address"`
}

// IsNew reports whether the user has been persisted.
func (u *User) IsNew() bool {
	return u.ID == 0
}

// EmailRegex is the route-level pattern for addresses: ASCII letters,
// digits and +_.- before the @, letters, digits and .- after.
var EmailRegex = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+$`)

// ValidEmail reports whether the address matches the route-level pattern.
func ValidEmail(email string) bool {
	return email != "" && EmailRegex.MatchString(email)
}
