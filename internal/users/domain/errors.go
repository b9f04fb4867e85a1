package domain

import "user-service/pkg/errors"

// Domain-specific errors
var (
	ErrEmailExists  = errors.NewConflict("User with this email already exists")
	ErrUserNotExist = errors.NewInvalidState("user does not exist")
)
