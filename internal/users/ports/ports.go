package ports

import (
	"context"

	"user-service/internal/users/domain"
)

// UserRepository is the narrow contract over persistent storage. Lookups
// return (nil, nil) when nothing matches: not-found is a normal outcome,
// not a failure. Email uniqueness is enforced by the store.
type UserRepository interface {
	// Save persists the user: insert when the ID is unset, full
	// overwrite otherwise. The store assigns the ID on insert.
	Save(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uint) (*domain.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetAll retrieves every persisted user
	GetAll(ctx context.Context) ([]*domain.User, error)

	// DeleteByID removes a user; deleting a missing row is not an error
	DeleteByID(ctx context.Context, id uint) error

	// DeleteByEmail removes a user by email
	DeleteByEmail(ctx context.Context, email string) error

	// ExistsByID reports whether a user with the ID is persisted
	ExistsByID(ctx context.Context, id uint) (bool, error)

	// ExistsByEmail reports whether a user with the email is persisted
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// EventPublisher delivers best-effort lifecycle notifications. Calls
// return immediately; delivery failures are logged by the publisher and
// never surface to the originating operation.
type EventPublisher interface {
	PublishUserCreated(user *domain.User)
	PublishUserUpdated(user *domain.User)
	PublishUserDeleted(user *domain.User)

	// PublishInitialLoad announces every existing user once at startup
	// so a fresh consumer can reconstruct current state. Runs
	// synchronously; per-user failures are logged and skipped.
	PublishInitialLoad(users []*domain.User)
}
