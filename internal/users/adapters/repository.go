package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"user-service/internal/users/domain"
	apperrors "user-service/pkg/errors"
)

// UserModel is the GORM model for users (persistence layer)
type UserModel struct {
	ID        uint      `gorm:"primaryKey"`
	FirstName string    `gorm:"size:100;not null"`
	LastName  string    `gorm:"size:100"`
	Email     string    `gorm:"size:255;uniqueIndex;not null"`
	Address   string    `gorm:"size:255"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// PostgresUserRepository implements UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgreSQL user repository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Migrate runs auto-migration for the user model
func (r *PostgresUserRepository) Migrate() error {
	return r.db.AutoMigrate(&UserModel{})
}

// Save inserts the user when its ID is unset and overwrites the stored
// row otherwise. The store-assigned ID is written back to the entity.
func (r *PostgresUserRepository) Save(ctx context.Context, user *domain.User) error {
	model := toModel(user)

	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrEmailExists
		}
		return apperrors.NewInternal("failed to save user", result.Error)
	}

	user.ID = model.ID
	return nil
}

// GetByID retrieves a user by ID. Absent rows are a normal outcome.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var model UserModel

	result := r.db.WithContext(ctx).First(&model, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternal("failed to get user", result.Error)
	}

	return toDomain(&model), nil
}

// GetByEmail retrieves a user by email. Absent rows are a normal outcome.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model UserModel

	result := r.db.WithContext(ctx).Where("email = ?", email).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewInternal("failed to get user by email", result.Error)
	}

	return toDomain(&model), nil
}

// GetAll retrieves every persisted user
func (r *PostgresUserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	var models []UserModel

	result := r.db.WithContext(ctx).Order("id").Find(&models)
	if result.Error != nil {
		return nil, apperrors.NewInternal("failed to list users", result.Error)
	}

	users := make([]*domain.User, 0, len(models))
	for i := range models {
		users = append(users, toDomain(&models[i]))
	}
	return users, nil
}

// DeleteByID deletes a user by ID. Deleting a missing row is not an error.
func (r *PostgresUserRepository) DeleteByID(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&UserModel{}, id)
	if result.Error != nil {
		return apperrors.NewInternal("failed to delete user", result.Error)
	}
	return nil
}

// DeleteByEmail deletes a user by email. Deleting a missing row is not an error.
func (r *PostgresUserRepository) DeleteByEmail(ctx context.Context, email string) error {
	result := r.db.WithContext(ctx).Where("email = ?", email).Delete(&UserModel{})
	if result.Error != nil {
		return apperrors.NewInternal("failed to delete user by email", result.Error)
	}
	return nil
}

// ExistsByID reports whether a user with the ID is persisted
func (r *PostgresUserRepository) ExistsByID(ctx context.Context, id uint) (bool, error) {
	var count int64

	result := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Count(&count)
	if result.Error != nil {
		return false, apperrors.NewInternal("failed to check user by id", result.Error)
	}
	return count > 0, nil
}

// ExistsByEmail reports whether a user with the email is persisted
func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64

	result := r.db.WithContext(ctx).Model(&UserModel{}).Where("email = ?", email).Count(&count)
	if result.Error != nil {
		return false, apperrors.NewInternal("failed to check user by email", result.Error)
	}
	return count > 0, nil
}

// toModel converts a domain entity to a GORM model
func toModel(user *domain.User) *UserModel {
	return &UserModel{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Address:   user.Address,
	}
}

// toDomain converts a GORM model to a domain entity
func toDomain(model *UserModel) *domain.User {
	return &domain.User{
		ID:        model.ID,
		FirstName: model.FirstName,
		LastName:  model.LastName,
		Email:     model.Email,
		Address:   model.Address,
	}
}
