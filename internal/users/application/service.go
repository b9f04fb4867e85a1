package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"user-service/internal/users/domain"
	"user-service/internal/users/ports"
	"user-service/pkg/config"
	apperrors "user-service/pkg/errors"
	"user-service/pkg/logger"
	"user-service/pkg/pipeline"
)

// Service orchestrates store access and event publication for every user
// use case. It is the only component allowed to pair a store write with a
// publish; the write always happens first, and a failed write means no
// event is submitted.
//
// Every operation is wrapped at construction time with the fixed pipeline
// stage order: validation, then audit, then timing around the business
// call.
type Service struct {
	repo      ports.UserRepository
	publisher ports.EventPublisher
	log       *logger.Logger

	saveOp          pipeline.Operation
	getByEmailOp    pipeline.Operation
	getByIDOp       pipeline.Operation
	getAllOp        pipeline.Operation
	deleteByIDOp    pipeline.Operation
	deleteByEmailOp pipeline.Operation
	updateOp        pipeline.Operation
	existsByEmailOp pipeline.Operation
}

// NewService creates the user operation service with its pipeline wiring.
// publisher may be nil when the message channel is unavailable; mutations
// then proceed without events.
func NewService(repo ports.UserRepository, publisher ports.EventPublisher, cfg *config.Config, log *logger.Logger) *Service {
	s := &Service{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}

	val, aud, perf := cfg.Validation, cfg.Audit, cfg.Perf

	s.saveOp = pipeline.Chain(s.save,
		pipeline.Validate(val, pipeline.ValidateSettings{NotNull: true, Message: "user cannot be null"}, log),
		pipeline.Audit(aud, pipeline.AuditSettings{Operation: "SAVE_USER", EntityType: "User", LogParameters: true}, log),
		pipeline.Timing(perf, pipeline.TimingSettings{Operation: "Save User", WarnThreshold: 500 * time.Millisecond, Detailed: true}, log),
	)
	s.getByEmailOp = pipeline.Chain(s.getByEmail,
		pipeline.Validate(val, pipeline.ValidateSettings{NotNull: true, ValidateEmail: true, Message: "email cannot be null and must be valid"}, log),
		pipeline.Timing(perf, pipeline.TimingSettings{Operation: "Get User By Email", WarnThreshold: 300 * time.Millisecond}, log),
	)
	s.getByIDOp = pipeline.Chain(s.getByID,
		pipeline.Validate(val, pipeline.ValidateSettings{NotNull: true, Message: "user ID cannot be null"}, log),
		pipeline.Timing(perf, pipeline.TimingSettings{Operation: "Get User By ID", WarnThreshold: 200 * time.Millisecond}, log),
	)
	s.getAllOp = pipeline.Chain(s.getAll,
		pipeline.Timing(perf, pipeline.TimingSettings{Operation: "Get All Users", WarnThreshold: time.Second}, log),
	)
	s.deleteByIDOp = pipeline.Chain(s.deleteByID,
		pipeline.Validate(val, pipeline.ValidateSettings{NotNull: true, Message: "user ID cannot be null"}, log),
		pipeline.Audit(aud, pipeline.AuditSettings{Operation: "DELETE_USER_BY_ID", EntityType: "User", LogParameters: true, LogResult: true}, log),
		pipeline.Timing(perf, pipeline.TimingSettings{Operation: "Delete User By ID", WarnThreshold: 400 * time.Millisecond}, log),
	)
	s.deleteByEmailOp = pipeline.Chain(s.deleteByEmail,
		pipeline.Validate(val, pipeline.ValidateSettings{NotNull: true, ValidateEmail: true, Message: "email cannot be null and must be valid"}, log),
		pipeline.Audit(aud, pipeline.AuditSettings{Operation: "DELETE_USER_BY_EMAIL", EntityType: "User", LogParameters: true, LogResult: true}, log),
		pipeline.Timing(perf, pipeline.TimingSettings{Operation: "Delete User By Email", WarnThreshold: 600 * time.Millisecond}, log),
	)
	s.updateOp = pipeline.Chain(s.update,
		pipeline.Validate(val, pipeline.ValidateSettings{NotNull: true, Message: "user cannot be null"}, log),
		pipeline.Audit(aud, pipeline.AuditSettings{Operation: "UPDATE_USER", EntityType: "User", LogParameters: true}, log),
		pipeline.Timing(perf, pipeline.TimingSettings{Operation: "Update User", WarnThreshold: 500 * time.Millisecond, Detailed: true}, log),
	)
	s.existsByEmailOp = pipeline.Chain(s.existsByEmail,
		pipeline.Validate(val, pipeline.ValidateSettings{NotNull: true, ValidateEmail: true, Message: "email cannot be null and must be valid"}, log),
		pipeline.Timing(perf, pipeline.TimingSettings{Operation: "Check User Exists By Email", WarnThreshold: 200 * time.Millisecond}, log),
	)

	return s
}

// Create persists a user and announces USER_CREATED. A caller that passes
// an already-persisted user is tolerated: the save goes through and
// USER_UPDATED is announced instead.
func (s *Service) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	out, err := s.saveOp(ctx, []any{user})
	if err != nil {
		return nil, err
	}
	return out.(*domain.User), nil
}

// Update overwrites an existing user and announces USER_UPDATED. The ID
// must be set and present in the store.
func (s *Service) Update(ctx context.Context, user *domain.User) (*domain.User, error) {
	out, err := s.updateOp(ctx, []any{user})
	if err != nil {
		return nil, err
	}
	return out.(*domain.User), nil
}

// GetByEmail returns the user with the given email, or nil when absent.
func (s *Service) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	out, err := s.getByEmailOp(ctx, []any{email})
	if err != nil || out == nil {
		return nil, err
	}
	return out.(*domain.User), nil
}

// GetByID returns the user with the given ID, or nil when absent.
func (s *Service) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	out, err := s.getByIDOp(ctx, []any{id})
	if err != nil || out == nil {
		return nil, err
	}
	return out.(*domain.User), nil
}

// GetAll returns every persisted user.
func (s *Service) GetAll(ctx context.Context) ([]*domain.User, error) {
	out, err := s.getAllOp(ctx, nil)
	if err != nil {
		return nil, err
	}
	return out.([]*domain.User), nil
}

// DeleteByID removes the user with the given ID. Returns false, without
// an error, when no such user exists.
func (s *Service) DeleteByID(ctx context.Context, id uint) (bool, error) {
	out, err := s.deleteByIDOp(ctx, []any{id})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

// DeleteByEmail removes the user with the given email. Returns false,
// without an error, when no such user exists.
func (s *Service) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	out, err := s.deleteByEmailOp(ctx, []any{email})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

// ExistsByEmail reports whether a user with the email is persisted.
func (s *Service) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	out, err := s.existsByEmailOp(ctx, []any{email})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

// Business operations, wrapped by the pipeline at construction.

func (s *Service) save(ctx context.Context, args []any) (any, error) {
	user := args[0].(*domain.User)

	// Decide created-vs-updated before the store assigns an ID.
	isNew := user.IsNew()

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, apperrors.Wrap(err, "failed to save user")
	}

	if s.publisher != nil {
		if isNew {
			s.publisher.PublishUserCreated(user)
		} else {
			s.publisher.PublishUserUpdated(user)
		}
	}

	s.log.WithContext(ctx).Info("user saved",
		zap.Uint("user_id", user.ID),
		zap.Bool("created", isNew),
	)

	return user, nil
}

func (s *Service) update(ctx context.Context, args []any) (any, error) {
	user := args[0].(*domain.User)

	if user.IsNew() {
		return nil, domain.ErrUserNotExist
	}
	exists, err := s.repo.ExistsByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrUserNotExist
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, apperrors.Wrap(err, "failed to update user")
	}

	if s.publisher != nil {
		s.publisher.PublishUserUpdated(user)
	}

	return user, nil
}

func (s *Service) getByEmail(ctx context.Context, args []any) (any, error) {
	user, err := s.repo.GetByEmail(ctx, args[0].(string))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return user, nil
}

func (s *Service) getByID(ctx context.Context, args []any) (any, error) {
	user, err := s.repo.GetByID(ctx, args[0].(uint))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return user, nil
}

func (s *Service) getAll(ctx context.Context, _ []any) (any, error) {
	users, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Service) deleteByID(ctx context.Context, args []any) (any, error) {
	id := args[0].(uint)

	// Snapshot first: the deletion event has to carry the record as it
	// was before removal.
	snapshot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if snapshot == nil {
		return false, nil
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return false, err
	}

	exists, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return false, err
	}
	deleted := !exists

	if deleted && s.publisher != nil {
		s.publisher.PublishUserDeleted(snapshot)
	}

	return deleted, nil
}

func (s *Service) deleteByEmail(ctx context.Context, args []any) (any, error) {
	email := args[0].(string)

	snapshot, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if snapshot == nil {
		return false, nil
	}

	if err := s.repo.DeleteByEmail(ctx, email); err != nil {
		return false, err
	}

	remaining, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	deleted := remaining == nil

	if deleted && s.publisher != nil {
		s.publisher.PublishUserDeleted(snapshot)
	}

	return deleted, nil
}

func (s *Service) existsByEmail(ctx context.Context, args []any) (any, error) {
	exists, err := s.repo.ExistsByEmail(ctx, args[0].(string))
	if err != nil {
		return nil, err
	}
	return exists, nil
}
