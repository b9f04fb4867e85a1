package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"user-service/internal/users/domain"
	"user-service/internal/users/ports"
	"user-service/pkg/cache"
	"user-service/pkg/logger"
)

// CachedUserRepository is a read-through decorator over a UserRepository.
// Single-user lookups are served from the cache when possible; every
// write invalidates the affected keys, including the prior email key
// when a save changes the address. A cache failure is never a store
// failure: the call falls through to the wrapped repository.
type CachedUserRepository struct {
	repo  ports.UserRepository
	store cache.Store
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedUserRepository wraps repo with a cache.
func NewCachedUserRepository(repo ports.UserRepository, store cache.Store, ttl time.Duration, log *logger.Logger) *CachedUserRepository {
	return &CachedUserRepository{
		repo:  repo,
		store: store,
		ttl:   ttl,
		log:   log,
	}
}

func idKey(id uint) string {
	return fmt.Sprintf("user:id:%d", id)
}

func emailKey(email string) string {
	return "user:email:" + email
}

func (r *CachedUserRepository) Save(ctx context.Context, user *domain.User) error {
	// Snapshot the stored row first: an email change must also evict the
	// key of the address being replaced.
	var prior *domain.User
	if !user.IsNew() {
		prior, _ = r.repo.GetByID(ctx, user.ID)
	}

	if err := r.repo.Save(ctx, user); err != nil {
		return err
	}

	if prior != nil && prior.Email != user.Email {
		if err := r.store.Delete(ctx, emailKey(prior.Email)); err != nil {
			r.log.WithContext(ctx).Warn("cache invalidation failed", zap.Uint("user_id", user.ID), zap.Error(err))
		}
	}
	r.invalidate(ctx, user)
	return nil
}

func (r *CachedUserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	if user, ok := r.lookup(ctx, idKey(id)); ok {
		return user, nil
	}

	user, err := r.repo.GetByID(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	r.fill(ctx, user)
	return user, nil
}

func (r *CachedUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if user, ok := r.lookup(ctx, emailKey(email)); ok {
		return user, nil
	}

	user, err := r.repo.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}
	r.fill(ctx, user)
	return user, nil
}

// GetAll always hits the store; list results are not cached.
func (r *CachedUserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	return r.repo.GetAll(ctx)
}

func (r *CachedUserRepository) DeleteByID(ctx context.Context, id uint) error {
	// Snapshot before the delete so the email key can be invalidated too.
	user, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := r.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	if user != nil {
		r.invalidate(ctx, user)
	}
	return nil
}

func (r *CachedUserRepository) DeleteByEmail(ctx context.Context, email string) error {
	user, err := r.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := r.repo.DeleteByEmail(ctx, email); err != nil {
		return err
	}
	if user != nil {
		r.invalidate(ctx, user)
	}
	return nil
}

// ExistsByID always hits the store: existence must reflect the row, not
// a possibly stale cache entry.
func (r *CachedUserRepository) ExistsByID(ctx context.Context, id uint) (bool, error) {
	return r.repo.ExistsByID(ctx, id)
}

func (r *CachedUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.repo.ExistsByEmail(ctx, email)
}

func (r *CachedUserRepository) lookup(ctx context.Context, key string) (*domain.User, bool) {
	b, err := r.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			r.log.WithContext(ctx).Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var user domain.User
	if err := json.Unmarshal(b, &user); err != nil {
		r.log.WithContext(ctx).Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &user, true
}

func (r *CachedUserRepository) fill(ctx context.Context, user *domain.User) {
	b, err := json.Marshal(user)
	if err != nil {
		return
	}
	for _, key := range []string{idKey(user.ID), emailKey(user.Email)} {
		if err := r.store.Set(ctx, key, b, r.ttl); err != nil {
			r.log.WithContext(ctx).Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (r *CachedUserRepository) invalidate(ctx context.Context, user *domain.User) {
	if err := r.store.Delete(ctx, idKey(user.ID), emailKey(user.Email)); err != nil {
		r.log.WithContext(ctx).Warn("cache invalidation failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}
