package application

import (
	"context"
	"testing"

	"user-service/internal/users/domain"
	"user-service/pkg/config"
	"user-service/pkg/errors"
	"user-service/pkg/logger"
)

// MockUserRepository is an in-memory implementation of UserRepository
// that counts store invocations.
type MockUserRepository struct {
	users   map[uint]*domain.User
	byEmail map[string]*domain.User
	nextID  uint
	calls   int
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:   make(map[uint]*domain.User),
		byEmail: make(map[string]*domain.User),
		nextID:  1,
	}
}

func (m *MockUserRepository) Save(ctx context.Context, user *domain.User) error {
	m.calls++
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	}
	copied := *user
	m.users[user.ID] = &copied
	m.byEmail[user.Email] = &copied
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	m.calls++
	user, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.calls++
	user, ok := m.byEmail[email]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (m *MockUserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	m.calls++
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		copied := *u
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MockUserRepository) DeleteByID(ctx context.Context, id uint) error {
	m.calls++
	if u, ok := m.users[id]; ok {
		delete(m.byEmail, u.Email)
		delete(m.users, id)
	}
	return nil
}

func (m *MockUserRepository) DeleteByEmail(ctx context.Context, email string) error {
	m.calls++
	if u, ok := m.byEmail[email]; ok {
		delete(m.users, u.ID)
		delete(m.byEmail, email)
	}
	return nil
}

func (m *MockUserRepository) ExistsByID(ctx context.Context, id uint) (bool, error) {
	m.calls++
	_, ok := m.users[id]
	return ok, nil
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	m.calls++
	_, ok := m.byEmail[email]
	return ok, nil
}

// MockEventPublisher records submitted lifecycle events.
type MockEventPublisher struct {
	created []*domain.User
	updated []*domain.User
	deleted []*domain.User
	initial int
}

func (m *MockEventPublisher) PublishUserCreated(user *domain.User) {
	copied := *user
	m.created = append(m.created, &copied)
}

func (m *MockEventPublisher) PublishUserUpdated(user *domain.User) {
	copied := *user
	m.updated = append(m.updated, &copied)
}

func (m *MockEventPublisher) PublishUserDeleted(user *domain.User) {
	copied := *user
	m.deleted = append(m.deleted, &copied)
}

func (m *MockEventPublisher) PublishInitialLoad(users []*domain.User) {
	m.initial += len(users)
}

func (m *MockEventPublisher) total() int {
	return len(m.created) + len(m.updated) + len(m.deleted) + m.initial
}

func testConfig() *config.Config {
	return &config.Config{
		Validation: config.ValidationConfig{Enabled: true, FailFast: true, ValidateEmailFormat: true},
		Audit:      config.AuditConfig{Enabled: true, IncludeParameters: true, MaxParameterLength: 200},
		Perf:       config.PerfConfig{Enabled: true, LogSlowOperations: true},
	}
}

func newTestService() (*Service, *MockUserRepository, *MockEventPublisher) {
	repo := NewMockUserRepository()
	publisher := &MockEventPublisher{}
	svc := NewService(repo, publisher, testConfig(), logger.NewNop())
	return svc, repo, publisher
}

func TestCreate_AssignsIDAndPublishesCreated(t *testing.T) {
	svc, _, publisher := newTestService()

	user := &domain.User{FirstName: "John", LastName: "Doe", Email: "john@example.com"}
	created, err := svc.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if created.ID == 0 {
		t.Error("expected assigned ID")
	}
	if created.Email != "john@example.com" {
		t.Errorf("expected email unchanged, got %q", created.Email)
	}
	if len(publisher.created) != 1 {
		t.Fatalf("expected 1 USER_CREATED event, got %d", len(publisher.created))
	}
	if publisher.created[0].Email != "john@example.com" {
		t.Errorf("event carries wrong email: %q", publisher.created[0].Email)
	}
}

func TestCreate_ThenGetByEmailRoundTrip(t *testing.T) {
	svc, _, _ := newTestService()

	created, err := svc.Create(context.Background(), &domain.User{FirstName: "John", Email: "john@example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := svc.GetByEmail(context.Background(), "john@example.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected user, got nil")
	}
	if got.ID != created.ID || got.FirstName != "John" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestCreate_ExistingIDPublishesUpdated(t *testing.T) {
	svc, _, publisher := newTestService()

	// Callers are expected to route pre-existing-id saves to Update,
	// but Create tolerates them and announces an update instead.
	user := &domain.User{ID: 7, FirstName: "Jane", Email: "jane@example.com"}
	_, err := svc.Create(context.Background(), user)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(publisher.created) != 0 {
		t.Errorf("expected no USER_CREATED event, got %d", len(publisher.created))
	}
	if len(publisher.updated) != 1 {
		t.Errorf("expected 1 USER_UPDATED event, got %d", len(publisher.updated))
	}
}

func TestCreate_NilUserNeverTouchesStore(t *testing.T) {
	svc, repo, publisher := newTestService()

	_, err := svc.Create(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, errors.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if repo.calls != 0 {
		t.Errorf("expected zero store invocations, got %d", repo.calls)
	}
	if publisher.total() != 0 {
		t.Errorf("expected no events, got %d", publisher.total())
	}
}

func TestUpdate_MissingIDFailsWithInvalidState(t *testing.T) {
	svc, _, publisher := newTestService()

	_, err := svc.Update(context.Background(), &domain.User{FirstName: "John", Email: "john@example.com"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, errors.CodeInvalidState) {
		t.Errorf("expected invalid state error, got %v", err)
	}
	if publisher.total() != 0 {
		t.Errorf("expected no events, got %d", publisher.total())
	}
}

func TestUpdate_NonExistentIDFailsWithInvalidState(t *testing.T) {
	svc, _, publisher := newTestService()

	_, err := svc.Update(context.Background(), &domain.User{ID: 999, FirstName: "John", Email: "john@example.com"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, errors.CodeInvalidState) {
		t.Errorf("expected invalid state error, got %v", err)
	}
	if publisher.total() != 0 {
		t.Errorf("expected no events, got %d", publisher.total())
	}
}

func TestUpdate_Success(t *testing.T) {
	svc, _, publisher := newTestService()

	created, _ := svc.Create(context.Background(), &domain.User{FirstName: "John", Email: "john@example.com"})

	created.FirstName = "Johnny"
	updated, err := svc.Update(context.Background(), created)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if updated.FirstName != "Johnny" {
		t.Errorf("expected updated first name, got %q", updated.FirstName)
	}
	if len(publisher.updated) != 1 {
		t.Errorf("expected 1 USER_UPDATED event, got %d", len(publisher.updated))
	}
}

func TestGetByEmail_InvalidFormatNeverTouchesStore(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.GetByEmail(context.Background(), "invalid-email@")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, errors.CodeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if repo.calls != 0 {
		t.Errorf("expected zero store invocations, got %d", repo.calls)
	}
}

func TestGetByEmail_AbsentIsNotAnError(t *testing.T) {
	svc, _, _ := newTestService()

	user, err := svc.GetByEmail(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
}

func TestGetByID_RepeatedReadsAreIdentical(t *testing.T) {
	svc, _, _ := newTestService()

	created, _ := svc.Create(context.Background(), &domain.User{FirstName: "John", Email: "john@example.com"})

	first, err := svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if *first != *second {
		t.Errorf("reads differ: %+v vs %+v", first, second)
	}
}

func TestDeleteByID_NonExistentReturnsFalseWithoutEvents(t *testing.T) {
	svc, _, publisher := newTestService()

	deleted, err := svc.DeleteByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deleted {
		t.Error("expected false for non-existent id")
	}
	if publisher.total() != 0 {
		t.Errorf("expected no events, got %d", publisher.total())
	}
}

func TestDeleteByID_PublishesSnapshot(t *testing.T) {
	svc, _, publisher := newTestService()

	created, _ := svc.Create(context.Background(), &domain.User{FirstName: "John", Email: "john@example.com"})

	deleted, err := svc.DeleteByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion to succeed")
	}
	if len(publisher.deleted) != 1 {
		t.Fatalf("expected 1 USER_DELETED event, got %d", len(publisher.deleted))
	}
	if publisher.deleted[0].Email != "john@example.com" || publisher.deleted[0].FirstName != "John" {
		t.Errorf("event does not carry the pre-deletion snapshot: %+v", publisher.deleted[0])
	}
}

func TestDeleteByEmail_RemovesAndPublishesSnapshot(t *testing.T) {
	svc, _, publisher := newTestService()

	_, _ = svc.Create(context.Background(), &domain.User{FirstName: "John", Email: "john@example.com"})

	deleted, err := svc.DeleteByEmail(context.Background(), "john@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion to succeed")
	}

	user, err := svc.GetByEmail(context.Background(), "john@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user != nil {
		t.Errorf("expected user gone, got %+v", user)
	}
	if len(publisher.deleted) != 1 {
		t.Fatalf("expected exactly 1 USER_DELETED event, got %d", len(publisher.deleted))
	}
	if publisher.deleted[0].FirstName != "John" {
		t.Errorf("snapshot mismatch: %+v", publisher.deleted[0])
	}
}

func TestExistsByEmail(t *testing.T) {
	svc, _, _ := newTestService()

	_, _ = svc.Create(context.Background(), &domain.User{FirstName: "John", Email: "john@example.com"})

	exists, err := svc.ExistsByEmail(context.Background(), "john@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !exists {
		t.Error("expected user to exist")
	}

	exists, err = svc.ExistsByEmail(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if exists {
		t.Error("expected user to be absent")
	}
}
