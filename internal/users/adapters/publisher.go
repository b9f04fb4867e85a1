package adapters

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"user-service/internal/users/domain"
	"user-service/pkg/events"
	"user-service/pkg/logger"
)

// publishTimeout bounds a single delivery attempt; the broker handles
// retries beyond that.
const publishTimeout = 30 * time.Second

// queueCapacity bounds the number of lifecycle events waiting for
// delivery. A full queue drops the newest event with a warning.
const queueCapacity = 256

// wirePublisher is the slice of pkg/rabbitmq.Publisher the adapter needs.
type wirePublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// AMQPEventPublisher turns lifecycle notifications into messages on the
// users topic exchange, keyed by user email. Submissions are queued and
// delivered by a single background worker so all events for one user
// leave in submission order; delivery failures are logged, never
// surfaced to the submitting operation.
type AMQPEventPublisher struct {
	wire  wirePublisher
	log   *logger.Logger
	queue chan *events.UserLifecycleEvent
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewAMQPEventPublisher starts the delivery worker.
func NewAMQPEventPublisher(wire wirePublisher, log *logger.Logger) *AMQPEventPublisher {
	p := &AMQPEventPublisher{
		wire:  wire,
		log:   log,
		queue: make(chan *events.UserLifecycleEvent, queueCapacity),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

// PublishUserCreated announces a created user.
func (p *AMQPEventPublisher) PublishUserCreated(user *domain.User) {
	p.submit(events.UserCreated, user)
}

// PublishUserUpdated announces an updated user.
func (p *AMQPEventPublisher) PublishUserUpdated(user *domain.User) {
	p.submit(events.UserUpdated, user)
}

// PublishUserDeleted announces a deleted user, carrying its pre-deletion
// snapshot.
func (p *AMQPEventPublisher) PublishUserDeleted(user *domain.User) {
	p.submit(events.UserDeleted, user)
}

// PublishInitialLoad synchronously announces every existing user once,
// as INITIAL_LOAD events. Per-user failures are logged and skipped so
// one bad record never aborts the load.
func (p *AMQPEventPublisher) PublishInitialLoad(users []*domain.User) {
	if len(users) == 0 {
		p.log.Info("initial load: no users to publish")
		return
	}

	p.log.Info("initial load started", zap.Int("users", len(users)))

	published := 0
	for _, user := range users {
		event := newEvent(events.InitialLoad, user)
		if err := p.deliver(event); err != nil {
			p.log.Error("initial load: failed to publish user",
				zap.Uint("user_id", user.ID),
				zap.Error(err),
			)
			continue
		}
		published++
	}

	p.log.Info("initial load finished",
		zap.Int("users", len(users)),
		zap.Int("published", published),
	)
}

// Close stops accepting events and waits for the queue to drain. It is
// idempotent; submissions arriving after Close are dropped with a
// warning rather than racing the channel close.
func (p *AMQPEventPublisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
}

func (p *AMQPEventPublisher) submit(eventType events.EventType, user *domain.User) {
	event := newEvent(eventType, user)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.log.Warn("publisher closed, dropping event",
			zap.String("event_type", string(eventType)),
			zap.Uint("user_id", user.ID),
		)
		return
	}

	select {
	case p.queue <- event:
	default:
		p.log.Warn("event queue full, dropping event",
			zap.String("event_type", string(eventType)),
			zap.Uint("user_id", user.ID),
		)
	}
}

func (p *AMQPEventPublisher) run() {
	defer close(p.done)

	for event := range p.queue {
		if err := p.deliver(event); err != nil {
			p.log.Error("failed to publish user event",
				zap.String("event_type", string(event.EventType)),
				zap.String("event_id", event.EventID),
				zap.Uint("user_id", event.ID),
				zap.Error(err),
			)
			continue
		}
		p.log.Info("user event published",
			zap.String("event_type", string(event.EventType)),
			zap.String("event_id", event.EventID),
			zap.Uint("user_id", event.ID),
		)
	}
}

func (p *AMQPEventPublisher) deliver(event *events.UserLifecycleEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return p.wire.Publish(ctx, event.RoutingKey(), event)
}

func newEvent(eventType events.EventType, user *domain.User) *events.UserLifecycleEvent {
	return events.NewUserLifecycleEvent(eventType,
		user.ID, user.FirstName, user.LastName, user.Email, user.Address)
}
