package lifecycle

import (
	"context"
	"sync"

	"github.com/fyiona/accounts/internal/domain"
)

// Event names.
const (
	EventUserCreated          = "user.created"
	EventEmailChangeRequested = "user.email_change_requested"
)

// UserCreated is published after a new user row has been persisted.
type UserCreated struct {
	User *domain.User
}

func (UserCreated) Name() string { return EventUserCreated }

// EmailChangeRequested is published when a user asks to change their email.
// NewEmail is the pending address awaiting confirmation.
type EmailChangeRequested struct {
	User     *domain.User
	NewEmail string
}

func (EmailChangeRequested) Name() string { return EventEmailChangeRequested }

// Event is anything the bus can carry.
type Event interface {
	Name() string
}

// Handler reacts to a published event. Handlers run synchronously on the
// publisher's goroutine; there is no queue and no retry.
type Handler func(ctx context.Context, evt Event) error

// Bus is a minimal in-process event bus. All subscriptions happen at startup;
// Publish walks the listeners in registration order and stops at the first
// error, which propagates to the publisher.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

func (b *Bus) Publish(ctx context.Context, evt Event) error {
	b.mu.RLock()
	hs := b.handlers[evt.Name()]
	b.mu.RUnlock()
	for _, h := range hs {
		if err := h(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}
