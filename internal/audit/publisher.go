package audit

import (
	"context"

	"rollbook/pkg/requestcontext"
)

// Store is the append-only sink for audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit records an event, stamping operator identity and request time from
// context when the caller left them empty. A nil Publisher is a no-op so
// services never nil-check their audit wiring.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.OperatorID == "" {
		event.OperatorID = requestcontext.OperatorID(ctx)
	}
	if event.InstitutionID == "" {
		event.InstitutionID = requestcontext.InstitutionID(ctx)
	}
	return p.store.Append(ctx, event)
}

// List returns the events recorded for one enrollment id.
func (p *Publisher) List(ctx context.Context, enrollmentID string) ([]Event, error) {
	return p.store.ListByEnrollment(ctx, enrollmentID)
}
