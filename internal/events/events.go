package events

import "context"

// StreamEscrow carries every transaction lifecycle event.
const StreamEscrow = "events:escrow"

// Event types
const (
	EventTransactionCreated  = "transaction_created"
	EventAttestationsUpdated = "attestations_updated"
	EventConflictDetected    = "conflict_detected"
	EventMediatorNeeded      = "mediator_needed"
	EventTransactionResolved = "transaction_resolved"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
