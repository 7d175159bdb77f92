package events

import "context"

// Event types
const (
	EventEscrowStatusChanged = "escrow_status_changed"
	EventEscrowCreated       = "escrow_created"
	EventDisputeWindowOpened = "dispute_window_opened"
	EventApplicationReceived = "application_received"
)

// StreamEscrow carries every escrow lifecycle event; websocket clients and
// the indexer both publish/consume on it.
const StreamEscrow = "escrow_events"

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
