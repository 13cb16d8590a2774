package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veritrace/veritrace-backend/pkg/enums"
)

// ActorRef identifies the principal whose call produced the event.
type ActorRef struct {
	Principal string `json:"principal"`
	Role      string `json:"role,omitempty"`
}

// Event is the stable envelope handed to the configured sink. External
// indexers key on Type and Data; the ledger never reads events back.
type Event struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	Type       enums.EventType `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

const envelopeVersion = 1

// New builds a versioned envelope around the given payload.
func New(eventType enums.EventType, occurredAt time.Time, actor *ActorRef, data any) (Event, error) {
	if !eventType.IsValid() {
		return Event{}, fmt.Errorf("invalid event type %q", eventType)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("encoding event data: %w", err)
	}
	return Event{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: occurredAt,
		Actor:      actor,
		Data:       raw,
	}, nil
}

// ProductRegisteredData is emitted once per product, at registration.
type ProductRegisteredData struct {
	ProductID    uint64 `json:"productId"`
	ProductName  string `json:"productName"`
	Manufacturer string `json:"manufacturer"`
	Caller       string `json:"caller"`
}

// StageUpdatedData is emitted for every journey append after registration.
type StageUpdatedData struct {
	ProductID uint64     `json:"productId"`
	Stage     enums.Role `json:"stage"`
	NodeName  string     `json:"nodeName"`
	Location  string     `json:"location"`
}

// ProductSoldData is emitted when a product reaches its terminal state.
type ProductSoldData struct {
	ProductID    uint64    `json:"productId"`
	BuyerAddress string    `json:"buyerAddress"`
	BuyerName    string    `json:"buyerName"`
	SoldAt       time.Time `json:"soldAt"`
}
