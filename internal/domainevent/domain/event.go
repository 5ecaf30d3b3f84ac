package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the delivery state of a domain event.
type Status string

const (
	// StatusPending is set on creation and kept until a publish succeeds.
	StatusPending Status = "pending"
	// StatusSent is set after the payload was published.
	StatusSent Status = "sent"
)

// ErrPayloadID is returned when a payload has no top-level "id".
var ErrPayloadID = errors.New("domain event payload has no id")

// DomainEvent is a durable record of a change, stored in the same transaction as its subject and
// published afterwards. Events are never deleted.
type DomainEvent struct {
	ID        string
	Type      string
	Payload   json.RawMessage
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New returns a pending event of eventType carrying payload. payload must be a JSON object with a
// non-empty "id" naming the entity it describes.
func New(eventType string, payload json.RawMessage, now time.Time) (*DomainEvent, error) {
	if _, err := PayloadID(payload); err != nil {
		return nil, err
	}
	now = now.UTC()
	return &DomainEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// PayloadID returns the "id" of the entity the payload describes.
func PayloadID(payload json.RawMessage) (string, error) {
	var head struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return "", err
	}
	if head.ID == "" {
		return "", ErrPayloadID
	}
	return head.ID, nil
}

// IsSent reports whether the event was already published.
func (e *DomainEvent) IsSent() bool {
	return e.Status == StatusSent
}
