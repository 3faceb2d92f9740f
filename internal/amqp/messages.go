package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"networth/internal/core"
)

// ErrInvalidMessage marks deliveries that can never succeed; they are
// rejected without requeue.
var ErrInvalidMessage = errors.New("invalid snapshot request")

// SnapshotRequestMessage asks the worker to regenerate either one month or
// an inclusive month range. The worker reads the ledger itself.
type SnapshotRequestMessage struct {
	RequestID string `json:"request_id"`
	Month     string `json:"month,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	// Verify runs a chain check over the requested months after persisting.
	Verify    bool      `json:"verify,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMonthRequest creates a request for a single month
func NewMonthRequest(m core.Month) *SnapshotRequestMessage {
	return &SnapshotRequestMessage{
		RequestID: uuid.NewString(),
		Month:     m.String(),
		Timestamp: time.Now(),
	}
}

// NewRangeRequest creates a request for [from, to]
func NewRangeRequest(from, to core.Month) *SnapshotRequestMessage {
	return &SnapshotRequestMessage{
		RequestID: uuid.NewString(),
		From:      from.String(),
		To:        to.String(),
		Timestamp: time.Now(),
	}
}

// Months compiles the request to an explicit month list. Exactly one of
// Month or From/To must be set.
func (m *SnapshotRequestMessage) Months() ([]core.Month, error) {
	switch {
	case m.Month != "" && (m.From != "" || m.To != ""):
		return nil, fmt.Errorf("%w: month and range are exclusive", ErrInvalidMessage)
	case m.Month != "":
		month, err := core.ParseMonth(m.Month)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		return []core.Month{month}, nil
	case m.From != "" && m.To != "":
		from, err := core.ParseMonth(m.From)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		to, err := core.ParseMonth(m.To)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		months, err := core.MonthRange(from, to)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
		}
		return months, nil
	default:
		return nil, fmt.Errorf("%w: no month or complete range", ErrInvalidMessage)
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotRequestMessageFromJSON decodes a delivery body.
func SnapshotRequestMessageFromJSON(data []byte) (*SnapshotRequestMessage, error) {
	var msg SnapshotRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return &msg, nil
}
