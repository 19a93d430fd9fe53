package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"litepay/internal/core"
)

// Event types, also used as routing keys.
const (
	EventExpenseAdded    = "expense.added"
	EventPaymentVerified = "payment.verified"
)

// LedgerEvent is published after a ledger mutation or a resolved payment
// verification. Amounts travel as decimal strings.
type LedgerEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	GroupID          string            `json:"groupId,omitempty"`
	GroupName        string            `json:"groupName,omitempty"`
	Description      string            `json:"description,omitempty"`
	Amount           string            `json:"amount,omitempty"`
	SuggestedPayment string            `json:"suggestedPayment,omitempty"`
	PaidBy           string            `json:"paidBy,omitempty"`
	Splits           map[string]string `json:"splits,omitempty"`

	SessionID      string `json:"sessionId,omitempty"`
	TxID           string `json:"txId,omitempty"`
	ExpectedAmount string `json:"expectedAmount,omitempty"`
	PaymentStatus  string `json:"paymentStatus,omitempty"`
}

// NewExpenseAddedEvent describes e as just recorded in group g. The suggested
// payment is the amount with two decimals.
func NewExpenseAddedEvent(g core.Group, e core.Expense) *LedgerEvent {
	splits := make(map[string]string, len(e.Splits))
	for name, share := range e.Splits {
		splits[name] = share.String()
	}
	return &LedgerEvent{
		Type:             EventExpenseAdded,
		Timestamp:        time.Now(),
		GroupID:          g.ID.String(),
		GroupName:        g.Name,
		Description:      e.Description,
		Amount:           e.Amount.String(),
		SuggestedPayment: core.FormatAmount(e.Amount),
		PaidBy:           e.PaidBy,
		Splits:           splits,
	}
}

func NewPaymentVerifiedEvent(sessionID, txID, expected string, status core.PaymentStatus) *LedgerEvent {
	return &LedgerEvent{
		Type:           EventPaymentVerified,
		Timestamp:      time.Now(),
		SessionID:      sessionID,
		TxID:           txID,
		ExpectedAmount: expected,
		PaymentStatus:  string(status),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes an event and rejects unknown types.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case EventExpenseAdded, EventPaymentVerified:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
