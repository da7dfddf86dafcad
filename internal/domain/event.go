package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind tags the payload variant carried by an Event envelope.
type EventKind string

const (
	EventMarketCreated     EventKind = "market_created"
	EventSharesPurchased   EventKind = "shares_purchased"
	EventMarketResolved    EventKind = "market_resolved"
	EventPayoutDistributed EventKind = "payout_distributed"
)

// Event is the typed envelope the ledger emits for every state change.
// Exactly one payload field is non-nil, selected by Kind. External observers
// (read model, WebSocket clients, notifiers) reconstruct market state from
// this stream instead of parsing opaque logs.
type Event struct {
	ID       string    `json:"id"` // UUID, assigned at emission
	Kind     EventKind `json:"kind"`
	MarketID uint64    `json:"market_id"`
	Seq      uint64    `json:"seq"` // per-market sequence, starts at 1
	At       time.Time `json:"at"`

	MarketCreated     *MarketCreated     `json:"market_created,omitempty"`
	SharesPurchased   *SharesPurchased   `json:"shares_purchased,omitempty"`
	MarketResolved    *MarketResolved    `json:"market_resolved,omitempty"`
	PayoutDistributed *PayoutDistributed `json:"payout_distributed,omitempty"`
}

// MarketCreated carries the full identity of a new market. It is the sole
// mechanism by which external observers learn a market's id.
type MarketCreated struct {
	Creator  string    `json:"creator"`
	Question string    `json:"question"`
	EndTime  time.Time `json:"end_time"`
}

// SharesPurchased records a single irreversible share purchase.
type SharesPurchased struct {
	Buyer  string `json:"buyer"`
	Side   Side   `json:"side"`
	Amount int64  `json:"amount"`
}

// MarketResolved records the one-time outcome declaration.
type MarketResolved struct {
	Outcome  bool   `json:"outcome"`
	Resolver string `json:"resolver"`
}

// PayoutDistributed records one winning participant's escrow disbursement.
type PayoutDistributed struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

// Validate checks that the envelope carries exactly the payload its Kind
// promises.
func (e Event) Validate() error {
	var got EventKind
	n := 0
	if e.MarketCreated != nil {
		got, n = EventMarketCreated, n+1
	}
	if e.SharesPurchased != nil {
		got, n = EventSharesPurchased, n+1
	}
	if e.MarketResolved != nil {
		got, n = EventMarketResolved, n+1
	}
	if e.PayoutDistributed != nil {
		got, n = EventPayoutDistributed, n+1
	}
	if n != 1 {
		return fmt.Errorf("event %s: expected exactly one payload, got %d", e.ID, n)
	}
	if got != e.Kind {
		return fmt.Errorf("event %s: kind %q does not match payload %q", e.ID, e.Kind, got)
	}
	return nil
}

// Marshal serializes the event envelope to JSON for bus publication.
func (e Event) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("event %s: marshal: %w", e.ID, err)
	}
	return data, nil
}
