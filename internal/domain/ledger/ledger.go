package ledger

import "time"

// Entry is the most recent payment attempt the system treats as authoritative.
type Entry struct {
	CheckoutID string
	Amount     int64
	RecordedAt time.Time
}

func (e Entry) IsZero() bool {
	return e.CheckoutID == ""
}

// Ledger holds a single entry. Record overwrites it; last write wins.
type Ledger interface {
	Record(checkoutID string, amount int64) Entry
	Current() Entry
}
