package inmemory

import (
	"sync"
	"time"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/ledger"
)

type Ledger struct {
	mu    sync.RWMutex
	entry ledger.Entry
	now   func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// NewLedgerWithClock is NewLedger with an injectable timestamp source.
func NewLedgerWithClock(now func() time.Time) *Ledger {
	return &Ledger{now: now}
}

func (l *Ledger) Record(checkoutID string, amount int64) ledger.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entry = ledger.Entry{
		CheckoutID: checkoutID,
		Amount:     amount,
		RecordedAt: l.now(),
	}
	return l.entry
}

func (l *Ledger) Current() ledger.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.entry
}
