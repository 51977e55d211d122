// Package quota tracks aggregate bytes stored against a fixed capacity.
//
// Mutating methods are meant to be called by a single writer at a time (the
// caller holds the mutation gate); the counter itself is atomic so readers
// outside the gate always see a whole value.
package quota

import (
	"fmt"
	"sync/atomic"

	"github.com/dmitrijs2005/sharedfs/internal/common"
)

// Ledger is the single source of truth for "does this mutation fit".
type Ledger struct {
	capacity int64
	used     atomic.Int64
}

// NewLedger returns an empty ledger with the given capacity in bytes.
func NewLedger(capacity int64) *Ledger {
	return &Ledger{capacity: capacity}
}

// Reserve adds delta to the used counter if the result stays within capacity.
// A negative delta (an overwrite that shrinks a file) always succeeds.
// On failure nothing is changed and the error wraps common.ErrorQuotaExceeded.
func (l *Ledger) Reserve(delta int64) error {
	for {
		used := l.used.Load()
		next := used + delta
		if delta > 0 && next > l.capacity {
			return fmt.Errorf("%w: need %d bytes, %d of %d available",
				common.ErrorQuotaExceeded, delta, l.capacity-used, l.capacity)
		}
		if next < 0 {
			panic(fmt.Sprintf("quota: reserve(%d) would drive used bytes negative (used=%d)", delta, used))
		}
		if l.used.CompareAndSwap(used, next) {
			return nil
		}
	}
}

// Release returns amount bytes to the pool. Releasing more than is in use is
// a bookkeeping bug and panics.
func (l *Ledger) Release(amount int64) {
	if amount < 0 {
		panic(fmt.Sprintf("quota: release of negative amount %d", amount))
	}
	for {
		used := l.used.Load()
		if amount > used {
			panic(fmt.Sprintf("quota: release(%d) exceeds used bytes %d", amount, used))
		}
		if l.used.CompareAndSwap(used, used-amount) {
			return
		}
	}
}

// Capacity returns the fixed capacity in bytes.
func (l *Ledger) Capacity() int64 { return l.capacity }

// Used returns the bytes currently accounted for.
func (l *Ledger) Used() int64 { return l.used.Load() }

// Available returns Capacity minus Used.
func (l *Ledger) Available() int64 { return l.capacity - l.used.Load() }
