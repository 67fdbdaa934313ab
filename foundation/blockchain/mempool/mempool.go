// Package mempool maintains the pool of transactions waiting to be mined
// into a block.
package mempool

import (
	"errors"
	"sync"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/mempool/selector"
)

// ErrDuplicate is returned when a transaction with the same id is already
// waiting in the pool.
var ErrDuplicate = errors.New("transaction already in mempool")

// Mempool represents a cache of transactions keyed by their id. Each
// transaction is accepted at most once and tagged with a monotonic
// admission sequence so selection can replay the order the pool accepted
// them in.
type Mempool struct {
	pool     map[string]selector.Tx
	nextSeq  uint64
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default sort strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFIFO)
}

// NewWithStrategy constructs a new mempool with specified sort strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]selector.Tx),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Submit adds a transaction to the mempool. A transaction whose id is
// already pending is rejected with ErrDuplicate.
func (mp *Mempool) Submit(tx database.BlockTx) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[tx.ID]; exists {
		return len(mp.pool), ErrDuplicate
	}

	mp.pool[tx.ID] = selector.Tx{BlockTx: tx, Seq: mp.nextSeq}
	mp.nextSeq++

	return len(mp.pool), nil
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(tx database.BlockTx) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, tx.ID)

	return nil
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]selector.Tx)
}

// PendingDebit returns the total number of units the specified account has
// committed to spend across the transactions waiting in the pool. Needed to
// prevent an account from promising the same units twice.
func (mp *Mempool) PendingDebit(accountID database.AccountID) currency.Units {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	var total currency.Units
	for _, tx := range mp.pool {
		if tx.FromID == accountID {
			total += tx.Value
		}
	}

	return total
}

// PendingCredit returns the total number of units the pool would deliver to
// the specified account if every waiting transaction were mined.
func (mp *Mempool) PendingCredit(accountID database.AccountID) currency.Units {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	var total currency.Units
	for _, tx := range mp.pool {
		if tx.ToID == accountID {
			total += tx.Value
		}
	}

	return total
}

// Copy returns every transaction currently waiting in the pool in the
// configured strategy order.
func (mp *Mempool) Copy() []database.BlockTx {
	return mp.PickBest(-1)
}

// PickBest uses the configured sort strategy to return the next set
// of transactions for the next block.
func (mp *Mempool) PickBest(howMany int) []database.BlockTx {

	// Group the transactions by sending account. System transactions carry
	// no sender and group together under the empty account id.
	m := make(map[database.AccountID][]selector.Tx)
	mp.mu.RLock()
	{
		if howMany == -1 {
			howMany = len(mp.pool)
		}

		for _, tx := range mp.pool {
			m[tx.FromID] = append(m[tx.FromID], tx)
		}
	}
	mp.mu.RUnlock()

	return mp.selectFn(m, howMany)
}
