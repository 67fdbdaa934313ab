// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFIFO  = "fifo"
	StrategyValue = "value"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO:  fifoSelect,
	StrategyValue: valueSelect,
}

// Tx pairs a pooled transaction with the order the pool admitted it.
// Selection runs on admission order, never on the client supplied
// timestamp: a transaction spending a pending credit was admitted after
// the transaction funding it, so ordering by admission keeps every
// selected prefix applyable.
type Tx struct {
	database.BlockTx
	Seq uint64
}

// Func defines a function that takes a mempool of transactions grouped by
// account and selects howMany of them in an order based on the functions
// strategy. All selector functions MUST respect the admission order within
// an account. Receiving -1 for howMany must return all the transactions in
// the strategies ordering.
type Func func(transactions map[database.AccountID][]Tx, howMany int) []database.BlockTx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// bySeq provides sorting support by the pool admission order.
type bySeq []Tx

// Len returns the number of transactions in the list.
func (bs bySeq) Len() int {
	return len(bs)
}

// Less helps to sort the list by admission order to keep the transactions
// in the right order of processing.
func (bs bySeq) Less(i, j int) bool {
	return bs[i].Seq < bs[j].Seq
}

// Swap moves transactions in the order of admission.
func (bs bySeq) Swap(i, j int) {
	bs[i], bs[j] = bs[j], bs[i]
}

// =============================================================================

// byValue provides sorting support by the transaction value with the
// admission order breaking ties.
type byValue []Tx

// Len returns the number of transactions in the list.
func (bv byValue) Len() int {
	return len(bv)
}

// Less helps to sort the list by value in descending order to pick the
// transactions that move the most units.
func (bv byValue) Less(i, j int) bool {
	if bv[i].Value != bv[j].Value {
		return bv[i].Value > bv[j].Value
	}
	return bv[i].Seq < bv[j].Seq
}

// Swap moves transactions in the order of the value.
func (bv byValue) Swap(i, j int) {
	bv[i], bv[j] = bv[j], bv[i]
}
