package state

import (
	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
)

// BalanceView carries the committed balance and the preview that includes
// everything still waiting in the pool. The two are never conflated: only
// the committed figure is ledger truth.
type BalanceView struct {
	AccountID database.AccountID
	Committed currency.Units
	Pending   currency.Units
}

// QueryBalance returns the committed balance for the specified account
// along with a pending-inclusive preview.
func (s *State) QueryBalance(accountID database.AccountID) BalanceView {
	committed := s.db.Balance(accountID)

	pending := committed + s.mempool.PendingCredit(accountID)
	debits := s.mempool.PendingDebit(accountID)
	if debits > pending {
		pending = 0
	} else {
		pending -= debits
	}

	return BalanceView{
		AccountID: accountID,
		Committed: committed,
		Pending:   pending,
	}
}

// QueryHistory returns the committed transactions touching the specified
// account in chain order.
func (s *State) QueryHistory(accountID database.AccountID) ([]database.BlockTx, error) {
	return s.db.History(accountID)
}

// QueryAccounts returns a copy of the committed account set.
func (s *State) QueryAccounts() map[database.AccountID]database.Account {
	return s.db.CopyAccounts()
}

// QuerySharesOf returns the committed share holdings of the account for the
// specified company.
func (s *State) QuerySharesOf(accountID database.AccountID, company string) uint64 {
	return s.db.SharesOf(accountID, company)
}

// QueryAggregateShares returns the committed share totals per company.
func (s *State) QueryAggregateShares() map[string]uint64 {
	return s.db.AggregateShares()
}

// =============================================================================

// Stats summarizes the observable state of the node.
type Stats struct {
	TotalBlocks           uint64 `json:"total_blocks"`
	TotalTransactions     uint64 `json:"total_transactions"`
	CurrentDifficulty     uint16 `json:"current_difficulty"`
	TotalDataConvertedMMB uint64 `json:"total_data_converted_mmb"`
	MempoolCount          int    `json:"mempool_count"`
}

// QueryStats collects the node statistics.
func (s *State) QueryStats() Stats {
	return Stats{
		TotalBlocks:           s.db.TotalBlocks(),
		TotalTransactions:     s.db.TotalTransactions(),
		CurrentDifficulty:     s.regulator.Difficulty(),
		TotalDataConvertedMMB: s.db.TotalDataConvertedMMB(),
		MempoolCount:          s.mempool.Count(),
	}
}

// =============================================================================

// LatestBlock returns the latest committed block.
func (s *State) LatestBlock() database.Block {
	return s.db.LatestBlock()
}

// QueryBlocksByNumber returns the blocks in the [from,to] number range read
// from the store.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) ([]database.Block, error) {
	latest := s.db.LatestBlock().Header.Number
	if from > latest {
		return nil, nil
	}
	if to > latest {
		to = latest
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, err := s.db.GetBlock(i)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}

	return out, nil
}

// MempoolLength returns the current length of the mempool.
func (s *State) MempoolLength() int {
	return s.mempool.Count()
}

// Mempool returns a copy of the transactions waiting in the pool.
func (s *State) Mempool() []database.BlockTx {
	return s.mempool.Copy()
}

// ReplayBalance recomputes the balance for the specified account by
// replaying the chain from storage. Exposed so operators can audit the
// incremental cache.
func (s *State) ReplayBalance(accountID database.AccountID) (currency.Units, error) {
	return s.db.ReplayBalance(accountID)
}
