package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
)

// MineNewBlock attempts to create a new block with a proper hash that can
// become the next block in the chain. Only one mining operation may run at
// a time per process; a second request is rejected with ErrMiningBusy, not
// queued. Mining an empty pool is allowed, the block then carries only the
// reward transaction.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {

	// Take the single mining slot or report busy.
	select {
	case s.miningActive <- struct{}{}:
	default:
		return database.Block{}, ErrMiningBusy
	}
	defer func() { <-s.miningActive }()

	s.evHandler("state: MineNewBlock: MINING: snapshot mempool")

	// Mining runs against a snapshot of the pool taken now. The pool may
	// keep changing underneath; the commit step re-validates against the
	// then-current chain state.
	trans := s.mempool.PickBest(int(s.genesis.TransPerBlock))

	difficulty := s.regulator.Difficulty()

	s.evHandler("state: MineNewBlock: MINING: perform POW: difficulty[%d] txs[%d]", difficulty, len(trans))

	block, err := database.POW(ctx, database.POWArgs{
		BeneficiaryID: s.beneficiaryID,
		Difficulty:    difficulty,
		MiningReward:  s.genesis.MiningReward,
		ChainID:       s.genesis.ChainID,
		PrevBlock:     s.db.LatestBlock(),
		Trans:         trans,
		EvHandler:     s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: commit to chain")

	if err := s.commitBlock(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// commitBlock asks the database to validate and apply the mined block. A
// rejection here means the chain or the pool moved while mining, so the
// block is reported stale and discarded. When a specific transaction caused
// the rejection it is evicted from the pool; otherwise every later attempt
// would mine the same doomed snapshot and the pool could never drain.
func (s *State) commitBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.ApplyBlock(block); err != nil {
		if errors.Is(err, database.ErrChainCorruption) {
			var txErr *database.TxRejectedError
			if errors.As(err, &txErr) {
				for _, tx := range block.Trans {
					if tx.ID == txErr.TxID {
						s.mempool.Delete(tx)
						s.evHandler("state: commitBlock: evicted tx[%s]: %s", tx.ID, txErr.Err)
						break
					}
				}
			}
			return fmt.Errorf("%w: %s", ErrStaleBlock, err)
		}
		return err
	}

	// The included transactions are committed now, retire them from the
	// pool.
	var sharesChanged bool
	for _, tx := range block.Trans {
		s.mempool.Delete(tx)
		if tx.Type == database.TxSharePurchase {
			sharesChanged = true
		}
	}

	// The regulator observes committed share purchases and may retarget
	// the difficulty for subsequently started mining operations.
	if sharesChanged {
		oldD, newD := s.regulator.Adjust(s.db.AggregateShares())
		s.evHandler("state: commitBlock: difficulty[%d -> %d]", oldD, newD)
	}

	return nil
}

// AdjustDifficulty recomputes the mining difficulty from the committed
// share ownership totals and returns the previous and new settings. The
// change applies only to mining operations started afterwards.
func (s *State) AdjustDifficulty() (oldDifficulty uint16, newDifficulty uint16) {
	return s.regulator.Adjust(s.db.AggregateShares())
}

// CurrentDifficulty returns the difficulty the next mining operation will
// use.
func (s *State) CurrentDifficulty() uint16 {
	return s.regulator.Difficulty()
}
