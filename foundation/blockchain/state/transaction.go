package state

import (
	"errors"
	"fmt"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/mempool"
)

// SubmitWalletTransaction accepts a signed transaction from a wallet for
// inclusion into the ledger and returns its content id. Validation runs in
// a fixed order: structure, then signature, then spendable balance.
func (s *State) SubmitWalletTransaction(signedTx database.SignedTx) (string, error) {
	s.evHandler("state: SubmitWalletTransaction: started: %s", signedTx)

	// Wallets never submit system transactions. Mining rewards are
	// synthesized by the miner and data conversions enter through the data
	// engine path.
	if signedTx.IsSystem() {
		return "", fmt.Errorf("%w: %s transactions are system issued", ErrMalformedTransaction, signedTx.Type)
	}

	if err := signedTx.ValidateStructure(s.genesis.ChainID); err != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformedTransaction, err)
	}

	if err := signedTx.ValidateSignature(); err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	// A share purchase must name a governed company and pay its treasury
	// the fixed price. Checking at submission keeps a doomed transaction
	// out of the pool.
	if signedTx.Type == database.TxSharePurchase {
		if err := s.validateSharePurchase(signedTx); err != nil {
			return "", err
		}
	}

	// The spendable check and the pool insert must happen atomically or two
	// concurrent submissions could each pass against the same pool snapshot
	// and together overdraw the account.
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkSpendable(signedTx.FromID, signedTx.Value); err != nil {
		return "", err
	}

	return s.admitTransaction(database.NewBlockTx(signedTx))
}

// admitTransaction places a validated transaction into the pool, rejecting
// ids that are already pending or already committed.
func (s *State) admitTransaction(tx database.BlockTx) (string, error) {
	if s.db.HasTransaction(tx.ID) {
		return "", fmt.Errorf("%w: already committed", ErrDuplicateTransaction)
	}

	n, err := s.mempool.Submit(tx)
	if err != nil {
		if errors.Is(err, mempool.ErrDuplicate) {
			return "", fmt.Errorf("%w: already pending", ErrDuplicateTransaction)
		}
		return "", err
	}

	s.evHandler("state: admitTransaction: tx[%s] admitted: mempool[%d]", tx.ID, n)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return tx.ID, nil
}

// checkSpendable verifies the sender can cover the value using the
// committed balance plus everything already queued in the pool. Without
// the pending debits, two transactions could each look affordable against
// the chain and together overdraw.
func (s *State) checkSpendable(fromID database.AccountID, value currency.Units) error {
	balance := s.db.Balance(fromID)
	credits := s.mempool.PendingCredit(fromID)
	debits := s.mempool.PendingDebit(fromID)

	spendable := balance + credits
	if spendable < debits || spendable-debits < value {
		return fmt.Errorf("%w: account %s, spendable %s, needed %s", ErrInsufficientBalance, fromID, spendable-min(spendable, debits), value)
	}

	return nil
}

// validateSharePurchase applies the governance rules a share purchase must
// meet before it may wait in the pool.
func (s *State) validateSharePurchase(signedTx database.SignedTx) error {
	if !s.knownCompany(signedTx.Company) {
		return fmt.Errorf("%w: %q", ErrUnknownCompany, signedTx.Company)
	}

	if treasury := database.TreasuryAccountID(signedTx.Company); signedTx.ToID != treasury {
		return fmt.Errorf("%w: share purchase must pay the treasury %s", ErrMalformedTransaction, treasury)
	}

	if want := s.genesis.SharePrice * currency.Units(signedTx.Shares); signedTx.Value != want {
		return fmt.Errorf("%w: %d shares cost %s, got %s", ErrMalformedTransaction, signedTx.Shares, want, signedTx.Value)
	}

	return nil
}

// knownCompany reports whether the company participates in governance.
func (s *State) knownCompany(company string) bool {
	for _, c := range s.genesis.Companies {
		if c == company {
			return true
		}
	}
	return false
}
