package state_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/database/storage"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/genesis"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/mempool/selector"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/state"
	"github.com/datacoinlabs/datacoin/foundation/dataengine"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

// Private keys for the test accounts.
const (
	kennedyHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	pavelHexKey   = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
	minerHexKey   = "9f332e3700d8fc2446eaf6d15034cf96e0c2745e40353deef032a5dbf1dfed93"
)

// testChainID is the chain id every test genesis carries.
const testChainID = 1

// ceciliaID only ever receives value in these tests, so no key is needed.
const ceciliaID = database.AccountID("0x0000000000000000000000000000000000000099")

func accountFor(t *testing.T, hexKey string) database.AccountID {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould parse private key: %v", failed, err)
	}

	return database.PublicKeyToAccountID(pk.PublicKey)
}

// newState constructs a state over in-memory storage with a low difficulty
// so tests mine quickly. The share price is scaled down to keep the test
// balances small.
func newState(t *testing.T, difficulty uint16, balances map[string]currency.Units) *state.State {
	t.Helper()

	return newStateStrategy(t, difficulty, selector.StrategyFIFO, 100, balances)
}

// newStateStrategy is newState with the select strategy and block capacity
// under test control.
func newStateStrategy(t *testing.T, difficulty uint16, strategy string, transPerBlock uint16, balances map[string]currency.Units) *state.State {
	t.Helper()

	gen := genesis.Genesis{
		Date:          time.Now().Add(-time.Hour),
		ChainID:       testChainID,
		TransPerBlock: transPerBlock,
		Difficulty:    difficulty,
		MinDifficulty: 1,
		MaxDifficulty: 6,
		MiningReward:  10_000_000,
		BaseRate:      1_000,
		SharePrice:    1_000,
		Companies:     []string{"Google", "Microsoft"},
		Balances:      balances,
	}

	strg, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("\t%s\tShould open storage: %v", failed, err)
	}

	eng, err := dataengine.New(filepath.Join(t.TempDir(), "sources.json"), nil)
	if err != nil {
		t.Fatalf("\t%s\tShould construct the data engine: %v", failed, err)
	}

	st, err := state.New(state.Config{
		BeneficiaryID:  accountFor(t, minerHexKey),
		Genesis:        gen,
		Storage:        strg,
		DataEngine:     eng,
		SelectStrategy: strategy,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould construct the state: %v", failed, err)
	}

	return st
}

// signedTransfer builds a signed transfer transaction.
func signedTransfer(t *testing.T, hexKey string, toID database.AccountID, value currency.Units) database.SignedTx {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould parse private key: %v", failed, err)
	}

	tx, err := database.NewTx(testChainID, database.TxTransfer, database.PublicKeyToAccountID(pk.PublicKey), toID, value)
	if err != nil {
		t.Fatalf("\t%s\tShould construct transaction: %v", failed, err)
	}

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("\t%s\tShould sign transaction: %v", failed, err)
	}

	return signedTx
}

// signedSharePurchase builds a signed purchase of company shares priced from
// the test genesis.
func signedSharePurchase(t *testing.T, hexKey string, company string, shares uint64) database.SignedTx {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("\t%s\tShould parse private key: %v", failed, err)
	}

	fromID := database.PublicKeyToAccountID(pk.PublicKey)
	tx, err := database.NewTx(testChainID, database.TxSharePurchase, fromID, database.TreasuryAccountID(company), currency.Units(1_000*shares))
	if err != nil {
		t.Fatalf("\t%s\tShould construct transaction: %v", failed, err)
	}
	tx.Company = company
	tx.Shares = shares

	signedTx, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("\t%s\tShould sign transaction: %v", failed, err)
	}

	return signedTx
}

// =============================================================================

func TestMineEmptyPool(t *testing.T) {
	minerID := accountFor(t, minerHexKey)
	st := newState(t, 1, nil)
	defer st.Shutdown()

	t.Log("Given the need to mine a block with an empty pool.")
	{
		t.Logf("\tTest 0:\tWhen mining with no pending transactions.")
		{
			block, err := st.MineNewBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould mine the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould mine the block.", success)

			if len(block.Trans) != 1 || block.Trans[0].Type != database.TxMiningReward {
				t.Fatalf("\t%s\tTest 0:\tShould carry only the reward transaction, got %d.", failed, len(block.Trans))
			}
			t.Logf("\t%s\tTest 0:\tShould carry only the reward transaction.", success)

			if bal := st.QueryBalance(minerID); bal.Committed != 10_000_000 {
				t.Fatalf("\t%s\tTest 0:\tShould credit the miner with 10 coins, got %s.", failed, bal.Committed)
			}
			t.Logf("\t%s\tTest 0:\tShould credit the miner with 10 coins.", success)

			if stats := st.QueryStats(); stats.TotalBlocks != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould have 2 total blocks, got %d.", failed, stats.TotalBlocks)
			}
			t.Logf("\t%s\tTest 0:\tShould have 2 total blocks.", success)
		}
	}
}

func TestTransferLifecycle(t *testing.T) {
	kennedyID := accountFor(t, kennedyHexKey)
	pavelID := accountFor(t, pavelHexKey)

	st := newState(t, 1, map[string]currency.Units{
		string(kennedyID): 10_000_000,
	})
	defer st.Shutdown()

	t.Log("Given the need to move value between accounts.")
	{
		t.Logf("\tTest 0:\tWhen the sender cannot cover the transfer.")
		{
			_, err := st.SubmitWalletTransaction(signedTransfer(t, kennedyHexKey, pavelID, 20_000_000))
			if !errors.Is(err, state.ErrInsufficientBalance) {
				t.Fatalf("\t%s\tTest 0:\tShould get ErrInsufficientBalance, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get ErrInsufficientBalance.", success)
		}

		t.Logf("\tTest 1:\tWhen submitting an affordable transfer.")
		{
			signedTx := signedTransfer(t, kennedyHexKey, pavelID, 4_000_000)

			txID, err := st.SubmitWalletTransaction(signedTx)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept the transfer: %v", failed, err)
			}
			if txID == "" {
				t.Fatalf("\t%s\tTest 1:\tShould return the transaction id.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould accept the transfer.", success)

			// Committed view is untouched, the pending view already reflects
			// the transfer.
			bal := st.QueryBalance(kennedyID)
			if bal.Committed != 10_000_000 || bal.Pending != 6_000_000 {
				t.Fatalf("\t%s\tTest 1:\tShould show committed 10, pending 6, got %s and %s.", failed, bal.Committed, bal.Pending)
			}
			t.Logf("\t%s\tTest 1:\tShould leave committed at 10 with pending at 6.", success)

			if _, err := st.SubmitWalletTransaction(signedTx); !errors.Is(err, state.ErrDuplicateTransaction) {
				t.Fatalf("\t%s\tTest 1:\tShould get ErrDuplicateTransaction, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the duplicate submission.", success)

			// The pending debit counts against further spending.
			if _, err := st.SubmitWalletTransaction(signedTransfer(t, kennedyHexKey, pavelID, 7_000_000)); !errors.Is(err, state.ErrInsufficientBalance) {
				t.Fatalf("\t%s\tTest 1:\tShould reject overdrawing the pending balance, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject overdrawing the pending balance.", success)
		}

		t.Logf("\tTest 2:\tWhen mining the pending transfer.")
		{
			if _, err := st.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould mine the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould mine the block.", success)

			if bal := st.QueryBalance(kennedyID); bal.Committed != 6_000_000 {
				t.Fatalf("\t%s\tTest 2:\tShould leave the sender with 6 coins, got %s.", failed, bal.Committed)
			}
			if bal := st.QueryBalance(pavelID); bal.Committed != 4_000_000 {
				t.Fatalf("\t%s\tTest 2:\tShould credit the receiver with 4 coins, got %s.", failed, bal.Committed)
			}
			t.Logf("\t%s\tTest 2:\tShould settle the balances to 6 and 4.", success)

			if st.MempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould retire the transaction from the pool.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould retire the transaction from the pool.", success)

			for _, accountID := range []database.AccountID{kennedyID, pavelID} {
				replayed, err := st.ReplayBalance(accountID)
				if err != nil {
					t.Fatalf("\t%s\tTest 2:\tShould replay the chain: %v", failed, err)
				}
				if cached := st.QueryBalance(accountID).Committed; cached != replayed {
					t.Fatalf("\t%s\tTest 2:\tShould match the replay, cache %s, replay %s.", failed, cached, replayed)
				}
			}
			t.Logf("\t%s\tTest 2:\tShould match a full replay of the chain.", success)
		}
	}
}

func TestSpendPendingCredit(t *testing.T) {
	kennedyID := accountFor(t, kennedyHexKey)
	pavelID := accountFor(t, pavelHexKey)

	st := newState(t, 1, map[string]currency.Units{
		string(kennedyID): 10_000_000,
	})
	defer st.Shutdown()

	t.Log("Given the need to mine a transaction that spends a pending credit.")
	{
		t.Logf("\tTest 0:\tWhen the spend carries an earlier timestamp than its funding.")
		{
			funding := signedTransfer(t, kennedyHexKey, pavelID, 5_000_000)
			if _, err := st.SubmitWalletTransaction(funding); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the funding transfer: %v", failed, err)
			}

			// Pavel spends the credit still waiting in the pool, and back-dates
			// the timestamp a full minute before the transfer funding it. If
			// selection honored the client clock this spend would mine first
			// and doom every block holding both.
			pk, err := crypto.HexToECDSA(pavelHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould parse private key: %v", failed, err)
			}
			spendTx := database.Tx{
				ChainID:   testChainID,
				Type:      database.TxTransfer,
				FromID:    pavelID,
				ToID:      ceciliaID,
				Value:     3_000_000,
				TimeStamp: funding.TimeStamp - 60_000,
			}
			spend, err := spendTx.Sign(pk)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould sign transaction: %v", failed, err)
			}

			if _, err := st.SubmitWalletTransaction(spend); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the spend against the pending credit: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept both transactions into the pool.", success)

			if _, err := st.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould mine both transactions: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould mine both transactions in one block.", success)

			if st.MempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould drain the pool, %d left.", failed, st.MempoolLength())
			}
			t.Logf("\t%s\tTest 0:\tShould drain the pool.", success)

			if bal := st.QueryBalance(kennedyID); bal.Committed != 5_000_000 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the funder with 5 coins, got %s.", failed, bal.Committed)
			}
			if bal := st.QueryBalance(pavelID); bal.Committed != 2_000_000 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the spender with 2 coins, got %s.", failed, bal.Committed)
			}
			if bal := st.QueryBalance(ceciliaID); bal.Committed != 3_000_000 {
				t.Fatalf("\t%s\tTest 0:\tShould credit the receiver with 3 coins, got %s.", failed, bal.Committed)
			}
			t.Logf("\t%s\tTest 0:\tShould settle the balances to 5, 2 and 3.", success)
		}
	}
}

func TestStaleBlockEviction(t *testing.T) {
	kennedyID := accountFor(t, kennedyHexKey)
	pavelID := accountFor(t, pavelHexKey)

	// A block capacity of one under the value strategy forces the spend of a
	// pending credit to be mined ahead of its funding.
	st := newStateStrategy(t, 1, selector.StrategyValue, 1, map[string]currency.Units{
		string(kennedyID): 2_000_000,
		string(pavelID):   2_000_000,
	})
	defer st.Shutdown()

	t.Log("Given the need for the pool to drain after a stale block.")
	{
		t.Logf("\tTest 0:\tWhen the mined block stages a transaction that cannot apply.")
		{
			if _, err := st.SubmitWalletTransaction(signedTransfer(t, kennedyHexKey, pavelID, 2_000_000)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the funding transfer: %v", failed, err)
			}

			// Affordable only with the pending credit, yet the value strategy
			// picks it first because it moves more units.
			if _, err := st.SubmitWalletTransaction(signedTransfer(t, pavelHexKey, ceciliaID, 3_000_000)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the spend against the pending credit: %v", failed, err)
			}

			if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrStaleBlock) {
				t.Fatalf("\t%s\tTest 0:\tShould get ErrStaleBlock, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get ErrStaleBlock.", success)

			// The transaction that doomed the block must be evicted so the
			// next attempt mines a different snapshot.
			if st.MempoolLength() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould evict the rejected transaction, %d left.", failed, st.MempoolLength())
			}
			t.Logf("\t%s\tTest 0:\tShould evict the rejected transaction.", success)

			if _, err := st.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould mine the remaining transfer: %v", failed, err)
			}
			if st.MempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould drain the pool, %d left.", failed, st.MempoolLength())
			}
			t.Logf("\t%s\tTest 0:\tShould mine the remaining transfer and drain the pool.", success)

			if bal := st.QueryBalance(pavelID); bal.Committed != 4_000_000 {
				t.Fatalf("\t%s\tTest 0:\tShould settle the receiver at 4 coins, got %s.", failed, bal.Committed)
			}
			t.Logf("\t%s\tTest 0:\tShould settle the receiver at 4 coins.", success)
		}
	}
}

func TestConcurrentSubmissions(t *testing.T) {
	kennedyID := accountFor(t, kennedyHexKey)
	pavelID := accountFor(t, pavelHexKey)

	st := newState(t, 1, map[string]currency.Units{
		string(kennedyID): 10_000_000,
	})
	defer st.Shutdown()

	t.Log("Given the need to keep concurrent submissions from overdrawing.")
	{
		t.Logf("\tTest 0:\tWhen one account submits ten transfers at once.")
		{
			// Each transfer moves a hair over 3 coins, so a 10 coin balance
			// covers exactly three of them no matter how the submissions
			// interleave. The distinct values keep the content ids unique.
			signedTxs := make([]database.SignedTx, 10)
			for i := range signedTxs {
				signedTxs[i] = signedTransfer(t, kennedyHexKey, pavelID, 3_000_000+currency.Units(i+1))
			}

			var wg sync.WaitGroup
			results := make(chan error, len(signedTxs))
			for _, signedTx := range signedTxs {
				wg.Add(1)
				go func(signedTx database.SignedTx) {
					defer wg.Done()
					_, err := st.SubmitWalletTransaction(signedTx)
					results <- err
				}(signedTx)
			}
			wg.Wait()
			close(results)

			var admitted int
			for err := range results {
				switch {
				case err == nil:
					admitted++
				case errors.Is(err, state.ErrInsufficientBalance):
				default:
					t.Fatalf("\t%s\tTest 0:\tShould only reject for balance, got %v.", failed, err)
				}
			}

			if admitted != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould admit exactly 3 transfers, got %d.", failed, admitted)
			}
			t.Logf("\t%s\tTest 0:\tShould admit exactly 3 transfers.", success)

			if st.MempoolLength() != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould hold 3 pending transactions, got %d.", failed, st.MempoolLength())
			}
			t.Logf("\t%s\tTest 0:\tShould hold 3 pending transactions.", success)

			// Everything pending must still be mineable in one block.
			if _, err := st.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould mine the pending transfers: %v", failed, err)
			}
			if bal := st.QueryBalance(kennedyID); bal.Committed > 1_000_000 {
				t.Fatalf("\t%s\tTest 0:\tShould spend at least 9 coins, %s left.", failed, bal.Committed)
			}
			t.Logf("\t%s\tTest 0:\tShould mine the pending transfers.", success)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	kennedyID := accountFor(t, kennedyHexKey)
	pavelID := accountFor(t, pavelHexKey)

	st := newState(t, 1, map[string]currency.Units{
		string(kennedyID): 10_000_000,
	})
	defer st.Shutdown()

	t.Log("Given the need to reject malformed and forged submissions.")
	{
		t.Logf("\tTest 0:\tWhen the chain id does not match.")
		{
			pk, err := crypto.HexToECDSA(kennedyHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould parse private key: %v", failed, err)
			}

			tx, err := database.NewTx(99, database.TxTransfer, kennedyID, pavelID, 1_000)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould construct transaction: %v", failed, err)
			}
			signedTx, err := tx.Sign(pk)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould sign transaction: %v", failed, err)
			}

			if _, err := st.SubmitWalletTransaction(signedTx); !errors.Is(err, state.ErrMalformedTransaction) {
				t.Fatalf("\t%s\tTest 0:\tShould get ErrMalformedTransaction, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get ErrMalformedTransaction.", success)
		}

		t.Logf("\tTest 1:\tWhen the signature belongs to someone else.")
		{
			pk, err := crypto.HexToECDSA(pavelHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould parse private key: %v", failed, err)
			}

			// Claims kennedy as sender but pavel signs.
			tx, err := database.NewTx(testChainID, database.TxTransfer, kennedyID, pavelID, 1_000)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould construct transaction: %v", failed, err)
			}
			signedTx, err := tx.Sign(pk)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould sign transaction: %v", failed, err)
			}

			if _, err := st.SubmitWalletTransaction(signedTx); !errors.Is(err, state.ErrInvalidSignature) {
				t.Fatalf("\t%s\tTest 1:\tShould get ErrInvalidSignature, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get ErrInvalidSignature.", success)
		}

		t.Logf("\tTest 2:\tWhen a wallet submits a system transaction.")
		{
			signedTx := database.SignedTx{
				Tx: database.Tx{
					ChainID:   testChainID,
					Type:      database.TxMiningReward,
					ToID:      kennedyID,
					Value:     10_000_000,
					TimeStamp: uint64(time.Now().UTC().UnixMilli()),
				},
			}

			if _, err := st.SubmitWalletTransaction(signedTx); !errors.Is(err, state.ErrMalformedTransaction) {
				t.Fatalf("\t%s\tTest 2:\tShould get ErrMalformedTransaction, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get ErrMalformedTransaction.", success)
		}
	}
}

func TestConvertData(t *testing.T) {
	pavelID := accountFor(t, pavelHexKey)

	st := newState(t, 1, nil)
	defer st.Shutdown()

	t.Log("Given the need to credit accounts for converted data.")
	{
		t.Logf("\tTest 0:\tWhen converting 5MB from an unregistered source.")
		{
			metrics := dataengine.Metrics{ResponseTimeMS: 500, DataPoints: 50}

			tx, err := st.ConvertData(pavelID, "", 5_000, metrics)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the conversion: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the conversion.", success)

			if tx.Value != 5_000 {
				t.Fatalf("\t%s\tTest 0:\tShould value the data at 0.005 coins, got %s.", failed, tx.Value)
			}
			t.Logf("\t%s\tTest 0:\tShould value the data at 0.005 coins.", success)

			if _, err := st.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould mine the block: %v", failed, err)
			}

			if bal := st.QueryBalance(pavelID); bal.Committed != 5_000 {
				t.Fatalf("\t%s\tTest 0:\tShould credit 0.005 coins, got %s.", failed, bal.Committed)
			}
			t.Logf("\t%s\tTest 0:\tShould credit 0.005 coins once mined.", success)

			if stats := st.QueryStats(); stats.TotalDataConvertedMMB != 5_000 {
				t.Fatalf("\t%s\tTest 0:\tShould count 5000 mMB converted, got %d.", failed, stats.TotalDataConvertedMMB)
			}
			t.Logf("\t%s\tTest 0:\tShould count 5000 mMB converted.", success)
		}

		t.Logf("\tTest 1:\tWhen converting from a registered source.")
		{
			ds := dataengine.DataSource{ID: "feed-1", Type: dataengine.SourceTypeAPI, URL: "https://example.com/api"}
			if err := st.DataEngine().AddSource(ds); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould register the source: %v", failed, err)
			}

			metrics := dataengine.Metrics{ResponseTimeMS: 500, DataPoints: 50}
			tx, err := st.ConvertData(pavelID, "feed-1", 5_000, metrics)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept the conversion: %v", failed, err)
			}

			// The api source type applies a 1.5x multiplier.
			if tx.Value != 7_500 {
				t.Fatalf("\t%s\tTest 1:\tShould value the data at 7500 units, got %d.", failed, tx.Value)
			}
			t.Logf("\t%s\tTest 1:\tShould apply the source type multiplier.", success)

			got, err := st.DataEngine().Source("feed-1")
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould look up the source: %v", failed, err)
			}
			if got.LastCollected == 0 || got.ConvertedMMB != 5_000 {
				t.Fatalf("\t%s\tTest 1:\tShould record the collection, got time %d, total %d.", failed, got.LastCollected, got.ConvertedMMB)
			}
			t.Logf("\t%s\tTest 1:\tShould record the collection time and total.", success)
		}

		t.Logf("\tTest 2:\tWhen converting zero bytes.")
		{
			if _, err := st.ConvertData(pavelID, "", 0, dataengine.Metrics{}); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould reject the conversion.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reject the conversion.", success)
		}
	}
}

func TestSharesRegulateDifficulty(t *testing.T) {
	kennedyID := accountFor(t, kennedyHexKey)

	st := newState(t, 2, map[string]currency.Units{
		string(kennedyID): 10_000_000,
	})
	defer st.Shutdown()

	t.Log("Given the need for share ownership to govern difficulty.")
	{
		t.Logf("\tTest 0:\tWhen ownership sits inside the stable band.")
		{
			if _, err := st.SubmitWalletTransaction(signedSharePurchase(t, kennedyHexKey, "Google", 500)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the purchase: %v", failed, err)
			}
			if _, err := st.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould mine the block: %v", failed, err)
			}

			if shares := st.QuerySharesOf(kennedyID, "Google"); shares != 500 {
				t.Fatalf("\t%s\tTest 0:\tShould own 500 shares, got %d.", failed, shares)
			}
			t.Logf("\t%s\tTest 0:\tShould own 500 shares.", success)

			if bal := st.QueryBalance(kennedyID); bal.Committed != 9_500_000 {
				t.Fatalf("\t%s\tTest 0:\tShould debit the share price, got %s.", failed, bal.Committed)
			}
			t.Logf("\t%s\tTest 0:\tShould debit the share price.", success)

			if d := st.CurrentDifficulty(); d != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould hold difficulty at 2, got %d.", failed, d)
			}
			t.Logf("\t%s\tTest 0:\tShould hold difficulty at 2.", success)
		}

		t.Logf("\tTest 1:\tWhen ownership crosses the high water mark.")
		{
			if _, err := st.SubmitWalletTransaction(signedSharePurchase(t, kennedyHexKey, "Microsoft", 700)); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept the purchase: %v", failed, err)
			}
			if _, err := st.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould mine the block: %v", failed, err)
			}

			if totals := st.QueryAggregateShares(); totals["Google"]+totals["Microsoft"] != 1_200 {
				t.Fatalf("\t%s\tTest 1:\tShould aggregate 1200 shares, got %v.", failed, totals)
			}
			t.Logf("\t%s\tTest 1:\tShould aggregate 1200 shares.", success)

			if d := st.CurrentDifficulty(); d != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould lower difficulty to 1, got %d.", failed, d)
			}
			t.Logf("\t%s\tTest 1:\tShould lower difficulty to 1.", success)

			// Further adjustments clamp at the floor.
			if _, newDifficulty := st.AdjustDifficulty(); newDifficulty != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould clamp at the floor of 1, got %d.", failed, newDifficulty)
			}
			t.Logf("\t%s\tTest 1:\tShould clamp at the floor.", success)
		}

		t.Logf("\tTest 2:\tWhen the purchase breaks the governance rules.")
		{
			if _, err := st.SubmitWalletTransaction(signedSharePurchase(t, kennedyHexKey, "Enron", 10)); !errors.Is(err, state.ErrUnknownCompany) {
				t.Fatalf("\t%s\tTest 2:\tShould get ErrUnknownCompany, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get ErrUnknownCompany.", success)

			// Wrong price for the share count.
			pk, err := crypto.HexToECDSA(kennedyHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould parse private key: %v", failed, err)
			}
			tx, err := database.NewTx(testChainID, database.TxSharePurchase, kennedyID, database.TreasuryAccountID("Google"), 1)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould construct transaction: %v", failed, err)
			}
			tx.Company = "Google"
			tx.Shares = 10
			signedTx, err := tx.Sign(pk)
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould sign transaction: %v", failed, err)
			}

			if _, err := st.SubmitWalletTransaction(signedTx); !errors.Is(err, state.ErrMalformedTransaction) {
				t.Fatalf("\t%s\tTest 2:\tShould get ErrMalformedTransaction, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get ErrMalformedTransaction for a bad price.", success)
		}
	}
}

func TestMiningBusy(t *testing.T) {
	st := newState(t, 6, nil)
	defer st.Shutdown()

	t.Log("Given the need to run a single mining operation at a time.")
	{
		t.Logf("\tTest 0:\tWhen a second mining request arrives.")
		{
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			result := make(chan error, 1)
			go func() {
				_, err := st.MineNewBlock(ctx)
				result <- err
			}()

			// Give the first request time to take the mining slot. At
			// difficulty 6 it will grind well past this window.
			time.Sleep(100 * time.Millisecond)

			if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrMiningBusy) {
				t.Fatalf("\t%s\tTest 0:\tShould get ErrMiningBusy, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould get ErrMiningBusy.", success)

			cancel()
			if err := <-result; !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tTest 0:\tShould stop the first request with context.Canceled, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould stop the first request on cancel.", success)
		}
	}
}
