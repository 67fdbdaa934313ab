// Package database handles the lower level support for maintaining the
// ledger on disk and maintaining an in-memory cache of account balances and
// share ownership. The cache is incremental but must never diverge from a
// full replay of the chain; ReplayBalance exists so tests can prove that.
package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/genesis"
)

// ErrChainCorruption is returned when a block fails validation against the
// current chain state. The block is rejected in full, nothing is applied.
var ErrChainCorruption = errors.New("chain corruption")

// TxRejectedError identifies the transaction that caused a candidate block
// to fail staging. Callers can use it to drop the offending transaction
// from their pending set instead of retrying the same block forever.
type TxRejectedError struct {
	TxID string
	Err  error
}

// Error implements the error interface.
func (e *TxRejectedError) Error() string {
	return fmt.Sprintf("transaction %s rejected: %s", e.TxID, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *TxRejectedError) Unwrap() error {
	return e.Err
}

// storageRetries is the number of extra attempts made when a block write
// fails before the failure is surfaced.
const storageRetries = 1

// =============================================================================

// Database manages data related to accounts who have transacted on the ledger.
// Mutation is serialized by the state layer; the internal mutex lets balance
// and history reads proceed concurrently against the committed snapshot.
type Database struct {
	mu sync.RWMutex

	genesis      genesis.Genesis
	latestBlock  Block
	accounts     map[AccountID]Account
	committedTxs map[string]struct{}
	totalTrans   uint64
	totalDataMMB uint64
	storage      Serializer
	evHandler    func(v string, args ...any)
}

// New constructs a new database, applies the genesis balances and replays
// any existing blocks found in storage. If storage is empty the genesis
// block is created and persisted at position zero.
func New(gen genesis.Genesis, storage Serializer, evHandler func(v string, args ...any)) (*Database, error) {
	db := Database{
		genesis:      gen,
		accounts:     make(map[AccountID]Account),
		committedTxs: make(map[string]struct{}),
		storage:      storage,
		evHandler: func(v string, args ...any) {
			if evHandler != nil {
				evHandler(v, args...)
			}
		},
	}

	for accountStr, balance := range gen.Balances {
		accountID, err := ToAccountID(accountStr)
		if err != nil {
			return nil, err
		}
		db.accounts[accountID] = newAccount(accountID, balance)
	}

	// Walk the chain on disk, validating each block against its parent and
	// replaying its transactions into the cache.
	var count int
	iter := db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		if count == 0 {
			if block.Header.Number != 0 {
				return nil, fmt.Errorf("first stored block has number %d, exp 0", block.Header.Number)
			}
			db.latestBlock = block
			count++
			continue
		}

		if err := block.ValidateBlock(db.latestBlock, db.evHandler); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrChainCorruption, err)
		}

		// Replay enforces the same difficulty band the live commit path
		// does, so a reopened store never accepts a block the running node
		// would have rejected.
		if err := db.checkDifficultyBand(block); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrChainCorruption, err)
		}

		staged, err := db.stageBlock(block)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrChainCorruption, err)
		}
		db.commitBlock(block, staged)
		count++
	}

	// A fresh store gets the fixed genesis block.
	if count == 0 {
		gblock := NewGenesisBlock(gen)
		if err := db.storage.Write(NewBlockData(gblock)); err != nil {
			return nil, err
		}
		db.latestBlock = gblock
	}

	return &db, nil
}

// Close closes the open block store.
func (db *Database) Close() {
	db.storage.Close()
}

// Reset re-initializes the database back to the genesis state.
func (db *Database) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.storage.Reset(); err != nil {
		return err
	}

	db.accounts = make(map[AccountID]Account)
	db.committedTxs = make(map[string]struct{})
	db.totalTrans = 0
	db.totalDataMMB = 0
	for accountStr, balance := range db.genesis.Balances {
		accountID, err := ToAccountID(accountStr)
		if err != nil {
			return err
		}
		db.accounts[accountID] = newAccount(accountID, balance)
	}

	gblock := NewGenesisBlock(db.genesis)
	if err := db.storage.Write(NewBlockData(gblock)); err != nil {
		return err
	}
	db.latestBlock = gblock

	return nil
}

// =============================================================================

// ApplyBlock validates the candidate block against the current chain state
// and, only if every check and every contained transaction passes, writes it
// durably and makes it visible. There is no partial commit: a single invalid
// transaction rejects the whole block.
func (db *Database) ApplyBlock(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := block.ValidateBlock(db.latestBlock, db.evHandler); err != nil {
		return fmt.Errorf("%w: %s", ErrChainCorruption, err)
	}

	if err := db.checkDifficultyBand(block); err != nil {
		return fmt.Errorf("%w: %s", ErrChainCorruption, err)
	}

	// Stage every transaction against a copy of the accounts so a failure
	// leaves the committed view untouched.
	staged, err := db.stageBlock(block)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChainCorruption, err)
	}

	// Write the block to the store before it becomes visible. The write is
	// atomic at the storage layer, so a failure here leaves the on-disk
	// chain exactly as it was.
	var werr error
	for attempt := 0; attempt <= storageRetries; attempt++ {
		if werr = db.storage.Write(NewBlockData(block)); werr == nil {
			break
		}
		db.evHandler("database: ApplyBlock: storage write attempt[%d]: ERROR: %s", attempt, werr)
	}
	if werr != nil {
		return fmt.Errorf("writing block to storage: %w", werr)
	}

	db.commitBlock(block, staged)

	return nil
}

// checkDifficultyBand rejects blocks mined outside the governance band.
func (db *Database) checkDifficultyBand(block Block) error {
	if block.Header.Difficulty < db.genesis.MinDifficulty || block.Header.Difficulty > db.genesis.MaxDifficulty {
		return fmt.Errorf("block difficulty %d outside band [%d,%d]", block.Header.Difficulty, db.genesis.MinDifficulty, db.genesis.MaxDifficulty)
	}
	return nil
}

// stageBlock applies every transaction in the block to a clone of the
// account cache, enforcing the per-type rules against balances computed from
// the chain prefix. The clone is returned for the commit step.
func (db *Database) stageBlock(block Block) (map[AccountID]Account, error) {
	staged := make(map[AccountID]Account, len(db.accounts))
	for accountID, account := range db.accounts {
		staged[accountID] = account.clone()
	}

	for i, tx := range block.Trans {
		if _, exists := db.committedTxs[tx.ID]; exists {
			return nil, &TxRejectedError{TxID: tx.ID, Err: errors.New("already committed")}
		}

		if err := tx.Validate(db.genesis.ChainID); err != nil {
			return nil, &TxRejectedError{TxID: tx.ID, Err: err}
		}

		if tx.Type == TxMiningReward {
			if i != 0 {
				return nil, &TxRejectedError{TxID: tx.ID, Err: errors.New("mining reward must be the first transaction in a block")}
			}
			if tx.Value != db.genesis.MiningReward {
				return nil, &TxRejectedError{TxID: tx.ID, Err: fmt.Errorf("mining reward %s does not match configured reward %s", tx.Value, db.genesis.MiningReward)}
			}
		}

		if err := applyTransaction(staged, db.genesis, tx); err != nil {
			return nil, &TxRejectedError{TxID: tx.ID, Err: err}
		}
	}

	return staged, nil
}

// commitBlock makes a staged block visible in the cache.
func (db *Database) commitBlock(block Block, staged map[AccountID]Account) {
	db.accounts = staged
	db.latestBlock = block

	for _, tx := range block.Trans {
		db.committedTxs[tx.ID] = struct{}{}
		db.totalTrans++
		if tx.Type == TxDataConversion {
			db.totalDataMMB += tx.DataSizeMMB
		}
	}
}

// applyTransaction performs the business logic for applying a single
// transaction to the given account set. Each transaction type carries its
// own rule.
func applyTransaction(accounts map[AccountID]Account, gen genesis.Genesis, tx BlockTx) error {
	credit := func(accountID AccountID, value currency.Units) {
		account, exists := accounts[accountID]
		if !exists {
			account = newAccount(accountID, 0)
		}
		account.Balance += value
		accounts[accountID] = account
	}

	debit := func(accountID AccountID, value currency.Units) error {
		account := accounts[accountID]
		if account.Balance < value {
			return fmt.Errorf("%s has an insufficient balance, bal %s, needed %s", accountID, account.Balance, value)
		}
		account.Balance -= value
		accounts[accountID] = account
		return nil
	}

	switch tx.Type {
	case TxTransfer:
		if err := debit(tx.FromID, tx.Value); err != nil {
			return err
		}
		credit(tx.ToID, tx.Value)

	case TxMiningReward, TxDataConversion:
		credit(tx.ToID, tx.Value)

	case TxSharePurchase:
		if !knownCompany(gen, tx.Company) {
			return fmt.Errorf("unknown company %q", tx.Company)
		}
		if tx.ToID != TreasuryAccountID(tx.Company) {
			return fmt.Errorf("share purchase must pay the %s treasury", tx.Company)
		}
		if want := gen.SharePrice * currency.Units(tx.Shares); tx.Value != want {
			return fmt.Errorf("share purchase value %s does not match %d shares at %s", tx.Value, tx.Shares, gen.SharePrice)
		}
		if err := debit(tx.FromID, tx.Value); err != nil {
			return err
		}
		credit(tx.ToID, tx.Value)

		account := accounts[tx.FromID]
		if account.Shares == nil {
			account.Shares = make(map[string]uint64)
		}
		account.Shares[tx.Company] += tx.Shares
		accounts[tx.FromID] = account

	default:
		return fmt.Errorf("unknown transaction type %q", tx.Type)
	}

	return nil
}

// knownCompany reports whether the company participates in governance.
func knownCompany(gen genesis.Genesis, company string) bool {
	for _, c := range gen.Companies {
		if c == company {
			return true
		}
	}
	return false
}

// =============================================================================

// Balance returns the committed balance for the specified account from the
// incremental cache.
func (db *Database) Balance(accountID AccountID) currency.Units {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.accounts[accountID].Balance
}

// ReplayBalance recomputes the balance for the specified account by replaying
// every committed transaction from storage. It must always agree with
// Balance; the divergence test in this package proves it.
func (db *Database) ReplayBalance(accountID AccountID) (currency.Units, error) {
	var balance currency.Units
	if start, exists := db.genesis.Balances[string(accountID)]; exists {
		balance = start
	}

	// Bound the walk to the committed head. ApplyBlock writes to storage
	// before the commit makes the block visible, so an unbounded walk could
	// read a block the cache does not reflect yet.
	db.mu.RLock()
	head := db.latestBlock.Header.Number
	db.mu.RUnlock()

	iter := db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return 0, err
		}

		if block.Header.Number > head {
			break
		}

		for _, tx := range block.Trans {
			if tx.FromID == accountID {
				balance -= tx.Value
			}
			if tx.ToID == accountID {
				balance += tx.Value
			}
		}
	}

	return balance, nil
}

// History returns the committed transactions touching the specified account
// in chain order.
func (db *Database) History(accountID AccountID) ([]BlockTx, error) {
	var out []BlockTx

	db.mu.RLock()
	head := db.latestBlock.Header.Number
	db.mu.RUnlock()

	iter := db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		if block.Header.Number > head {
			break
		}

		for _, tx := range block.Trans {
			if tx.FromID == accountID || tx.ToID == accountID {
				out = append(out, tx)
			}
		}
	}

	return out, nil
}

// HasTransaction reports whether a transaction with the specified content id
// has already been committed to the chain.
func (db *Database) HasTransaction(id string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	_, exists := db.committedTxs[id]
	return exists
}

// CopyAccounts makes a copy of the current accounts in the database.
func (db *Database) CopyAccounts() map[AccountID]Account {
	db.mu.RLock()
	defer db.mu.RUnlock()

	accounts := make(map[AccountID]Account, len(db.accounts))
	for accountID, account := range db.accounts {
		accounts[accountID] = account.clone()
	}
	return accounts
}

// SharesOf returns the number of shares of the specified company held by the
// specified account.
func (db *Database) SharesOf(accountID AccountID, company string) uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.accounts[accountID].Shares[company]
}

// AggregateShares derives the total shares held per company by summation
// across all accounts.
func (db *Database) AggregateShares() map[string]uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	totals := make(map[string]uint64, len(db.genesis.Companies))
	for _, company := range db.genesis.Companies {
		totals[company] = 0
	}

	for _, account := range db.accounts {
		for company, count := range account.Shares {
			totals[company] += count
		}
	}

	return totals
}

// LatestBlock returns the latest committed block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock
}

// TotalBlocks returns the number of committed blocks including genesis.
func (db *Database) TotalBlocks() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock.Header.Number + 1
}

// TotalTransactions returns the number of committed transactions.
func (db *Database) TotalTransactions() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.totalTrans
}

// TotalDataConvertedMMB returns the total converted data recorded on the
// chain, in milli-megabytes.
func (db *Database) TotalDataConvertedMMB() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.totalDataMMB
}

// GetBlock reads the specified block by number from the store.
func (db *Database) GetBlock(num uint64) (Block, error) {
	blockData, err := db.storage.GetBlock(num)
	if err != nil {
		return Block{}, err
	}
	return ToBlock(blockData), nil
}

// ForEach returns an iterator to walk through all the blocks starting with
// the genesis block.
func (db *Database) ForEach() DatabaseIterator {
	return DatabaseIterator{iterator: db.storage.ForEach()}
}

// =============================================================================

// DatabaseIterator provides block iteration over the raw storage iterator.
type DatabaseIterator struct {
	iterator Iterator
}

// Next retrieves the next block from storage.
func (di *DatabaseIterator) Next() (Block, error) {
	blockData, err := di.iterator.Next()
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData), nil
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.iterator.Done()
}
