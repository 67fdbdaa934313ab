// Package state is the core API for the ledger and implements all the
// business rules and processing.
package state

import (
	"sync"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/genesis"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/mempool"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/regulator"
	"github.com/datacoinlabs/datacoin/foundation/dataengine"
)

// EventHandler defines a function that is called when events occur in the
// processing of transactions and blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by
// any package providing support for background mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining() (done func())
}

// =============================================================================

// Config represents the configuration required to start the ledger node.
type Config struct {
	BeneficiaryID  database.AccountID
	Genesis        genesis.Genesis
	Storage        database.Serializer
	DataEngine     *dataengine.Engine
	SelectStrategy string
	EvHandler      EventHandler
}

// State manages the ledger.
type State struct {
	mu sync.Mutex

	beneficiaryID database.AccountID
	evHandler     EventHandler

	genesis    genesis.Genesis
	mempool    *mempool.Mempool
	db         *database.Database
	dataEngine *dataengine.Engine
	regulator  *regulator.Regulator

	// miningActive is a single-slot token: whichever mining request holds
	// it is the one active mining operation for this process.
	miningActive chan struct{}

	Worker Worker
}

// New constructs a new ledger state for data management.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Open the database, applying the genesis balances and replaying any
	// existing blocks found in storage.
	db, err := database.New(cfg.Genesis, cfg.Storage, ev)
	if err != nil {
		return nil, err
	}

	// Construct a mempool with the specified sort strategy.
	mpool, err := mempool.NewWithStrategy(cfg.SelectStrategy)
	if err != nil {
		return nil, err
	}

	state := State{
		beneficiaryID: cfg.BeneficiaryID,
		evHandler:     ev,

		genesis:      cfg.Genesis,
		mempool:      mpool,
		db:           db,
		dataEngine:   cfg.DataEngine,
		regulator:    regulator.New(cfg.Genesis, ev),
		miningActive: make(chan struct{}, 1),
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the database is properly closed.
	defer func() {
		s.db.Close()
	}()

	// Stop all ledger writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// Reset re-initializes the chain back to the genesis state both on disk and
// in memory.
func (s *State) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mempool.Truncate()
	return s.db.Reset()
}

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// BeneficiaryID returns the account that receives this node's mining
// rewards.
func (s *State) BeneficiaryID() database.AccountID {
	return s.beneficiaryID
}
