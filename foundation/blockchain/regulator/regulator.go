// Package regulator maintains the mining difficulty for the chain based on
// how widely shares are held. Heavy share ownership is read as a sign of a
// busy network, so the puzzle gets easier to keep blocks flowing; a quiet
// network gets a harder puzzle.
package regulator

import (
	"sync"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/genesis"
)

// Share ownership bands that drive the difficulty adjustment.
const (
	lowWaterShares  = 100
	highWaterShares = 1_000
)

// Regulator manages the current mining difficulty inside the band the
// genesis document allows.
type Regulator struct {
	mu            sync.RWMutex
	difficulty    uint16
	minDifficulty uint16
	maxDifficulty uint16
	evHandler     func(v string, args ...any)
}

// New constructs a regulator seeded from the genesis document.
func New(gen genesis.Genesis, evHandler func(v string, args ...any)) *Regulator {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	return &Regulator{
		difficulty:    gen.Difficulty,
		minDifficulty: gen.MinDifficulty,
		maxDifficulty: gen.MaxDifficulty,
		evHandler:     evHandler,
	}
}

// Difficulty returns the difficulty the next mined block must satisfy.
func (r *Regulator) Difficulty() uint16 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.difficulty
}

// Adjust steps the difficulty one notch based on the total number of shares
// held across all companies and returns the previous and new settings. The
// clamp band guarantees repeated calls settle at the floor or ceiling rather
// than drifting without bound.
func (r *Regulator) Adjust(shareTotals map[string]uint64) (oldDifficulty uint16, newDifficulty uint16) {
	var total uint64
	for _, shares := range shareTotals {
		total += shares
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	oldDifficulty = r.difficulty

	newDifficulty = oldDifficulty
	switch {
	case total > highWaterShares:
		if newDifficulty > r.minDifficulty {
			newDifficulty--
		}
	case total < lowWaterShares:
		if newDifficulty < r.maxDifficulty {
			newDifficulty++
		}
	}

	r.difficulty = newDifficulty

	if newDifficulty != oldDifficulty {
		r.evHandler("regulator: adjust: shares[%d]: difficulty %d -> %d", total, oldDifficulty, newDifficulty)
	}

	return oldDifficulty, newDifficulty
}
