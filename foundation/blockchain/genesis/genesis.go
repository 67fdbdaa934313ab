// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time                 `json:"date"`
	ChainID       uint16                    `json:"chain_id"`        // Unique id for this running instance.
	TransPerBlock uint16                    `json:"trans_per_block"` // Maximum number of transactions per block.
	Difficulty    uint16                    `json:"difficulty"`      // Leading zero hex digits required of a block hash.
	MinDifficulty uint16                    `json:"min_difficulty"`  // Floor the regulator can lower difficulty to.
	MaxDifficulty uint16                    `json:"max_difficulty"`  // Ceiling the regulator can raise difficulty to.
	MiningReward  currency.Units            `json:"mining_reward"`   // Units credited for mining a block.
	BaseRate      currency.Units            `json:"base_rate"`       // Units credited per megabyte of converted data.
	SharePrice    currency.Units            `json:"share_price"`     // Units debited per corporate share.
	Companies     []string                  `json:"companies"`       // Companies whose shares regulate difficulty.
	Balances      map[string]currency.Units `json:"balances"`        // Founder balances.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	if genesis.MinDifficulty > genesis.Difficulty || genesis.Difficulty > genesis.MaxDifficulty {
		return Genesis{}, fmt.Errorf("difficulty %d outside clamp band [%d,%d]", genesis.Difficulty, genesis.MinDifficulty, genesis.MaxDifficulty)
	}

	return genesis, nil
}
