package selector

import (
	"sort"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
)

// fifoSelect returns the oldest admitted transactions across all accounts,
// keeping the admission order within an account intact.
var fifoSelect = func(m map[database.AccountID][]Tx, howMany int) []database.BlockTx {
	var all []Tx
	for key := range m {
		all = append(all, m[key]...)
	}

	sort.Sort(bySeq(all))

	if howMany == -1 || howMany > len(all) {
		howMany = len(all)
	}

	final := make([]database.BlockTx, 0, howMany)
	for _, tx := range all[:howMany] {
		final = append(final, tx.BlockTx)
	}

	return final
}
