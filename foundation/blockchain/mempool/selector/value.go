package selector

import (
	"sort"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
)

// valueSelect returns the highest value transactions while keeping the
// admission order for each account. Transactions from a single account
// never reorder relative to each other; accounts compete on the value of
// their oldest pending transaction.
var valueSelect = func(m map[database.AccountID][]Tx, howMany int) []database.BlockTx {

	// Sort the transactions per account by admission order.
	for key := range m {
		if len(m[key]) > 1 {
			sort.Sort(bySeq(m[key]))
		}
	}

	// Pick the first transaction in the slice for each account. Each
	// iteration represents a new row of selections. Keep doing that until
	// all the transactions have been selected.
	var rows [][]Tx
	for {
		var row []Tx
		for key := range m {
			if len(m[key]) > 0 {
				row = append(row, m[key][0])
				m[key] = m[key][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	// Sort each row by value unless we will take all transactions from that
	// row anyway. Then try to select the number of requested transactions.
	// Keep pulling transactions from each row until the amount is fulfilled
	// or there are no more transactions.
	final := []database.BlockTx{}
	for _, row := range rows {
		if howMany != -1 {
			need := howMany - len(final)
			if len(row) > need {
				sort.Sort(byValue(row))
				for _, tx := range row[:need] {
					final = append(final, tx.BlockTx)
				}
				break
			}
		}
		for _, tx := range row {
			final = append(final, tx.BlockTx)
		}
	}

	return final
}
