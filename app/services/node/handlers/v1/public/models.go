package public

import (
	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
)

// tx represents the view of a transaction returned to clients. The
// signature travels as a display string, never as raw key material.
type tx struct {
	ID          string             `json:"id"`
	Type        string             `json:"type"`
	FromAccount database.AccountID `json:"from"`
	FromName    string             `json:"from_name,omitempty"`
	To          database.AccountID `json:"to"`
	ToName      string             `json:"to_name,omitempty"`
	Value       string             `json:"value"`
	DataSizeMMB uint64             `json:"data_size_mmb,omitempty"`
	Company     string             `json:"company,omitempty"`
	Shares      uint64             `json:"shares,omitempty"`
	TimeStamp   uint64             `json:"timestamp"`
	Sig         string             `json:"sig,omitempty"`
}

// toTx converts a block transaction into its client view.
func (h Handlers) toTx(tran database.BlockTx) tx {
	from := string(tran.FromID)
	var fromName string
	if from != "" {
		fromName = h.Wallet.Name(tran.FromID)
	}

	return tx{
		ID:          tran.ID,
		Type:        tran.Type,
		FromAccount: tran.FromID,
		FromName:    fromName,
		To:          tran.ToID,
		ToName:      h.Wallet.Name(tran.ToID),
		Value:       tran.Value.String(),
		DataSizeMMB: tran.DataSizeMMB,
		Company:     tran.Company,
		Shares:      tran.Shares,
		TimeStamp:   tran.TimeStamp,
		Sig:         tran.SignatureString(),
	}
}

// balance is the response for a balance query. Committed is ledger truth;
// pending folds in the pool preview.
type balance struct {
	Account   database.AccountID `json:"account"`
	Committed string             `json:"committed"`
	Pending   string             `json:"pending"`
}

// info describes an account with its holdings.
type info struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name,omitempty"`
	Balance string             `json:"balance"`
	Shares  map[string]uint64  `json:"shares,omitempty"`
}

// actInfo is the response for the accounts listing.
type actInfo struct {
	LatestBlock string `json:"latest_block"`
	Uncommitted int    `json:"uncommitted"`
	Accounts    []info `json:"accounts"`
}

// block is the client view of a committed block.
type block struct {
	Number        uint64             `json:"number"`
	PrevBlockHash string             `json:"prev_block_hash"`
	Hash          string             `json:"hash"`
	TimeStamp     uint64             `json:"timestamp"`
	Nonce         uint64             `json:"nonce"`
	Beneficiary   database.AccountID `json:"beneficiary"`
	Difficulty    uint16             `json:"difficulty"`
	TransRoot     string             `json:"trans_root"`
	Trans         []tx               `json:"trans"`
}

// =============================================================================

// newWallet is the request to create a named wallet.
type newWallet struct {
	Name       string `json:"name" validate:"required"`
	Passphrase string `json:"passphrase" validate:"required"`
}

// convertRequest asks the node to value collected data and queue the credit.
type convertRequest struct {
	Account  string `json:"account" validate:"required"`
	SourceID string `json:"source_id"`
	SizeMMB  uint64 `json:"size_mmb" validate:"required,gt=0"`

	ContentSizeMMB uint64 `json:"content_size_mmb"`
	ResponseTimeMS uint64 `json:"response_time_ms"`
	LinksCount     uint64 `json:"links_count"`
	ImagesCount    uint64 `json:"images_count"`
	DataPoints     uint64 `json:"data_points"`
}

// convertResponse reports the queued conversion.
type convertResponse struct {
	TxID    string `json:"tx_id"`
	Account string `json:"account"`
	Value   string `json:"value"`
}

// mineResponse reports a successfully mined and committed block.
type mineResponse struct {
	BlockNumber uint64 `json:"block_number"`
	BlockHash   string `json:"block_hash"`
	Reward      string `json:"reward"`
}

// sharesResponse reports a queued share purchase.
type sharesResponse struct {
	TxID            string `json:"tx_id"`
	Company         string `json:"company"`
	CommittedShares uint64 `json:"committed_shares"`
	PendingShares   uint64 `json:"pending_shares"`
}

// difficultyResponse reports a difficulty adjustment.
type difficultyResponse struct {
	OldDifficulty uint16 `json:"old_difficulty"`
	NewDifficulty uint16 `json:"new_difficulty"`
}

// sourceRequest registers an external data source.
type sourceRequest struct {
	ID       string `json:"id" validate:"required"`
	Type     string `json:"type"`
	URL      string `json:"url"`
	WeightBP uint64 `json:"weight_bp"`
}
