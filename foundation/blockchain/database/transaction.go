package database

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/signature"
)

// The set of transaction types the ledger understands. Each type carries its
// own validation and application rule so adding a variant never touches the
// logic of another.
const (
	TxTransfer       = "transfer"
	TxDataConversion = "data_conversion"
	TxMiningReward   = "mining_reward"
	TxSharePurchase  = "share_purchase"
)

// =============================================================================

// Tx is the transactional information between two parties. This is the
// canonical content a wallet signs.
type Tx struct {
	ChainID     uint16         `json:"chain_id"`                // Prevents replay against a different ledger instance.
	Type        string         `json:"type"`                    // One of the Tx* type constants.
	FromID      AccountID      `json:"from"`                    // Account the value is moving from. Empty for system-issued.
	ToID        AccountID      `json:"to"`                      // Account receiving the benefit of the transaction.
	Value       currency.Units `json:"value"`                   // Amount being moved, in micro-coins.
	DataSizeMMB uint64         `json:"data_size_mmb,omitempty"` // data_conversion: converted data size in milli-megabytes.
	Company     string         `json:"company,omitempty"`       // share_purchase: company whose shares are bought.
	Shares      uint64         `json:"shares,omitempty"`        // share_purchase: number of shares bought.
	TimeStamp   uint64         `json:"timestamp"`               // Time the transaction was created.
}

// NewTx constructs a user transaction that still needs to be signed.
func NewTx(chainID uint16, txType string, fromID AccountID, toID AccountID, value currency.Units) (Tx, error) {
	if !fromID.IsAccountID() {
		return Tx{}, fmt.Errorf("from account is not properly formatted")
	}
	if !toID.IsAccountID() {
		return Tx{}, fmt.Errorf("to account is not properly formatted")
	}

	tx := Tx{
		ChainID:   chainID,
		Type:      txType,
		FromID:    fromID,
		ToID:      toID,
		Value:     value,
		TimeStamp: uint64(time.Now().UTC().UnixMilli()),
	}

	return tx, nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {

	// Sign the transaction with the private key to produce a signature.
	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	// Construct the signed transaction by adding the signature
	// in the [R|S|V] format.
	signedTx := SignedTx{
		Tx: tx,
		V:  v,
		R:  r,
		S:  s,
	}

	return signedTx, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the ledger. System-issued
// transactions (mining rewards and data conversions) carry no signature.
type SignedTx struct {
	Tx
	V *big.Int `json:"v,omitempty"` // Recovery identifier.
	R *big.Int `json:"r,omitempty"` // First coordinate of the ECDSA signature.
	S *big.Int `json:"s,omitempty"` // Second coordinate of the ECDSA signature.
}

// IsSystem reports whether the transaction is issued by the system itself
// and therefore carries no sender or signature.
func (tx SignedTx) IsSystem() bool {
	return tx.Type == TxMiningReward || tx.Type == TxDataConversion
}

// Validate verifies the transaction is structurally well formed and, for
// user transactions, that the signature recovers to the claimed sender.
func (tx SignedTx) Validate(chainID uint16) error {
	if err := tx.ValidateStructure(chainID); err != nil {
		return err
	}

	if tx.IsSystem() {
		return nil
	}

	return tx.ValidateSignature()
}

// ValidateStructure verifies the transaction fields are well formed without
// touching the signature.
func (tx SignedTx) ValidateStructure(chainID uint16) error {
	if tx.ChainID != chainID {
		return fmt.Errorf("invalid chain id, got %d, exp %d", tx.ChainID, chainID)
	}

	switch tx.Type {
	case TxTransfer, TxDataConversion, TxMiningReward, TxSharePurchase:
	default:
		return fmt.Errorf("unknown transaction type %q", tx.Type)
	}

	if !tx.ToID.IsAccountID() {
		return errors.New("invalid account for to account")
	}

	if tx.Value == 0 {
		return errors.New("transaction value must be greater than zero")
	}

	if tx.Type == TxSharePurchase && (tx.Company == "" || tx.Shares == 0) {
		return errors.New("share purchase requires a company and share count")
	}

	if tx.IsSystem() {
		if tx.FromID != "" || tx.V != nil || tx.R != nil || tx.S != nil {
			return errors.New("system transaction must not carry a sender or signature")
		}
		return nil
	}

	if !tx.FromID.IsAccountID() {
		return errors.New("invalid account for from account")
	}

	if tx.FromID == tx.ToID {
		return fmt.Errorf("transaction invalid, sending money to yourself, from %s, to %s", tx.FromID, tx.ToID)
	}

	return nil
}

// ValidateSignature verifies the signature covers the transaction content
// and recovers to the claimed sender.
func (tx SignedTx) ValidateSignature() error {
	if tx.V == nil || tx.R == nil || tx.S == nil {
		return errors.New("transaction is not signed")
	}

	if err := signature.VerifySignature(tx.V, tx.R, tx.S); err != nil {
		return err
	}

	// The recovered address must match the claimed sender. Without this
	// check a valid signature from any key would authorize the spend.
	address, err := signature.FromAddress(tx.Tx, tx.V, tx.R, tx.S)
	if err != nil {
		return err
	}
	if AccountID(address) != tx.FromID {
		return fmt.Errorf("signature does not match sender, got %s, exp %s", address, tx.FromID)
	}

	return nil
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	if tx.V == nil {
		return ""
	}
	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	from := string(tx.FromID)
	if from == "" {
		from = "system"
	}

	return fmt.Sprintf("%s:%s:%s", tx.Type, from, tx.Value)
}

// =============================================================================

// BlockTx represents the transaction as it's recorded inside a block. The ID
// is derived from the transaction content so it is unique and recomputable.
type BlockTx struct {
	SignedTx
	ID string `json:"id"`
}

// NewBlockTx constructs a new block transaction, deriving its content id.
func NewBlockTx(signedTx SignedTx) BlockTx {
	return BlockTx{
		SignedTx: signedTx,
		ID:       signature.Hash(signedTx),
	}
}

// NewSystemTx constructs a system-issued block transaction crediting the
// specified account. Mining rewards and data conversions take this path.
func NewSystemTx(chainID uint16, txType string, toID AccountID, value currency.Units) BlockTx {
	tx := SignedTx{
		Tx: Tx{
			ChainID:   chainID,
			Type:      txType,
			ToID:      toID,
			Value:     value,
			TimeStamp: uint64(time.Now().UTC().UnixMilli()),
		},
	}

	return NewBlockTx(tx)
}

// VerifyID recomputes the content id and validates the recorded id matches.
func (tx BlockTx) VerifyID() error {
	if tx.ID != signature.Hash(tx.SignedTx) {
		return fmt.Errorf("transaction id %s does not match content", tx.ID)
	}
	return nil
}
