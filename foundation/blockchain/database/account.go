package database

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account represents information stored in the database for an individual
// account. Shares tracks corporate share ownership per company symbol.
type Account struct {
	AccountID AccountID
	Balance   currency.Units
	Shares    map[string]uint64
}

// newAccount constructs a new account value for use.
func newAccount(accountID AccountID, balance currency.Units) Account {
	return Account{
		AccountID: accountID,
		Balance:   balance,
	}
}

// clone returns a deep copy of the account so staged mutations never leak
// into the committed view.
func (a Account) clone() Account {
	cpy := a
	if a.Shares != nil {
		cpy.Shares = make(map[string]uint64, len(a.Shares))
		for company, count := range a.Shares {
			cpy.Shares[company] = count
		}
	}
	return cpy
}

// =============================================================================

// AccountID represents the address of an account on the ledger. It is derived
// from the public key of the owning wallet.
type AccountID string

// ToAccountID converts a hex-encoded string to an account id and validates
// the hex-encoded string is formatted correctly.
func ToAccountID(hex string) (AccountID, error) {
	a := AccountID(hex)
	if !a.IsAccountID() {
		return "", errors.New("invalid account format")
	}

	return a, nil
}

// PublicKeyToAccountID converts the public key to an account id value.
func PublicKeyToAccountID(pk ecdsa.PublicKey) AccountID {
	return AccountID(crypto.PubkeyToAddress(pk).String())
}

// TreasuryAccountID derives the deterministic account that holds the proceeds
// of share purchases for the specified company. Using a derived address keeps
// every transaction recipient a well-formed account id.
func TreasuryAccountID(company string) AccountID {
	hash := sha256.Sum256([]byte("treasury:" + company))
	return AccountID(common.BytesToAddress(hash[:20]).String())
}

// IsAccountID verifies whether the underlying data represents a valid
// hex-encoded account.
func (a AccountID) IsAccountID() bool {
	const addressLength = 20

	if has0xPrefix(a) {
		a = a[2:]
	}

	return len(a) == 2*addressLength && isHex(a)
}

// =============================================================================

// has0xPrefix validates the account starts with a 0x.
func has0xPrefix(a AccountID) bool {
	return len(a) >= 2 && a[0] == '0' && (a[1] == 'x' || a[1] == 'X')
}

// isHex validates whether each byte is a valid hexadecimal character.
func isHex(a AccountID) bool {
	if len(a)%2 != 0 {
		return false
	}

	for _, c := range []byte(a) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
