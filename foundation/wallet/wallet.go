// Package wallet manages named key pairs inside an encrypted keystore and
// signs transactions. Private key material never leaves this package.
package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
)

// ErrNotFound is returned when a wallet name is not registered.
var ErrNotFound = errors.New("wallet not found")

// Wallet maintains an encrypted keystore of accounts with a local name
// index on top. Names are a local convenience, the ledger only ever sees
// addresses.
type Wallet struct {
	mu    sync.RWMutex
	root  string
	ks    *keystore.KeyStore
	names map[string]database.AccountID
}

// New constructs a wallet rooted at the specified directory, loading any
// existing name index.
func New(root string) (*Wallet, error) {
	ks := keystore.NewKeyStore(filepath.Join(root, "keys"), keystore.StandardScryptN, keystore.StandardScryptP)

	w := Wallet{
		root:  root,
		ks:    ks,
		names: make(map[string]database.AccountID),
	}

	if err := w.loadNames(); err != nil {
		return nil, err
	}

	return &w, nil
}

// Create generates a fresh key pair encrypted under the passphrase and
// returns the derived address. The name must be unused.
func (w *Wallet) Create(name string, passphrase string) (database.AccountID, error) {
	if name == "" {
		return "", errors.New("wallet requires a name")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.names[name]; exists {
		return "", fmt.Errorf("wallet %q already exists", name)
	}

	acct, err := w.ks.NewAccount(passphrase)
	if err != nil {
		return "", err
	}

	accountID := database.AccountID(acct.Address.String())
	w.names[name] = accountID

	if err := w.saveNames(); err != nil {
		return "", err
	}

	return accountID, nil
}

// Lookup returns the address registered under the specified name.
func (w *Wallet) Lookup(name string) (database.AccountID, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	accountID, exists := w.names[name]
	if !exists {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	return accountID, nil
}

// Name returns the local name for the specified address, or the address
// itself when no name is registered.
func (w *Wallet) Name(accountID database.AccountID) string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for name, id := range w.names {
		if id == accountID {
			return name
		}
	}

	return string(accountID)
}

// Copy returns a copy of the name index.
func (w *Wallet) Copy() map[string]database.AccountID {
	w.mu.RLock()
	defer w.mu.RUnlock()

	cpy := make(map[string]database.AccountID, len(w.names))
	for name, accountID := range w.names {
		cpy[name] = accountID
	}

	return cpy
}

// SignTx signs the transaction with the named wallet's private key. The key
// is decrypted for the duration of the call only.
func (w *Wallet) SignTx(name string, passphrase string, tx database.Tx) (database.SignedTx, error) {
	privateKey, err := w.privateKey(name, passphrase)
	if err != nil {
		return database.SignedTx{}, err
	}
	defer zeroKey(privateKey)

	return tx.Sign(privateKey)
}

// privateKey decrypts the named wallet's key from the keystore.
func (w *Wallet) privateKey(name string, passphrase string) (*ecdsa.PrivateKey, error) {
	accountID, err := w.Lookup(name)
	if err != nil {
		return nil, err
	}

	acct, err := w.ks.Find(accounts.Account{Address: common.HexToAddress(string(accountID))})
	if err != nil {
		return nil, fmt.Errorf("%w: no key for %s", ErrNotFound, accountID)
	}

	keyJSON, err := os.ReadFile(acct.URL.Path)
	if err != nil {
		return nil, err
	}

	key, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, err
	}

	return key.PrivateKey, nil
}

// zeroKey wipes the scalar of a decrypted private key.
func zeroKey(privateKey *ecdsa.PrivateKey) {
	b := privateKey.D.Bits()
	for i := range b {
		b[i] = 0
	}
}

// =============================================================================

// loadNames reads the name index from disk. A missing index means a fresh
// wallet.
func (w *Wallet) loadNames() error {
	data, err := os.ReadFile(w.namesPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	return json.Unmarshal(data, &w.names)
}

// saveNames writes the name index atomically. Callers must hold the write
// lock.
func (w *Wallet) saveNames() error {
	data, err := json.MarshalIndent(w.names, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(w.root, 0700); err != nil {
		return err
	}

	tmpPath := w.namesPath() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, w.namesPath()); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return nil
}

// namesPath forms the path to the name index file.
func (w *Wallet) namesPath() string {
	return filepath.Join(w.root, "names.json")
}
