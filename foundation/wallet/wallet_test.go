package wallet_test

import (
	"errors"
	"testing"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/signature"
	"github.com/datacoinlabs/datacoin/foundation/wallet"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func TestWallet(t *testing.T) {
	root := t.TempDir()

	t.Log("Given the need to manage named keys and sign transactions.")
	{
		t.Logf("\tTest 0:\tWhen creating a wallet and signing with it.")
		{
			w, err := wallet.New(root)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould construct the wallet: %v", failed, err)
			}

			accountID, err := w.Create("miner1", "secret")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould create the account: %v", failed, err)
			}
			if !accountID.IsAccountID() {
				t.Fatalf("\t%s\tTest 0:\tShould derive a well formed address, got %q.", failed, accountID)
			}
			t.Logf("\t%s\tTest 0:\tShould create the account.", success)

			if _, err := w.Create("miner1", "secret"); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould reject a duplicate name.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a duplicate name.", success)

			got, err := w.Lookup("miner1")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould look up the account: %v", failed, err)
			}
			if got != accountID {
				t.Fatalf("\t%s\tTest 0:\tShould look up the same address, got %s, exp %s.", failed, got, accountID)
			}
			t.Logf("\t%s\tTest 0:\tShould look up the same address.", success)

			tx, err := database.NewTx(1, database.TxTransfer, accountID, database.AccountID("0x0000000000000000000000000000000000000001"), 1_000)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould construct the transaction: %v", failed, err)
			}

			signedTx, err := w.SignTx("miner1", "secret", tx)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould sign the transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould sign the transaction.", success)

			// The signature must recover to the wallet's own address.
			addr, err := signature.FromAddress(signedTx.Tx, signedTx.V, signedTx.R, signedTx.S)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould recover an address: %v", failed, err)
			}
			if database.AccountID(addr) != accountID {
				t.Fatalf("\t%s\tTest 0:\tShould recover the wallet address, got %s, exp %s.", failed, addr, accountID)
			}
			t.Logf("\t%s\tTest 0:\tShould recover the wallet address.", success)

			if _, err := w.SignTx("miner1", "wrong", tx); err == nil {
				t.Fatalf("\t%s\tTest 0:\tShould reject a wrong passphrase.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould reject a wrong passphrase.", success)
		}

		t.Logf("\tTest 1:\tWhen reopening the wallet directory.")
		{
			w, err := wallet.New(root)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould reopen the wallet: %v", failed, err)
			}

			accountID, err := w.Lookup("miner1")
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould keep the name index: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould keep the name index.", success)

			if name := w.Name(accountID); name != "miner1" {
				t.Fatalf("\t%s\tTest 1:\tShould map the address back to its name, got %q.", failed, name)
			}
			t.Logf("\t%s\tTest 1:\tShould map the address back to its name.", success)

			if _, err := w.Lookup("nobody"); !errors.Is(err, wallet.ErrNotFound) {
				t.Fatalf("\t%s\tTest 1:\tShould get ErrNotFound for unknown names, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get ErrNotFound for unknown names.", success)
		}
	}
}
