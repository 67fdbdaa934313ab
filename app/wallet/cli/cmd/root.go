// Package cmd contains the wallet application commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/genesis"
	"github.com/datacoinlabs/datacoin/foundation/wallet"
	"github.com/spf13/cobra"
)

var (
	walletPath string
	name       string
	passphrase string
	url        string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&walletPath, "wallet-path", "p", "zblock/wallet", "Path to the wallet directory.")
	rootCmd.PersistentFlags().StringVarP(&name, "name", "n", "", "Name of the wallet to use.")
	rootCmd.PersistentFlags().StringVarP(&passphrase, "passphrase", "s", "", "Passphrase protecting the wallet key.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage keys and transact on the ledger",
}

// Execute runs the selected command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openWallet opens the keystore at the configured path.
func openWallet() (*wallet.Wallet, error) {
	return wallet.New(walletPath)
}

// nodeGenesis pulls the genesis document from the node so transactions
// carry the right chain id and prices.
func nodeGenesis() (genesis.Genesis, error) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/genesis", url))
	if err != nil {
		return genesis.Genesis{}, err
	}
	defer resp.Body.Close()

	var gen genesis.Genesis
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return genesis.Genesis{}, err
	}

	return gen, nil
}
