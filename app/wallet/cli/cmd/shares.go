package cmd

import (
	"log"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

var (
	company string
	count   uint64
)

var sharesCmd = &cobra.Command{
	Use:   "shares",
	Short: "Buy corporate shares",
	Run:   sharesRun,
}

func init() {
	rootCmd.AddCommand(sharesCmd)
	sharesCmd.Flags().StringVarP(&company, "company", "c", "", "Company whose shares to buy.")
	sharesCmd.Flags().Uint64VarP(&count, "count", "k", 0, "Number of shares to buy.")
}

func sharesRun(cmd *cobra.Command, args []string) {
	w, err := openWallet()
	if err != nil {
		log.Fatal(err)
	}

	fromID, err := w.Lookup(name)
	if err != nil {
		log.Fatal(err)
	}

	gen, err := nodeGenesis()
	if err != nil {
		log.Fatal(err)
	}

	// Share purchases pay the company treasury the fixed per-share price.
	toID := database.TreasuryAccountID(company)

	tx, err := database.NewTx(gen.ChainID, database.TxSharePurchase, fromID, toID, gen.SharePrice*currency.Units(count))
	if err != nil {
		log.Fatal(err)
	}
	tx.Company = company
	tx.Shares = count

	signedTx, err := w.SignTx(name, passphrase, tx)
	if err != nil {
		log.Fatal(err)
	}

	postTx("/v1/shares/buy", signedTx)
}
