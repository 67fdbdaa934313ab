package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/datacoinlabs/datacoin/foundation/blockchain/currency"
	"github.com/datacoinlabs/datacoin/foundation/blockchain/database"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send coins to another account",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account to send to.")
	sendCmd.Flags().StringVarP(&amount, "value", "v", "0", "Decimal coin amount to send.")
}

func sendRun(cmd *cobra.Command, args []string) {
	w, err := openWallet()
	if err != nil {
		log.Fatal(err)
	}

	fromID, err := w.Lookup(name)
	if err != nil {
		log.Fatal(err)
	}

	toID, err := database.ToAccountID(to)
	if err != nil {
		log.Fatal(err)
	}

	value, err := currency.Parse(amount)
	if err != nil {
		log.Fatal(err)
	}

	gen, err := nodeGenesis()
	if err != nil {
		log.Fatal(err)
	}

	tx, err := database.NewTx(gen.ChainID, database.TxTransfer, fromID, toID, value)
	if err != nil {
		log.Fatal(err)
	}

	signedTx, err := w.SignTx(name, passphrase, tx)
	if err != nil {
		log.Fatal(err)
	}

	postTx("/v1/tx/submit", signedTx)
}

// postTx submits a signed transaction to the node and prints the response.
func postTx(path string, signedTx database.SignedTx) {
	data, err := json.Marshal(signedTx)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s%s", url, path), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal(err)
	}

	if resp.StatusCode != http.StatusOK {
		color.Red("rejected: %s", body)
		return
	}

	color.Green("%s", body)
}
