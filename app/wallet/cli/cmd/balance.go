package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type balanceView struct {
	Account   string `json:"account"`
	Committed string `json:"committed"`
	Pending   string `json:"pending"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the balance of the named wallet",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	w, err := openWallet()
	if err != nil {
		log.Fatal(err)
	}

	accountID, err := w.Lookup(name)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Get(fmt.Sprintf("%s/v1/balance/%s", url, accountID))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var view balanceView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		log.Fatal(err)
	}

	color.Cyan("account:   %s", view.Account)
	color.Green("committed: %s", view.Committed)
	color.Yellow("pending:   %s", view.Pending)
}
