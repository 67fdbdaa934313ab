package cmd

import (
	"log"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new named key pair",
	Run:   createRun,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func createRun(cmd *cobra.Command, args []string) {
	w, err := openWallet()
	if err != nil {
		log.Fatal(err)
	}

	accountID, err := w.Create(name, passphrase)
	if err != nil {
		log.Fatal(err)
	}

	color.Green("wallet %q created", name)
	color.Cyan("account: %s", accountID)
}
