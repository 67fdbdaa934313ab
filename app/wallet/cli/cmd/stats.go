package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the node statistics",
	Run:   statsRun,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func statsRun(cmd *cobra.Command, args []string) {
	resp, err := http.Get(fmt.Sprintf("%s/v1/stats", url))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var stats struct {
		TotalBlocks           uint64 `json:"total_blocks"`
		TotalTransactions     uint64 `json:"total_transactions"`
		CurrentDifficulty     uint16 `json:"current_difficulty"`
		TotalDataConvertedMMB uint64 `json:"total_data_converted_mmb"`
		MempoolCount          int    `json:"mempool_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		log.Fatal(err)
	}

	color.Cyan("blocks:         %d", stats.TotalBlocks)
	color.Cyan("transactions:   %d", stats.TotalTransactions)
	color.Cyan("difficulty:     %d", stats.CurrentDifficulty)
	color.Cyan("data converted: %d mMB", stats.TotalDataConvertedMMB)
	color.Cyan("mempool:        %d", stats.MempoolCount)
}
