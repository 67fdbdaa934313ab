package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	sourceID   string
	sizeMMB    uint64
	dataPoints uint64
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert collected data into coins",
	Run:   convertRun,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVarP(&sourceID, "source", "d", "", "Registered data source id.")
	convertCmd.Flags().Uint64VarP(&sizeMMB, "size", "m", 0, "Data size in milli-megabytes.")
	convertCmd.Flags().Uint64VarP(&dataPoints, "points", "o", 0, "Number of data points collected.")
}

func convertRun(cmd *cobra.Command, args []string) {
	w, err := openWallet()
	if err != nil {
		log.Fatal(err)
	}

	accountID, err := w.Lookup(name)
	if err != nil {
		log.Fatal(err)
	}

	req := struct {
		Account    string `json:"account"`
		SourceID   string `json:"source_id,omitempty"`
		SizeMMB    uint64 `json:"size_mmb"`
		DataPoints uint64 `json:"data_points,omitempty"`
	}{
		Account:    string(accountID),
		SourceID:   sourceID,
		SizeMMB:    sizeMMB,
		DataPoints: dataPoints,
	}

	data, err := json.Marshal(req)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/data/convert", url), "application/json", bytes.NewBuffer(data))
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
