package cmd

import (
	"os"

	"github.com/pyneda/openeoct/db"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	resultsBackendID string
	resultsState     string
	resultsPageSize  int
	resultsPage      int
	resultsFormat    string
)

var resultsCmd = &cobra.Command{
	Use:   "results [result-id]",
	Short: "List stored validation reports or show one of them",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			stored, err := db.Connection().GetValidationResult(args[0])
			if err != nil {
				log.Error().Err(err).Str("id", args[0]).Msg("Failed to load result")
				os.Exit(1)
			}
			report, err := stored.Decode()
			if err != nil {
				log.Error().Err(err).Msg("Failed to decode result")
				os.Exit(1)
			}
			printSingle(*report, resultsFormat)
			return
		}
		results, count, err := db.Connection().ListValidationResults(db.ValidationResultFilter{
			BackendID:  resultsBackendID,
			State:      resultsState,
			Pagination: db.Pagination{Page: resultsPage, PageSize: resultsPageSize},
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to list results")
			os.Exit(1)
		}
		printFormatted(results, resultsFormat)
		log.Info().Int64("total", count).Int("shown", len(results)).Msg("Stored results")
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)

	resultsCmd.Flags().StringVar(&resultsBackendID, "backend", "", "Filter by backend id")
	resultsCmd.Flags().StringVar(&resultsState, "state", "", "Filter by state: Valid, Invalid")
	resultsCmd.Flags().IntVarP(&resultsPageSize, "page-size", "s", 25, "Number of results to show")
	resultsCmd.Flags().IntVarP(&resultsPage, "page", "p", 1, "Page number")
	resultsCmd.Flags().StringVarP(&resultsFormat, "format", "f", "table", "Output format: text, pretty, table, json, yaml")
}
