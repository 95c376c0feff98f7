package cmd

import (
	"os"

	"github.com/pyneda/openeoct/api"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Serve the REST API",
	Run: func(cmd *cobra.Command, args []string) {
		if err := api.StartAPI(); err != nil {
			log.Error().Err(err).Msg("API stopped")
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().String("host", "", "Listen host (default api.listen.host)")
	apiCmd.Flags().Int("port", 8013, "Listen port (default api.listen.port)")
	viper.BindPFlag("api.listen.host", apiCmd.Flags().Lookup("host"))
	viper.BindPFlag("api.listen.port", apiCmd.Flags().Lookup("port"))
}
