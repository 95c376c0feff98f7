package cmd

import (
	"os"

	"github.com/pyneda/openeoct/db"
	"github.com/pyneda/openeoct/lib"
	"github.com/pyneda/openeoct/pkg/registry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	endpointsAll    bool
	endpointsFormat string
)

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "Manage the endpoints of a stored backend",
}

var endpointsDiscoverCmd = &cobra.Command{
	Use:   "discover <backend-id>",
	Short: "Add the endpoints advertised by the backend capabilities",
	Long: `Fetch the backend capabilities and register every advertised endpoint that
is not registered yet. By default only non templated GET endpoints are added,
--all adds every method and templated paths.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		id := args[0]
		reg, err := storedRegistry(id)
		if err != nil {
			log.Error().Err(err).Str("id", id).Msg("Failed to load backend")
			os.Exit(1)
		}
		backend, err := reg.Backend(id)
		if err != nil {
			log.Error().Err(err).Str("id", id).Msg("Failed to read backend")
			os.Exit(1)
		}

		client := capabilitiesClient()
		rootURL, err := client.ResolveURL(ctx, lib.ExpandValue(backend.URL), backend.Version)
		if err != nil {
			log.Error().Err(err).Msg("Failed to resolve the backend version")
			os.Exit(1)
		}
		caps, err := client.Fetch(ctx, rootURL)
		if err != nil {
			log.Error().Err(err).Str("url", rootURL).Msg("Failed to fetch capabilities")
			os.Exit(1)
		}
		opts := registry.DefaultReconcileOptions()
		if endpointsAll {
			opts = registry.AllReconcileOptions()
		}
		added, err := reg.Discover(id, caps, opts)
		if err != nil {
			log.Error().Err(err).Msg("Failed to discover endpoints")
			os.Exit(1)
		}
		if err := db.Connection().SaveBackend(reg, id); err != nil {
			log.Error().Err(err).Msg("Failed to store backend")
			os.Exit(1)
		}
		log.Info().Int("added", len(added)).Msg("Endpoints discovered")
		if len(added) > 0 {
			printFormatted(added, endpointsFormat)
		}
	},
}

var endpointsListCmd = &cobra.Command{
	Use:   "list <backend-id>",
	Short: "List the endpoints of a stored backend",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := storedRegistry(args[0])
		if err != nil {
			log.Error().Err(err).Str("id", args[0]).Msg("Failed to load backend")
			os.Exit(1)
		}
		endpoints, err := reg.Endpoints(args[0])
		if err != nil {
			log.Error().Err(err).Str("id", args[0]).Msg("Failed to read endpoints")
			os.Exit(1)
		}
		printFormatted(endpoints, endpointsFormat)
	},
}

func init() {
	rootCmd.AddCommand(endpointsCmd)
	endpointsCmd.AddCommand(endpointsDiscoverCmd, endpointsListCmd)

	endpointsCmd.PersistentFlags().StringVarP(&endpointsFormat, "format", "f", "table", "Output format: text, pretty, table, json, yaml")
	endpointsDiscoverCmd.Flags().BoolVar(&endpointsAll, "all", false, "Add every method and templated paths")
}
