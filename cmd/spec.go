package cmd

import (
	"fmt"
	"os"

	"github.com/pyneda/openeoct/pkg/authscan"
	"github.com/pyneda/openeoct/pkg/contract"
	"github.com/pyneda/openeoct/pkg/spec"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	specAPIVersion string
	specOpenAPI    string
	specGlobalAuth bool
)

var specCmd = &cobra.Command{
	Use:   "spec",
	Short: "Inspect openEO API contracts",
}

var specPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List the paths of a contract",
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range loadSpec().Paths() {
			fmt.Println(p)
		}
	},
}

var specAuthPathsCmd = &cobra.Command{
	Use:   "auth-paths",
	Short: "List the non templated GET paths that require authentication",
	Run: func(cmd *cobra.Command, args []string) {
		doc := loadSpec()
		paths := authscan.Scan(doc)
		if specGlobalAuth {
			paths = authscan.ScanWithGlobal(doc)
		}
		for _, p := range paths {
			fmt.Println(p)
		}
	},
}

var specVersionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the contract versions available in spec.directory",
	Run: func(cmd *cobra.Command, args []string) {
		versions, err := specStore().Versions()
		if err != nil {
			log.Error().Err(err).Msg("Failed to list contract versions")
			os.Exit(1)
		}
		for _, v := range versions {
			fmt.Println(v.String())
		}
	},
}

var specCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the structure of a contract",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := commandContext()
		defer cancel()
		if err := loadSpec().Check(ctx); err != nil {
			log.Error().Err(err).Msg("Contract is not a valid OpenAPI document")
			os.Exit(1)
		}
		fmt.Println("Contract is valid")
	},
}

func init() {
	rootCmd.AddCommand(specCmd)
	specCmd.AddCommand(specPathsCmd, specAuthPathsCmd, specVersionsCmd, specCheckCmd)

	specCmd.PersistentFlags().StringVar(&specAPIVersion, "api-version", "", "openEO API version")
	specCmd.PersistentFlags().StringVar(&specOpenAPI, "openapi", "", "Contract file or URL")
	specAuthPathsCmd.Flags().BoolVar(&specGlobalAuth, "global-security", false, "Treat operations without security as inheriting the global requirement")
}

func loadSpec() *spec.Document {
	ctx, cancel := commandContext()
	defer cancel()
	if specOpenAPI != "" {
		doc, err := spec.LoadSource(ctx, nil, specOpenAPI)
		if err != nil {
			log.Error().Err(err).Str("source", specOpenAPI).Msg("Failed to load contract")
			os.Exit(1)
		}
		return doc
	}
	version, err := contract.ParseVersion(specAPIVersion)
	if err != nil {
		log.Error().Err(err).Msg("A valid --api-version or --openapi is required")
		os.Exit(1)
	}
	doc, err := specStore().Load(version)
	if err != nil {
		log.Error().Err(err).Str("version", specAPIVersion).Msg("Failed to load contract")
		os.Exit(1)
	}
	return doc
}
