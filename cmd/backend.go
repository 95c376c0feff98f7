package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pyneda/openeoct/db"
	"github.com/pyneda/openeoct/pkg/registry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	backendInput      registry.Backend
	backendFormat     string
	backendExportFmt  string
	backendImportID   string
	backendImportName string
)

var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Manage stored backends",
}

var backendAddCmd = &cobra.Command{
	Use:     "add",
	Short:   "Register a backend",
	Example: `  openeoct backend add --name EODC --url https://openeo.example.org/v1.0 --username user --password '$EODC_PASSWORD'`,
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := db.Connection().LoadRegistry()
		if err != nil {
			log.Error().Err(err).Msg("Failed to load stored backends")
			os.Exit(1)
		}
		backend, err := reg.CreateBackend(backendInput)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create backend")
			os.Exit(1)
		}
		if err := db.Connection().SaveBackend(reg, backend.ID); err != nil {
			log.Error().Err(err).Msg("Failed to store backend")
			os.Exit(1)
		}
		printSingle(backend, backendFormat)
	},
}

var backendListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored backends",
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := db.Connection().LoadRegistry()
		if err != nil {
			log.Error().Err(err).Msg("Failed to load stored backends")
			os.Exit(1)
		}
		printFormatted(reg.Backends(), backendFormat)
	},
}

var backendShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a stored backend with its endpoints and variables",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := storedRegistry(args[0])
		if err != nil {
			log.Error().Err(err).Str("id", args[0]).Msg("Failed to load backend")
			os.Exit(1)
		}
		snapshot, err := reg.Snapshot(args[0])
		if err != nil {
			log.Error().Err(err).Str("id", args[0]).Msg("Failed to read backend")
			os.Exit(1)
		}
		printSingle(snapshot.Backend, backendFormat)
		if len(snapshot.Endpoints) > 0 {
			printFormatted(snapshot.Endpoints, backendFormat)
		}
		if len(snapshot.Variables) > 0 {
			printFormatted(snapshot.Variables, backendFormat)
		}
	},
}

var backendDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored backend",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := db.Connection().DeleteBackend(args[0]); err != nil {
			log.Error().Err(err).Str("id", args[0]).Msg("Failed to delete backend")
			os.Exit(1)
		}
		log.Info().Str("id", args[0]).Msg("Backend deleted")
	},
}

var backendImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import configuration files into a backend",
	Long: `Import one or more configuration files. The first file creates the backend
when it does not exist yet, later files are merged into it in order.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := db.Connection().LoadRegistry()
		if err != nil {
			log.Error().Err(err).Msg("Failed to load stored backends")
			os.Exit(1)
		}
		fragments := make([]*registry.Fragment, len(args))
		for i, path := range args {
			if fragments[i], err = readFragment(path); err != nil {
				log.Error().Err(err).Str("file", path).Msg("Failed to read configuration file")
				os.Exit(1)
			}
		}

		id := backendImportID
		if id == "" {
			name := backendImportName
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			id = registry.Backend{Name: name}.Slug()
		}
		if _, err := reg.Backend(id); err == nil {
			err = reg.MergeFragments(id, fragments...)
		} else {
			name := backendImportName
			if name == "" {
				name = id
			}
			_, err = reg.ImportBackend(registry.Backend{ID: id, Name: name}, fragments[0])
			if err == nil && len(fragments) > 1 {
				err = reg.MergeFragments(id, fragments[1:]...)
			}
		}
		if err != nil {
			log.Error().Err(err).Msg("Failed to import configuration")
			os.Exit(1)
		}
		if err := db.Connection().SaveBackend(reg, id); err != nil {
			log.Error().Err(err).Msg("Failed to store backend")
			os.Exit(1)
		}
		endpoints, err := reg.Endpoints(id)
		if err != nil {
			log.Error().Err(err).Str("id", id).Msg("Failed to read imported endpoints")
			os.Exit(1)
		}
		log.Info().Str("id", id).Int("endpoints", len(endpoints)).Msg("Configuration imported")
	},
}

var backendExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a stored backend as a configuration file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reg, err := storedRegistry(args[0])
		if err != nil {
			log.Error().Err(err).Str("id", args[0]).Msg("Failed to load backend")
			os.Exit(1)
		}
		format, err := registry.ParseFormat(backendExportFmt)
		if err != nil {
			log.Error().Err(err).Msg("Invalid export format")
			os.Exit(1)
		}
		fragment, err := reg.ExportFragment(args[0])
		if err != nil {
			log.Error().Err(err).Msg("Failed to export backend")
			os.Exit(1)
		}
		data, err := fragment.Encode(format)
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode configuration")
			os.Exit(1)
		}
		fmt.Print(string(data))
	},
}

func init() {
	rootCmd.AddCommand(backendCmd)
	backendCmd.AddCommand(backendAddCmd, backendListCmd, backendShowCmd, backendDeleteCmd, backendImportCmd, backendExportCmd)

	backendCmd.PersistentFlags().StringVarP(&backendFormat, "format", "f", "table", "Output format: text, pretty, table, json, yaml")

	backendAddCmd.Flags().StringVar(&backendInput.ID, "id", "", "Backend id, derived from the name when omitted")
	backendAddCmd.Flags().StringVar(&backendInput.Name, "name", "", "Backend name")
	backendAddCmd.Flags().StringVar(&backendInput.URL, "url", "", "Backend root URL")
	backendAddCmd.Flags().StringVar(&backendInput.OpenAPI, "openapi", "", "Contract file or URL")
	backendAddCmd.Flags().StringVar(&backendInput.Version, "api-version", "", "openEO API version")
	backendAddCmd.Flags().StringVar(&backendInput.Output, "output", "", "File the JSON report is written to")
	backendAddCmd.Flags().StringVar(&backendInput.AuthURL, "auth-url", "", "Basic authentication path")
	backendAddCmd.Flags().StringVar(&backendInput.Username, "username", "", "Username, $NAME reads the environment")
	backendAddCmd.Flags().StringVar(&backendInput.Password, "password", "", "Password, $NAME reads the environment")
	backendAddCmd.MarkFlagRequired("url")

	backendImportCmd.Flags().StringVar(&backendImportID, "id", "", "Backend id, derived from the name when omitted")
	backendImportCmd.Flags().StringVar(&backendImportName, "name", "", "Backend name, defaults to the first file name")
	backendExportCmd.Flags().StringVar(&backendExportFmt, "as", "toml", "Configuration format: toml, json, yaml")
}
