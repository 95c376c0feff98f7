package cmd

import (
	"os"
	"path/filepath"

	"github.com/pyneda/openeoct/db"
	"github.com/pyneda/openeoct/internal/config"
	"github.com/pyneda/openeoct/lib"
	"github.com/pyneda/openeoct/pkg/http_utils"
	"github.com/pyneda/openeoct/pkg/registry"
	"github.com/pyneda/openeoct/pkg/runner"
	"github.com/pyneda/openeoct/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	validateBackendURL  string
	validateBackendID   string
	validateAPIVersion  string
	validateOpenAPI     string
	validateConfigFile  string
	validateFormat      string
	validateOutput      string
	validateSave        bool
	validateAllMethods  bool
	validateAssertFmt   bool
	validateConcurrency int
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate backend responses against the openEO API contract",
	Long: `Request the endpoints of a backend and validate their responses.

Endpoints come from a stored backend (--id), a configuration file (--file) or,
by default, from the GET endpoints advertised in the backend capabilities.

Examples:
  # Validate the GET endpoints listed by the capabilities
  openeoct validate --backend https://openeo.example.org/api/v1.0.0

  # Validate with a configuration file and store the report
  openeoct validate --backend https://openeo.example.org --api-version 1.0.0 --file eodc.toml --save

  # Validate a stored backend
  openeoct validate --id eodc --format json`,
	Run: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVarP(&validateBackendURL, "backend", "b", "", "Backend root URL")
	validateCmd.Flags().StringVar(&validateBackendID, "id", "", "Stored backend id")
	validateCmd.Flags().StringVar(&validateAPIVersion, "api-version", "", "openEO API version, guessed from the backend URL when omitted")
	validateCmd.Flags().StringVar(&validateOpenAPI, "openapi", "", "Contract file or URL overriding the stored contracts")
	validateCmd.Flags().StringVar(&validateConfigFile, "file", "", "Backend configuration file (toml, json or yaml)")
	validateCmd.Flags().StringVarP(&validateFormat, "format", "f", "pretty", "Output format: text, pretty, table, json, yaml")
	validateCmd.Flags().StringVarP(&validateOutput, "output", "o", "", "Also write the JSON report to this file")
	validateCmd.Flags().BoolVar(&validateSave, "save", false, "Store the report in the database")
	validateCmd.Flags().BoolVar(&validateAllMethods, "all", false, "Discover every method and templated paths")
	validateCmd.Flags().BoolVar(&validateAssertFmt, "assert-format", false, "Fail on string format violations")
	validateCmd.Flags().IntVar(&validateConcurrency, "concurrency", 0, "Groups validated in parallel (default runner.concurrency)")
}

func runValidate(cmd *cobra.Command, args []string) {
	logger := log.With().Str("component", "validate").Logger()
	ctx, cancel := commandContext()
	defer cancel()

	if validateBackendURL == "" && validateBackendID == "" {
		logger.Error().Msg("Either --backend or --id is required")
		os.Exit(1)
	}

	var (
		reg       *registry.Registry
		backendID string
		bodyDir   string
		err       error
	)
	if validateBackendID != "" {
		reg, err = storedRegistry(validateBackendID)
		if err != nil {
			logger.Error().Err(err).Str("id", validateBackendID).Msg("Failed to load stored backend")
			os.Exit(1)
		}
		backendID = validateBackendID
	} else {
		reg = registry.New()
		backend := registry.Backend{Name: validateBackendURL, URL: validateBackendURL, Version: validateAPIVersion, OpenAPI: validateOpenAPI}
		if validateConfigFile != "" {
			fragment, err := readFragment(validateConfigFile)
			if err != nil {
				logger.Error().Err(err).Str("file", validateConfigFile).Msg("Failed to read configuration file")
				os.Exit(1)
			}
			backend, err = reg.ImportBackend(backend, fragment)
			if err != nil {
				logger.Error().Err(err).Msg("Failed to import configuration")
				os.Exit(1)
			}
			bodyDir = filepath.Dir(validateConfigFile)
		} else {
			if backend, err = reg.CreateBackend(backend); err != nil {
				logger.Error().Err(err).Msg("Invalid backend")
				os.Exit(1)
			}
		}
		backendID = backend.ID
	}

	snapshot, err := reg.Snapshot(backendID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read backend")
		os.Exit(1)
	}
	backend := snapshot.Backend
	if validateAPIVersion != "" {
		backend.Version = validateAPIVersion
	}
	if validateOpenAPI != "" {
		backend.OpenAPI = validateOpenAPI
	}

	if len(snapshot.Endpoints) == 0 {
		client := capabilitiesClient()
		rootURL, err := client.ResolveURL(ctx, lib.ExpandValue(backend.URL), backend.Version)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to resolve the backend version")
			os.Exit(1)
		}
		caps, err := client.Fetch(ctx, rootURL)
		if err != nil {
			logger.Error().Err(err).Str("url", rootURL).Msg("Failed to fetch capabilities")
			os.Exit(1)
		}
		opts := registry.DefaultReconcileOptions()
		if validateAllMethods {
			opts = registry.AllReconcileOptions()
		}
		added, err := reg.Discover(backendID, caps, opts)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to discover endpoints")
			os.Exit(1)
		}
		logger.Info().Int("endpoints", len(added)).Msg("Discovered endpoints from capabilities")
		if snapshot.Endpoints, err = reg.Endpoints(backendID); err != nil {
			logger.Error().Err(err).Msg("Failed to read discovered endpoints")
			os.Exit(1)
		}
	}

	httpClient := http_utils.CreateHttpClient(config.Seconds("runner.timeout"))
	doc, err := runner.LoadContract(ctx, specStore(), httpClient, backend)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load the openEO API contract")
		os.Exit(1)
	}

	concurrency := validateConcurrency
	if concurrency <= 0 {
		concurrency = viper.GetInt("runner.concurrency")
	}
	report, err := runner.Run(ctx, runner.Input{
		Backend:     backend,
		Endpoints:   snapshot.Endpoints,
		Variables:   snapshot.Variables,
		Validator:   validation.New(doc, validation.WithFormatAssertion(validateAssertFmt)),
		HttpClient:  httpClient,
		Concurrency: concurrency,
		Timeout:     config.Seconds("runner.timeout"),
		AuthPath:    viper.GetString("runner.auth_path"),
		BodyDir:     bodyDir,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Validation run failed")
		os.Exit(1)
	}

	output := validateOutput
	if output == "" {
		output = lib.ExpandValue(backend.Output)
	}
	if output != "" {
		formatted, err := lib.FormatSingleOutput(*report, lib.JSON)
		if err == nil {
			err = os.WriteFile(output, []byte(formatted), 0644)
		}
		if err != nil {
			logger.Error().Err(err).Str("file", output).Msg("Failed to write report")
		} else {
			logger.Info().Str("file", output).Msg("Report written")
		}
	}
	if validateSave {
		if _, err := db.Connection().SaveReport(report); err != nil {
			logger.Error().Err(err).Msg("Failed to store report")
		}
	}

	if validateFormat == "table" {
		printFormatted(report.Results(), validateFormat)
	} else {
		printSingle(*report, validateFormat)
	}
	if report.State != runner.StateValid {
		os.Exit(1)
	}
}
