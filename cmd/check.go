package cmd

import (
	"os"

	"github.com/pyneda/openeoct/internal/config"
	"github.com/pyneda/openeoct/pkg/authscan"
	"github.com/pyneda/openeoct/pkg/http_utils"
	"github.com/pyneda/openeoct/pkg/probes"
	"github.com/pyneda/openeoct/pkg/registry"
	"github.com/pyneda/openeoct/pkg/runner"
	"github.com/pyneda/openeoct/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	checkBackendURL string
	checkAPIVersion string
	checkOpenAPI    string
	checkFormat     string
	checkGlobalAuth bool
	checkSkipCORS   bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe error handling, authentication and CORS behavior",
	Long: `Run the compliance probes against a backend:

  - protected GET paths must answer 401 without credentials
  - unknown paths must answer 404 with an openEO error document
  - preflight requests must carry the CORS headers openEO clients need
  - discovery documents must match the contract

Examples:
  openeoct check --backend https://openeo.example.org/api/v1.0.0
  openeoct check --backend https://openeo.example.org --api-version 1.0.0 --format json`,
	Run: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkBackendURL, "backend", "b", "", "Backend root URL")
	checkCmd.Flags().StringVar(&checkAPIVersion, "api-version", "", "openEO API version, guessed from the backend URL when omitted")
	checkCmd.Flags().StringVar(&checkOpenAPI, "openapi", "", "Contract file or URL overriding the stored contracts")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "table", "Output format: text, pretty, table, json, yaml")
	checkCmd.Flags().BoolVar(&checkGlobalAuth, "global-security", false, "Treat operations without security as inheriting the global requirement")
	checkCmd.Flags().BoolVar(&checkSkipCORS, "skip-cors", false, "Skip the CORS probe")
	checkCmd.MarkFlagRequired("backend")
}

func runCheck(cmd *cobra.Command, args []string) {
	logger := log.With().Str("component", "check").Logger()
	ctx, cancel := commandContext()
	defer cancel()

	httpClient := http_utils.CreateHttpClient(config.Seconds("runner.timeout"))
	backend := registry.Backend{ID: "check", URL: checkBackendURL, Version: checkAPIVersion, OpenAPI: checkOpenAPI}
	doc, err := runner.LoadContract(ctx, specStore(), httpClient, backend)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load the openEO API contract")
		os.Exit(1)
	}

	rootURL, err := capabilitiesClient().ResolveURL(ctx, checkBackendURL, checkAPIVersion)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to resolve the backend version")
		os.Exit(1)
	}

	protected := authscan.Scan(doc)
	if checkGlobalAuth {
		protected = authscan.ScanWithGlobal(doc)
	}
	logger.Debug().Strs("paths", protected).Msg("Paths requiring authentication")

	prober := probes.New(httpClient, rootURL)
	var results []probes.Result
	results = append(results, prober.Unauthorized(ctx, protected)...)
	results = append(results, prober.InvalidPath(ctx)...)
	if !checkSkipCORS {
		results = append(results, prober.CORS(ctx, nil)...)
	}
	results = append(results, prober.Responses(ctx, validation.New(doc))...)

	printFormatted(results, checkFormat)
	if probes.Failed(results) {
		os.Exit(1)
	}
}
