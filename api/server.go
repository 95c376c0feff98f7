package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/contrib/fiberzerolog"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	"github.com/pyneda/openeoct/db"
	_ "github.com/pyneda/openeoct/docs"
	"github.com/pyneda/openeoct/internal/config"
	"github.com/pyneda/openeoct/pkg/capabilities"
	"github.com/pyneda/openeoct/pkg/contract"
	"github.com/pyneda/openeoct/pkg/http_utils"
	"github.com/pyneda/openeoct/pkg/registry"
	"github.com/pyneda/openeoct/pkg/spec"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Server holds what the handlers share.
type Server struct {
	Registry     *registry.Registry
	Store        *spec.Store
	Capabilities *capabilities.Client
	// DB persists registry changes and reports, nil keeps everything in memory.
	DB          *db.DatabaseConnection
	HttpClient  *http.Client
	Concurrency int
	Timeout     time.Duration
	AuthPath    string
	Logger      zerolog.Logger
}

// NewServer builds a server from the viper configuration and loads the stored registry.
func NewServer(conn *db.DatabaseConnection) (*Server, error) {
	s := &Server{
		Registry:     registry.New(),
		Store:        spec.NewStore(viper.GetString("spec.directory"), spec.WithPattern(viper.GetString("spec.pattern"))),
		Capabilities: capabilities.NewClient(config.Seconds("capabilities.timeout")),
		DB:           conn,
		HttpClient:   http_utils.CreateHttpClient(config.Seconds("runner.timeout")),
		Concurrency:  viper.GetInt("runner.concurrency"),
		Timeout:      config.Seconds("runner.timeout"),
		AuthPath:     viper.GetString("runner.auth_path"),
		Logger:       log.With().Str("type", "api").Logger(),
	}
	if conn != nil {
		reg, err := conn.LoadRegistry()
		if err != nil {
			return nil, fmt.Errorf("loading registry: %w", err)
		}
		reg.SetStore(conn)
		s.Registry = reg
	}
	return s, nil
}

// App wires the routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		ServerHeader: "openeoct",
		AppName:      "openeoct API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(NewErrorResponse(fe.Message))
			}
			return c.Status(fiber.StatusInternalServerError).JSON(NewErrorResponse(err.Error()))
		},
	})

	origins := viper.GetStringSlice("api.cors.origins")
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(origins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders: "Content-Disposition",
	}))
	app.Use(fiberzerolog.New(fiberzerolog.Config{
		Logger: &s.Logger,
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("API Running")
	})
	if viper.GetBool("api.docs.enabled") {
		app.Get(fmt.Sprintf("%v/*", viper.GetString("api.docs.path")), swagger.HandlerDefault)
	}

	api := app.Group("/api/v1", BasicAuthProtected())
	api.Get("/backends", s.ListBackends)
	api.Post("/backends", s.CreateBackend)
	api.Get("/backends/:id", s.GetBackend)
	api.Delete("/backends/:id", s.DeleteBackend)
	api.Post("/backends/:id/config", s.MergeConfig)
	api.Get("/backends/:id/config", s.ExportConfig)
	api.Get("/backends/:id/endpoints", s.ListEndpoints)
	api.Post("/backends/:id/endpoints/discover", s.DiscoverEndpoints)
	api.Post("/backends/:id/validate", s.ValidateBackend)
	api.Get("/backends/:id/results", s.ListResults)
	api.Get("/results/:id", s.GetResult)
	return app
}

// @title openeoct API
// @version 0.1
// @description Registers openEO backends and validates their responses against the openEO API contract.
// @securityDefinitions.basic BasicAuth

// StartAPI serves the REST API on api.listen.host and api.listen.port.
func StartAPI() error {
	apiLogger := log.With().Str("type", "api").Logger()
	apiLogger.Info().Msg("Initializing...")

	s, err := NewServer(db.Connection())
	if err != nil {
		return err
	}
	listenAddress := fmt.Sprintf("%v:%v", viper.Get("api.listen.host"), viper.Get("api.listen.port"))
	apiLogger.Info().Str("address", listenAddress).Msg("Initialized everything. Starting the API...")
	return s.App().Listen(listenAddress)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var dup *registry.DuplicateEndpointError
	var terr *capabilities.TransportError
	var serr *capabilities.StatusError
	switch {
	case errors.Is(err, registry.ErrPersistence):
		return fiber.StatusInternalServerError
	case errors.Is(err, registry.ErrBackendNotFound), errors.Is(err, registry.ErrEndpointNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, registry.ErrBackendExists), errors.Is(err, registry.ErrAmbiguousIdentifier), errors.As(err, &dup):
		return fiber.StatusConflict
	case errors.Is(err, registry.ErrInvalidRecord), errors.Is(err, contract.ErrInvalidVersionFormat), errors.Is(err, contract.ErrNoVersion):
		return fiber.StatusBadRequest
	case errors.Is(err, spec.ErrSpecNotFound):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &terr), errors.As(err, &serr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error, msg string) error {
	return c.Status(statusFor(err)).JSON(NewErrorResponse(msg, err.Error()))
}
