package api

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/pyneda/openeoct/db"
	"github.com/pyneda/openeoct/lib"
	"github.com/pyneda/openeoct/pkg/registry"
	"github.com/pyneda/openeoct/pkg/runner"
	"github.com/pyneda/openeoct/pkg/validation"
	"gorm.io/gorm"
)

// ListBackends lists the registered backends.
// @Summary List backends
// @Description Lists the registered backends
// @Tags Backends
// @Produce json
// @Success 200 {array} registry.Backend
// @Security BasicAuth
// @Router /api/v1/backends [get]
func (s *Server) ListBackends(c *fiber.Ctx) error {
	return c.JSON(s.Registry.Backends())
}

// CreateBackend registers a backend.
// @Summary Create backend
// @Description Registers a backend, the id is derived from the name when empty
// @Tags Backends
// @Accept json
// @Produce json
// @Param input body CreateBackendInput true "Backend to register"
// @Success 201 {object} registry.Backend
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BasicAuth
// @Router /api/v1/backends [post]
func (s *Server) CreateBackend(c *fiber.Ctx) error {
	var input CreateBackendInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(NewErrorResponse("Invalid request body"))
	}
	validate := validator.New()
	if err := validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(NewErrorResponse(err.Error()))
	}

	backend, err := s.Registry.CreateBackend(input.backend())
	if err != nil {
		return errorResponse(c, err, "Failed to create backend")
	}
	return c.Status(fiber.StatusCreated).JSON(backend)
}

// GetBackend returns a backend with its endpoints and variables.
// @Summary Get backend
// @Description Returns a backend with its endpoints and variables
// @Tags Backends
// @Produce json
// @Param id path string true "Backend ID"
// @Success 200 {object} BackendDetail
// @Failure 404 {object} ErrorResponse
// @Security BasicAuth
// @Router /api/v1/backends/{id} [get]
func (s *Server) GetBackend(c *fiber.Ctx) error {
	snapshot, err := s.Registry.Snapshot(c.Params("id"))
	if err != nil {
		return errorResponse(c, err, "Backend not found")
	}
	return c.JSON(BackendDetail{
		Backend:   snapshot.Backend,
		Endpoints: snapshot.Endpoints,
		Variables: snapshot.Variables,
	})
}

// DeleteBackend removes a backend with everything stored for it.
// @Summary Delete backend
// @Description Removes a backend with its endpoints, variables and stored results
// @Tags Backends
// @Produce json
// @Param id path string true "Backend ID"
// @Success 200 {object} ActionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BasicAuth
// @Router /api/v1/backends/{id} [delete]
func (s *Server) DeleteBackend(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := s.Registry.DeleteBackend(id); err != nil {
		return errorResponse(c, err, "Failed to delete backend")
	}
	return c.JSON(ActionResponse{Message: "Backend deleted"})
}

// MergeConfig merges a configuration fragment into a backend. The format
// query parameter selects json, yaml or toml, toml being the default.
// @Summary Merge configuration
// @Description Merges a configuration fragment into a backend
// @Tags Configuration
// @Accept plain
// @Produce json
// @Param id path string true "Backend ID"
// @Param format query string false "Fragment format" Enums(toml, json, yaml)
// @Param fragment body string true "Configuration fragment"
// @Success 200 {object} BackendDetail
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BasicAuth
// @Router /api/v1/backends/{id}/config [post]
func (s *Server) MergeConfig(c *fiber.Ctx) error {
	id := c.Params("id")
	format, err := registry.ParseFormat(c.Query("format", string(registry.FormatTOML)))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(NewErrorResponse("Invalid format", err.Error()))
	}
	fragment, err := registry.ParseFragment(c.Body(), format)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(NewErrorResponse("Invalid configuration fragment", err.Error()))
	}
	if err := s.Registry.MergeFragment(id, fragment); err != nil {
		return errorResponse(c, err, "Failed to merge configuration")
	}
	return s.GetBackend(c)
}

// ExportConfig renders a backend as a TOML configuration file.
// @Summary Export configuration
// @Description Renders a backend as a TOML configuration file
// @Tags Configuration
// @Produce application/toml
// @Param id path string true "Backend ID"
// @Success 200 {string} string
// @Failure 404 {object} ErrorResponse
// @Security BasicAuth
// @Router /api/v1/backends/{id}/config [get]
func (s *Server) ExportConfig(c *fiber.Ctx) error {
	data, err := s.Registry.ExportConfig(c.Params("id"))
	if err != nil {
		return errorResponse(c, err, "Failed to export configuration")
	}
	c.Set(fiber.HeaderContentType, "application/toml")
	return c.Send(data)
}

// ListEndpoints lists the endpoints of a backend.
// @Summary List endpoints
// @Description Lists the endpoints registered for a backend
// @Tags Endpoints
// @Produce json
// @Param id path string true "Backend ID"
// @Success 200 {array} registry.EndpointRecord
// @Failure 404 {object} ErrorResponse
// @Security BasicAuth
// @Router /api/v1/backends/{id}/endpoints [get]
func (s *Server) ListEndpoints(c *fiber.Ctx) error {
	endpoints, err := s.Registry.Endpoints(c.Params("id"))
	if err != nil {
		return errorResponse(c, err, "Backend not found")
	}
	return c.JSON(endpoints)
}

// DiscoverEndpoints adds the endpoints advertised by the backend
// capabilities. With all=true every method and templated paths are kept.
// @Summary Discover endpoints
// @Description Adds the endpoints advertised by the backend capabilities
// @Tags Endpoints
// @Produce json
// @Param id path string true "Backend ID"
// @Param all query bool false "Keep every method and templated paths"
// @Success 200 {object} DiscoverResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Security BasicAuth
// @Router /api/v1/backends/{id}/endpoints/discover [post]
func (s *Server) DiscoverEndpoints(c *fiber.Ctx) error {
	id := c.Params("id")
	backend, err := s.Registry.Backend(id)
	if err != nil {
		return errorResponse(c, err, "Backend not found")
	}
	ctx := c.UserContext()
	rootURL, err := s.Capabilities.ResolveURL(ctx, lib.ExpandValue(backend.URL), backend.Version)
	if err != nil {
		return errorResponse(c, err, "Failed to resolve backend version")
	}
	caps, err := s.Capabilities.Fetch(ctx, rootURL)
	if err != nil {
		return errorResponse(c, err, "Failed to fetch capabilities")
	}

	opts := registry.DefaultReconcileOptions()
	if c.QueryBool("all", false) {
		opts = registry.AllReconcileOptions()
	}
	added, err := s.Registry.Discover(id, caps, opts)
	if err != nil {
		return errorResponse(c, err, "Failed to discover endpoints")
	}
	endpoints, err := s.Registry.Endpoints(id)
	if err != nil {
		return errorResponse(c, err, "Backend not found")
	}
	return c.JSON(DiscoverResponse{Added: added, Total: len(endpoints)})
}

// ValidateBackend runs the compliance runner over the registered endpoints.
// @Summary Validate backend
// @Description Validates every registered endpoint against the openEO API contract
// @Tags Validation
// @Produce json
// @Param id path string true "Backend ID"
// @Success 200 {object} runner.Report
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BasicAuth
// @Router /api/v1/backends/{id}/validate [post]
func (s *Server) ValidateBackend(c *fiber.Ctx) error {
	id := c.Params("id")
	snapshot, err := s.Registry.Snapshot(id)
	if err != nil {
		return errorResponse(c, err, "Backend not found")
	}
	ctx := c.UserContext()
	doc, err := runner.LoadContract(ctx, s.Store, s.HttpClient, snapshot.Backend)
	if err != nil {
		return errorResponse(c, err, "Failed to load the openEO API contract")
	}

	report, err := runner.Run(ctx, runner.Input{
		Backend:     snapshot.Backend,
		Endpoints:   snapshot.Endpoints,
		Variables:   snapshot.Variables,
		Validator:   validation.New(doc),
		HttpClient:  s.HttpClient,
		Concurrency: s.Concurrency,
		Timeout:     s.Timeout,
		AuthPath:    s.AuthPath,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(NewErrorResponse("Validation run failed", err.Error()))
	}
	if s.DB != nil {
		if _, err := s.DB.SaveReport(report); err != nil {
			s.Logger.Error().Err(err).Str("backend", id).Msg("Failed to store validation report")
		}
	}
	return c.JSON(report)
}

// ListResults lists stored validation results of a backend.
// @Summary List results
// @Description Lists stored validation results of a backend
// @Tags Validation
// @Produce json
// @Param id path string true "Backend ID"
// @Param state query string false "Filter by run state"
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(25)
// @Success 200 {object} ListResponse[db.ValidationResult]
// @Failure 500 {object} ErrorResponse
// @Failure 501 {object} ErrorResponse
// @Security BasicAuth
// @Router /api/v1/backends/{id}/results [get]
func (s *Server) ListResults(c *fiber.Ctx) error {
	if s.DB == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(NewErrorResponse("Results are not stored"))
	}
	results, count, err := s.DB.ListValidationResults(db.ValidationResultFilter{
		BackendID: c.Params("id"),
		State:     strings.TrimSpace(c.Query("state")),
		Pagination: db.Pagination{
			Page:     c.QueryInt("page", 1),
			PageSize: c.QueryInt("page_size", 25),
		},
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(NewErrorResponse(err.Error()))
	}
	return c.JSON(ListResponse[db.ValidationResult]{Data: results, Count: count})
}

// GetResult returns one stored validation report.
// @Summary Get result
// @Description Returns one stored validation report
// @Tags Validation
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} runner.Report
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 501 {object} ErrorResponse
// @Security BasicAuth
// @Router /api/v1/results/{id} [get]
func (s *Server) GetResult(c *fiber.Ctx) error {
	if s.DB == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(NewErrorResponse("Results are not stored"))
	}
	result, err := s.DB.GetValidationResult(c.Params("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(NewErrorResponse("Result not found"))
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(NewErrorResponse(err.Error()))
	}
	report, err := result.Decode()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(NewErrorResponse(err.Error()))
	}
	return c.JSON(report)
}
