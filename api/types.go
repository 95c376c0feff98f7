package api

import (
	"github.com/pyneda/openeoct/pkg/registry"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewErrorResponse(err string, details ...string) ErrorResponse {
	resp := ErrorResponse{Error: err}
	if len(details) > 0 {
		resp.Message = details[0]
	}
	return resp
}

type ActionResponse struct {
	Message string `json:"message"`
}

// CreateBackendInput registers a backend.
type CreateBackendInput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url" validate:"required,url"`
	OpenAPI  string `json:"openapi"`
	Version  string `json:"version"`
	Output   string `json:"output"`
	AuthURL  string `json:"auth_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (in CreateBackendInput) backend() registry.Backend {
	return registry.Backend{
		ID:       in.ID,
		Name:     in.Name,
		URL:      in.URL,
		OpenAPI:  in.OpenAPI,
		Version:  in.Version,
		Output:   in.Output,
		AuthURL:  in.AuthURL,
		Username: in.Username,
		Password: in.Password,
	}
}

// BackendDetail is a backend with its endpoints and variables.
type BackendDetail struct {
	Backend   registry.Backend          `json:"backend"`
	Endpoints []registry.EndpointRecord `json:"endpoints"`
	Variables []registry.Variable       `json:"variables"`
}

// DiscoverResponse lists the endpoints added by a discovery.
type DiscoverResponse struct {
	Added []registry.EndpointRecord `json:"added"`
	Total int                       `json:"total"`
}

// ListResponse wraps paginated listings.
type ListResponse[T any] struct {
	Data  []T   `json:"data"`
	Count int64 `json:"count"`
}
