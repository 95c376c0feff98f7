package spec

import "errors"

var (
	// ErrSpecNotFound means no contract document exists for the requested version.
	ErrSpecNotFound = errors.New("api spec not found")
	// ErrPathNotFound means the contract does not define the requested path.
	ErrPathNotFound = errors.New("path not found in api spec")
	// ErrSourceUnknown is returned for documents built in memory.
	ErrSourceUnknown = errors.New("real path is not known")
	// ErrInvalidDocument means the document could not be decoded as an OpenAPI tree.
	ErrInvalidDocument = errors.New("invalid api spec document")
)
