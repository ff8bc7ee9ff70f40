package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/solatis/siren/internal/catalog"
	"github.com/solatis/siren/internal/core/auth"
	"github.com/solatis/siren/internal/siren"
	"github.com/solatis/siren/internal/types"
)

// Error mapping shared by both transports.
// Not found / invalid input / conflict map to their client statuses.
// Auth errors keep the auth package's taxonomy.
// Resolution errors (metadata, templates, cycles, depth) are server faults.
// Context timeouts map to DEADLINE_EXCEEDED / 504.

// PathError reports a GetEntity path that is not a resource path.
type PathError struct {
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: not a resource path: %q", types.ErrInvalidInput, e.Path)
}

func (e *PathError) Unwrap() error { return types.ErrInvalidInput }

// HTTPStatus maps a service error to an HTTP status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case isAuthError(err):
		return auth.HTTPStatus(err)
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps a service error to a gRPC status code.
func GRPCCode(err error) codes.Code {
	switch {
	case errors.Is(err, types.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, types.ErrInvalidInput):
		return codes.InvalidArgument
	case errors.Is(err, types.ErrConflict):
		return codes.FailedPrecondition
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case isAuthError(err):
		return auth.GRPCCode(err)
	default:
		return codes.Internal
	}
}

func isAuthError(err error) bool {
	for _, target := range []error{
		auth.ErrMissingKey, auth.ErrInvalidKeyFormat, auth.ErrUnknownKey,
		auth.ErrInvalidKey, auth.ErrKeyRevoked, auth.ErrUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// errorDocument renders err as a Siren error entity. Server faults hide
// their detail.
func errorDocument(status int, err error, self string) *siren.Document {
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		message = http.StatusText(status)
	}
	props := siren.Properties{
		{Name: "code", Value: status},
		{Name: "message", Value: message},
	}
	var fe *catalog.FieldError
	if errors.As(err, &fe) {
		props = append(props, siren.Property{Name: "field", Value: fe.Field})
	}
	doc := &siren.Document{
		Class:      []string{"error"},
		Title:      http.StatusText(status),
		Properties: props,
	}
	if self != "" {
		doc.Links = []siren.Link{{Rel: []string{"self"}, Href: self}}
	}
	return doc
}
