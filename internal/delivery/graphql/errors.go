package graphql

import (
	"context"
	"errors"
	"log/slog"

	"eventplanner/internal/domain"
)

// Error codes carried in extensions.code.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// resolverError is what resolvers return to clients. Only message and code are exposed.
type resolverError struct {
	message string
	code    string
}

func (e *resolverError) Error() string { return e.message }

// Extensions is picked up by graphql-go and rendered under "extensions".
func (e *resolverError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

// toGraphQLError translates a service error. Unexpected errors are logged and masked.
func toGraphQLError(ctx context.Context, logger *slog.Logger, op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return &resolverError{message: "Not authenticated", code: CodeUnauthenticated}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return &resolverError{message: "Invalid email or password", code: CodeUnauthenticated}
	case errors.Is(err, domain.ErrForbidden):
		return &resolverError{message: "Not authorized", code: CodeForbidden}
	case errors.Is(err, domain.ErrNotFound):
		return &resolverError{message: "Event not found", code: CodeNotFound}
	case errors.Is(err, domain.ErrDuplicateEmail):
		return &resolverError{message: "Email already registered", code: CodeConflict}
	case errors.Is(err, domain.ErrInvalidInput):
		return &resolverError{message: err.Error(), code: CodeBadUserInput}
	}
	logger.ErrorContext(ctx, "resolver failed", "operation", op, "err", err)
	return &resolverError{message: "Internal server error", code: CodeInternal}
}
