package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/incidenthub/internal/domain"
	"github.com/bissquit/incidenthub/internal/pkg/ctxlog"
)

// ErrorMapping defines how a domain error maps to an HTTP response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // if empty, uses err.Error()
}

// HandleError maps a domain error to an HTTP response using provided mappings.
// Validation errors carry the rejected field in the response details.
// If no mapping matches, logs the error and returns 500 Internal Server Error.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	var ve *domain.ValidationError
	isValidation := errors.As(err, &ve)

	for _, m := range mappings {
		if errors.Is(err, m.Error) {
			msg := m.Message
			if msg == "" {
				msg = err.Error()
			}
			if isValidation {
				FieldError(w, m.Status, ve.Field, ve.Err.Error())
				return
			}
			Error(w, m.Status, msg)
			return
		}
	}

	if isValidation {
		FieldError(w, http.StatusBadRequest, ve.Field, ve.Err.Error())
		return
	}

	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
