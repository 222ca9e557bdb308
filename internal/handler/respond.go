package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/templui/amenitymap/internal/ctxkeys"
	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/repository"
	"github.com/templui/amenitymap/internal/service"
	"github.com/templui/amenitymap/internal/validation"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: message, Code: code})
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", service.ErrValidation, err)
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		return fmt.Errorf("%w: body must contain a single JSON object", service.ErrValidation)
	}
	return nil
}

// statusFor maps a service error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, model.CodeValidation
	case errors.Is(err, validation.ErrInvalidType):
		return http.StatusBadRequest, model.CodeInvalidType
	case errors.Is(err, validation.ErrTooLarge):
		return http.StatusBadRequest, model.CodeTooLarge
	case errors.Is(err, repository.ErrCapacityExceeded):
		return http.StatusBadRequest, model.CodeCapacityExceeded
	case errors.Is(err, repository.ErrAmenityNotFound):
		return http.StatusNotFound, model.CodeNotFound
	case errors.Is(err, service.ErrPersistence):
		return http.StatusInternalServerError, model.CodePersistence
	default:
		return http.StatusInternalServerError, model.CodeInternal
	}
}

// writeServiceError translates err into a JSON error response. Server-side
// failures are logged and their details withheld from the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, "error", err, "path", r.URL.Path, "request_id", ctxkeys.RequestID(r.Context()))
		writeError(w, status, code, msg)
		return
	}
	writeError(w, status, code, err.Error())
}
