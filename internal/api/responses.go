// Package api provides HTTP handlers and routing for the deburst service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/robert-malhotra/s1-deburst/internal/burst"
	"github.com/robert-malhotra/s1-deburst/internal/catalog"
	"github.com/robert-malhotra/s1-deburst/internal/raster"
	"github.com/robert-malhotra/s1-deburst/internal/safe"
)

// STACError represents a STAC-compliant error response.
type STACError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	RequestID   string `json:"request_id,omitempty"`
}

// Standard STAC error codes.
const (
	ErrCodeBadRequest       = "BadRequest"
	ErrCodeNotFound         = "NotFound"
	ErrCodeInvalidParameter = "InvalidParameterValue"
	ErrCodeInvalidProduct   = "InvalidProduct"
	ErrCodeServerError      = "ServerError"
)

// WriteJSON writes a JSON response with the given status code and value.
// If encoding fails, it logs the error and returns it.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response",
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// WriteGeoJSON writes a GeoJSON response with the given status code and value.
// GeoJSON responses use the application/geo+json media type.
func WriteGeoJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode GeoJSON response",
			slog.String("error", err.Error()),
		)
		return err
	}

	return nil
}

// WriteError writes a STAC-compliant error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeError(w, status, STACError{Code: code, Description: message})
}

func writeError(w http.ResponseWriter, status int, errResp STACError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(errResp); err != nil {
		slog.Error("failed to encode error response",
			slog.String("error", err.Error()),
		)
	}
}

// WriteBadRequest writes a 400 Bad Request error response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// WriteNotFound writes a 404 Not Found error response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// WriteInvalidParameter writes a 400 Bad Request error for invalid parameters.
func WriteInvalidParameter(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, ErrCodeInvalidParameter, message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, ErrCodeServerError, message)
}

// WriteInternalErrorWithRequestID writes a 500 response carrying the request
// ID so clients can correlate it with server logs.
func WriteInternalErrorWithRequestID(w http.ResponseWriter, message, requestID string) {
	writeError(w, http.StatusInternalServerError, STACError{
		Code:        ErrCodeServerError,
		Description: message,
		RequestID:   requestID,
	})
}

// StatusFor maps a pipeline or catalog error to an HTTP status and STAC
// error code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, burst.ErrMalformedTiming),
		errors.Is(err, burst.ErrDegenerateWindow),
		errors.Is(err, burst.ErrInconsistentMetadata),
		errors.Is(err, burst.ErrNotAdjacent),
		errors.Is(err, raster.ErrWindowOutOfBounds),
		errors.Is(err, raster.ErrUnsupportedFormat),
		errors.Is(err, safe.ErrInvalidSAFE):
		return http.StatusUnprocessableEntity, ErrCodeInvalidProduct
	case errors.Is(err, safe.ErrInvalidProductName):
		return http.StatusBadRequest, ErrCodeInvalidParameter
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, catalog.ErrExpired),
		errors.Is(err, safe.ErrNotFound),
		errors.Is(err, raster.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, ErrCodeServerError
	default:
		return http.StatusInternalServerError, ErrCodeServerError
	}
}

// WriteErrorFor writes the STAC error response matching err.
func WriteErrorFor(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	WriteError(w, status, code, err.Error())
}
