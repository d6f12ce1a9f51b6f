package server

import (
	"encoding/json"
	"errors"
	"net/http"

	fuseerrors "github.com/queryforge/schemafuse/internal/errors"
	"github.com/queryforge/schemafuse/internal/search"
)

// envelope is the JSON shape of every API response.
type envelope struct {
	Status          string                 `json:"status"`
	Data            any                    `json:"data,omitempty"`
	Error           *errorBody             `json:"error,omitempty"`
	PartialFailures []search.MethodFailure `json:"partial_failures,omitempty"`
}

type errorBody struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Retryable  bool              `json:"retryable,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any, failures []search.MethodFailure) {
	writeJSON(w, status, envelope{
		Status:          "success",
		Data:            data,
		PartialFailures: failures,
	})
}

func writeError(w http.ResponseWriter, err error) {
	body := &errorBody{
		Code:    fuseerrors.ErrCodeInternal,
		Message: "internal error",
	}

	var fe *fuseerrors.FuseError
	if errors.As(err, &fe) {
		body.Code = fe.Code
		body.Message = fe.Message
		body.Suggestion = fe.Suggestion
		body.Details = fe.Details
		body.Retryable = fe.Retryable
	}

	writeJSON(w, statusForCode(body.Code), envelope{
		Status: "error",
		Error:  body,
	})
}

// statusForCode maps error codes to HTTP status.
func statusForCode(code string) int {
	switch code {
	case fuseerrors.ErrCodeQueryEmpty,
		fuseerrors.ErrCodeInvalidConfig,
		fuseerrors.ErrCodeInvalidMethod,
		fuseerrors.ErrCodeInvalidScope:
		return http.StatusBadRequest
	case fuseerrors.ErrCodeIndexUnavailable,
		fuseerrors.ErrCodeAllMethodsUnavailable,
		fuseerrors.ErrCodeCatalogUnavailable:
		return http.StatusServiceUnavailable
	case fuseerrors.ErrCodeRetrievalTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
