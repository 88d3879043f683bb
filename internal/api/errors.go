package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nerrad567/gray-logic-automation/internal/automation"
	"github.com/nerrad567/gray-logic-automation/internal/device"
)

// Error is the body of every error response.
type Error struct {
	Status  int      `json:"status"`
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnavailable = "unavailable"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // connection may already be gone
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps registry and device errors onto status codes.
// Anything unrecognised is logged by the caller and reported as a 500.
func writeDomainError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, automation.ErrActionNotFound),
		errors.Is(err, automation.ErrSceneNotFound),
		errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, automation.ErrInvalidAction),
		errors.Is(err, automation.ErrInvalidScene),
		errors.Is(err, automation.ErrEmptyID),
		errors.Is(err, device.ErrInvalidDevice),
		errors.Is(err, device.ErrInvalidKind),
		errors.Is(err, device.ErrInvalidArgument),
		errors.Is(err, device.ErrTooManyArgs):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, device.ErrCommandNotFound):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
	default:
		return false
	}
	return true
}

// writeValidationErrors reports each failed field of a validator error.
func writeValidationErrors(w http.ResponseWriter, err error) {
	resp := Error{
		Status:  http.StatusBadRequest,
		Code:    ErrCodeValidation,
		Message: "request validation failed",
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			resp.Details = append(resp.Details,
				fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	} else {
		resp.Details = []string{err.Error()}
	}
	writeJSON(w, resp.Status, resp)
}
