// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/stockledger/internal/shared"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string            `json:"type,omitempty"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

// ValidationError carries per-field messages from struct validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

var validate = validator.New()

// Decode reads a JSON body and validates it using `validate` struct tags.
func Decode(r *http.Request, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return &ValidationError{Fields: map[string]string{"body": err.Error()}}
	}
	if err := validate.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		fields := make(map[string]string, len(fieldErrs))
		for _, fieldErr := range fieldErrs {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		return &ValidationError{Fields: fields}
	}
	return nil
}

// WarningHeader carries post-commit warnings on successful mutations.
const WarningHeader = "X-Ledger-Warning"

// Committed writes the result of a mutation. A post-commit warning still
// yields status with the data, plus the warning header; any other error is
// mapped by RespondError.
func Committed(w http.ResponseWriter, status int, data any, err error) {
	if err != nil && !shared.IsWarning(err) {
		RespondError(w, err)
		return
	}
	if err != nil {
		w.Header().Set(WarningHeader, err.Error())
	}
	JSON(w, status, data)
}
