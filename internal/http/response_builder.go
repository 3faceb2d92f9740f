// Package http serves the snapshot and bridge JSON API.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to HTTP status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"networth/internal/bridge"
	"networth/internal/core"
	applog "networth/internal/log"
	"networth/internal/services"
	"networth/internal/snapshot"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}

// monthFailure is the wire form of one failed month.
type monthFailure struct {
	Month string `json:"month"`
	Error string `json:"error"`
}

type chainBreakBody struct {
	From      string `json:"from"`
	To        string `json:"to"`
	AccountID string `json:"account_id"`
	Replayed  string `json:"replayed"`
	Stored    string `json:"stored"`
}

// runFailureBody reports a generation run that did not fully succeed.
// Uncommitted months were computed but not written; Months failed to compute.
type runFailureBody struct {
	Committed   []string       `json:"committed"`
	Uncommitted []string       `json:"uncommitted,omitempty"`
	Months      []monthFailure `json:"months,omitempty"`
}

func monthFailures(err error) []monthFailure {
	var monthErrs *snapshot.MonthErrors
	if !errors.As(err, &monthErrs) {
		return nil
	}
	failures := make([]monthFailure, 0, len(monthErrs.Failed))
	for _, m := range monthErrs.Months() {
		failures = append(failures, monthFailure{Month: m.String(), Error: monthErrs.Failed[m].Error()})
	}
	return failures
}

// errorStatus maps a domain error to its status code and optional details.
// Unknown errors are 500 and their text is not exposed.
func errorStatus(err error) (int, string, any) {
	var (
		monthErrs *snapshot.MonthErrors
		partial   *core.PartialBatchCommitError
		chain     *services.ChainError
	)
	switch {
	case errors.As(err, &partial):
		return http.StatusServiceUnavailable, "snapshots partially committed", runFailureBody{
			Committed:   monthStrings(partial.Committed),
			Uncommitted: monthStrings(partial.Failed),
			Months:      monthFailures(err),
		}
	case errors.As(err, &monthErrs):
		return http.StatusUnprocessableEntity, "snapshot generation failed", runFailureBody{
			Committed: []string{},
			Months:    monthFailures(err),
		}
	case errors.As(err, &chain):
		breaks := make([]chainBreakBody, len(chain.Breaks))
		for i, b := range chain.Breaks {
			breaks[i] = chainBreakBody{
				From:      b.From.String(),
				To:        b.To.String(),
				AccountID: b.AccountID,
				Replayed:  b.Replayed.String(),
				Stored:    b.Stored.String(),
			}
		}
		return http.StatusConflict, "snapshot chain broken", breaks
	case errors.Is(err, core.ErrSnapshotNotFound):
		return http.StatusNotFound, "snapshot not found", nil
	case errors.Is(err, core.ErrInvalidMonth), errors.Is(err, core.ErrInvalidRange),
		errors.Is(err, services.ErrNoMonths), errors.Is(err, bridge.ErrInvalidPeriod):
		return http.StatusBadRequest, err.Error(), nil
	case errors.Is(err, core.ErrMissingAccount), errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, bridge.ErrNoCashAccounts):
		return http.StatusUnprocessableEntity, err.Error(), nil
	default:
		return http.StatusInternalServerError, "internal error", nil
	}
}

// writeError logs err at a level matching its status and writes the mapped
// response.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, msg, details := errorStatus(err)
	respondError(w, r, operation, err, status, msg, details)
}

// writeRunError is writeError for generation runs; the months res committed
// are reported next to the failures.
func writeRunError(w http.ResponseWriter, r *http.Request, res *services.RunResult, err error) {
	status, msg, details := errorStatus(err)
	if body, ok := details.(runFailureBody); ok && res != nil {
		body.Committed = monthStrings(res.Committed)
		details = body
	}
	respondError(w, r, applog.OpGenerate, err, status, msg, details)
}

func respondError(w http.ResponseWriter, r *http.Request, operation string, err error, status int, msg string, details any) {
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, operation, applog.FieldError, err)
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			applog.FieldOperation, operation, applog.FieldError, err)
	}
	NewJSONResponse().Status(status).Body(ErrorBody{Error: msg, Details: details}).Write(w)
}

func monthStrings(months []core.Month) []string {
	out := make([]string, len(months))
	for i, m := range months {
		out[i] = m.String()
	}
	return out
}
