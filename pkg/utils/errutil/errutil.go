package errutil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/utils/logging"
)

// ErrorResponse is the JSON body written for failed API requests
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func errorAttrs(err error) []any {
	attrs := []any{slog.String("error", err.Error())}

	var ge *goerr.Error
	if errors.As(err, &ge) {
		attrs = append(attrs,
			slog.Any("values", ge.Values()),
			slog.Any("stack", ge.Stacks()),
		)
	}
	return attrs
}

func report(ctx context.Context, err error) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		if ge := goerr.Unwrap(err); ge != nil {
			scope.SetContext("values", ge.Values())
		}
		hub.CaptureException(err)
	})
}

// Handle logs err with its goerr values and stack, reports it to Sentry when a
// client is configured, and returns it unchanged.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logging.From(ctx).Error(msg, errorAttrs(err)...)
	report(ctx, err)
	return err
}

// HandleHTTP logs err and writes a JSON error response. Messages of 5xx errors are
// not exposed to the client.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error, statusCode int) {
	HandleHTTPWithCode(ctx, w, err, statusCode, "", "")
}

// HandleHTTPWithCode is HandleHTTP with a machine readable code and an optional
// client facing message overriding err.Error().
func HandleHTTPWithCode(ctx context.Context, w http.ResponseWriter, err error, statusCode int, code, message string) {
	if err == nil {
		return
	}

	logger := logging.From(ctx)
	attrs := append([]any{slog.Int("status", statusCode)}, errorAttrs(err)...)

	resp := ErrorResponse{Error: message, Code: code}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("HTTP error", attrs...)
		report(ctx, err)
		if resp.Error == "" {
			resp.Error = http.StatusText(statusCode)
		}
	} else {
		logger.Warn("HTTP error", attrs...)
		if resp.Error == "" {
			resp.Error = err.Error()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}
