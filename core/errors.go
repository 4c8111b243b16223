package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	AdapterErrorBadInput         = "ADAPTER_BAD_INPUT"
	AdapterErrorWebhookAuth      = "ADAPTER_WEBHOOK_AUTH_FAILED"
	AdapterErrorMethodNotAllowed = "ADAPTER_METHOD_NOT_ALLOWED"
	AdapterErrorUpstreamFailed   = "ADAPTER_UPSTREAM_FAILED"
	AdapterErrorMediaTimeout     = "ADAPTER_MEDIA_TIMEOUT"
	AdapterErrorInternal         = "ADAPTER_INTERNAL_ERROR"
)

func adapterErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureAdapterErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "verify token"), strings.Contains(msg, "signature"):
		return newAdapterError(err.Error(), goerrors.CategoryAuth, AdapterErrorWebhookAuth)
	case strings.Contains(msg, "method") && strings.Contains(msg, "not allowed"):
		return newAdapterError(err.Error(), goerrors.CategoryOperation, AdapterErrorMethodNotAllowed)
	case strings.Contains(msg, "timed out"), strings.Contains(msg, "timeout"):
		return newAdapterError(err.Error(), goerrors.CategoryExternal, AdapterErrorMediaTimeout)
	case strings.Contains(msg, "graph api"):
		return newAdapterError(err.Error(), goerrors.CategoryExternal, AdapterErrorUpstreamFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "missing"):
		return newAdapterError(err.Error(), goerrors.CategoryBadInput, AdapterErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureAdapterErrorEnvelope(mapped)
}

func newAdapterError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureAdapterErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureAdapterErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = adapterHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultAdapterTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultAdapterTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return AdapterErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return AdapterErrorWebhookAuth
	case goerrors.CategoryOperation:
		return AdapterErrorMethodNotAllowed
	case goerrors.CategoryExternal:
		return AdapterErrorUpstreamFailed
	default:
		return AdapterErrorInternal
	}
}

func adapterHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryOperation:
		return http.StatusMethodNotAllowed
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
