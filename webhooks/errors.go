package webhooks

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-instagram/core"
)

func authError(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.AdapterErrorWebhookAuth)
}

func methodNotAllowedError(method string) error {
	return goerrors.New("webhooks: method not allowed", goerrors.CategoryOperation).
		WithCode(http.StatusMethodNotAllowed).
		WithTextCode(core.AdapterErrorMethodNotAllowed).
		WithMetadata(map[string]any{"method": method})
}

func badPayloadError(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryBadInput, "webhooks: parse webhook payload").
		WithCode(http.StatusBadRequest).
		WithTextCode(core.AdapterErrorBadInput)
}
