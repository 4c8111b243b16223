package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-instagram/core"
)

const paginationPageSize = "100"

// TokenSource supplies a usable access token for each outbound call. The
// core Service is the production implementation; it refreshes behind the
// scenes when the token is expired or close to expiry.
type TokenSource interface {
	UsableToken(ctx context.Context, cred core.Credential) (string, error)
}

// Client is a typed Graph API client for one credential. Every request
// asks the token source first, appends access_token as a query parameter,
// and decodes the response exactly once at this boundary.
type Client struct {
	baseURL    string
	version    string
	adapter    core.TransportAdapter
	tokens     TokenSource
	credential core.Credential
	logger     core.Logger
}

type ClientOption func(*Client)

func WithLogger(logger core.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(
	cfg core.GraphConfig,
	credential core.Credential,
	tokens TokenSource,
	adapter core.TransportAdapter,
	options ...ClientOption,
) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = core.DefaultConfig().Graph.BaseURL
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = core.DefaultConfig().Graph.APIVersion
	}
	if tokens == nil {
		return nil, fmt.Errorf("graph: token source is required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("graph: transport adapter is required")
	}
	if strings.TrimSpace(credential.AccessToken) == "" {
		return nil, fmt.Errorf("graph: credential access token is required")
	}

	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		version:    strings.TrimSpace(cfg.APIVersion),
		adapter:    adapter,
		tokens:     tokens,
		credential: credential,
		logger:     glog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(client)
	}
	if client.logger == nil {
		client.logger = glog.Nop()
	}
	return client, nil
}

// Request performs one authenticated Graph API call. Non-2xx responses
// are surfaced as a single descriptive error carrying the upstream error
// envelope.
func (c *Client) Request(
	ctx context.Context,
	method string,
	endpoint string,
	body map[string]any,
	query map[string]string,
) (map[string]any, error) {
	if c == nil {
		return nil, fmt.Errorf("graph: client is nil")
	}

	token, err := c.tokens.UsableToken(ctx, c.credential)
	if err != nil {
		return nil, err
	}

	requestQuery := make(map[string]string, len(query)+1)
	for key, value := range query {
		requestQuery[key] = value
	}
	requestQuery["access_token"] = token

	var payload []byte
	headers := map[string]string{}
	if len(body) > 0 {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("graph: encode request body: %w", err)
		}
		headers["Content-Type"] = "application/json"
	}

	res, err := c.adapter.Do(ctx, core.TransportRequest{
		Method:  method,
		URL:     c.endpointURL(endpoint),
		Headers: headers,
		Query:   requestQuery,
		Body:    payload,
	})
	if err != nil {
		return nil, err
	}

	decoded, err := decodePayload(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, upstreamError(res.StatusCode, decoded)
	}
	return decoded, nil
}

// RequestAllItems follows cursor pagination and returns the concatenated
// data items. Page size is pinned at 100 per the provider maximum.
func (c *Client) RequestAllItems(
	ctx context.Context,
	method string,
	endpoint string,
	body map[string]any,
	query map[string]string,
) ([]any, error) {
	items := []any{}

	pageQuery := make(map[string]string, len(query)+2)
	for key, value := range query {
		pageQuery[key] = value
	}
	pageQuery["limit"] = paginationPageSize

	for {
		payload, err := c.Request(ctx, method, endpoint, body, pageQuery)
		if err != nil {
			return nil, err
		}
		if data, ok := payload["data"].([]any); ok {
			items = append(items, data...)
		}

		after := nextCursor(payload)
		if after == "" {
			return items, nil
		}
		pageQuery["after"] = after
	}
}

func (c *Client) endpointURL(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.baseURL + "/" + c.version + endpoint
}

// decodePayload is the single decode step at the transport boundary: it
// also unwraps bodies served as a JSON-encoded string, so nothing above
// this layer branches on runtime shapes.
func decodePayload(body []byte) (map[string]any, error) {
	if len(body) == 0 {
		return map[string]any{}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err == nil {
		return decoded, nil
	}

	var encoded string
	if err := json.Unmarshal(body, &encoded); err != nil {
		return nil, fmt.Errorf("graph: parse response body: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &decoded); err != nil {
		return nil, fmt.Errorf("graph: parse encoded response body: %w", err)
	}
	return decoded, nil
}

func nextCursor(payload map[string]any) string {
	paging, ok := payload["paging"].(map[string]any)
	if !ok {
		return ""
	}
	if next, ok := paging["next"].(string); !ok || strings.TrimSpace(next) == "" {
		return ""
	}
	cursors, ok := paging["cursors"].(map[string]any)
	if !ok {
		return ""
	}
	after, _ := cursors["after"].(string)
	return strings.TrimSpace(after)
}

func upstreamError(statusCode int, payload map[string]any) error {
	message := fmt.Sprintf("graph api returned status %d", statusCode)
	metadata := map[string]any{"status_code": statusCode}

	if envelope, ok := payload["error"].(map[string]any); ok {
		if text, ok := envelope["message"].(string); ok && strings.TrimSpace(text) != "" {
			message = fmt.Sprintf("graph api error: %s", text)
		}
		for _, key := range []string{"type", "code", "error_subcode", "fbtrace_id"} {
			if value, ok := envelope[key]; ok {
				metadata[key] = value
			}
		}
	}

	return goerrors.New(message, goerrors.CategoryExternal).
		WithCode(http.StatusBadGateway).
		WithTextCode(core.AdapterErrorUpstreamFailed).
		WithMetadata(metadata)
}
