package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const refreshGrantType = "ig_refresh_token"

type refreshTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type refreshCall struct {
	done  chan struct{}
	token string
}

// Refresh exchanges a long-lived token for a renewed one. Failure never
// propagates: many long-lived tokens are not refreshable, so the engine
// logs the failure and returns the original token unchanged. Concurrent
// callers for the same credential share one in-flight exchange.
func (s *Service) Refresh(ctx context.Context, cred Credential) string {
	if s == nil {
		return cred.AccessToken
	}

	key := cred.CacheKey()
	s.refreshMu.Lock()
	if call, ok := s.inflight[key]; ok {
		s.refreshMu.Unlock()
		select {
		case <-call.done:
			return call.token
		case <-ctx.Done():
			return cred.AccessToken
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	s.inflight[key] = call
	s.refreshMu.Unlock()

	defer func() {
		s.refreshMu.Lock()
		delete(s.inflight, key)
		s.refreshMu.Unlock()
		close(call.done)
	}()

	startedAt := time.Now().UTC()
	token, err := s.refreshOnce(ctx, cred)
	if err != nil {
		s.logWarn(ctx, "token refresh failed, keeping existing token", map[string]any{
			"credential_id": key,
			"error":         err.Error(),
		})
		s.observeOperation(ctx, startedAt, "token_refresh", err, map[string]any{
			"credential_id": key,
		})
		call.token = cred.AccessToken
		return cred.AccessToken
	}

	s.observeOperation(ctx, startedAt, "token_refresh", nil, map[string]any{
		"credential_id": key,
	})
	call.token = token
	return token
}

func (s *Service) refreshOnce(ctx context.Context, cred Credential) (string, error) {
	if s.transport == nil {
		return "", fmt.Errorf("core: transport adapter is not configured")
	}

	res, err := s.transport.Do(ctx, TransportRequest{
		Method: http.MethodGet,
		URL:    s.config.Graph.BaseURL + "/refresh_access_token",
		Query: map[string]string{
			"grant_type":   refreshGrantType,
			"access_token": cred.AccessToken,
		},
	})
	if err != nil {
		return "", err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("core: refresh_access_token returned status %d", res.StatusCode)
	}

	parsed, err := decodeRefreshResponse(res.Body)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(parsed.AccessToken) == "" {
		return "", fmt.Errorf("core: no access_token in refresh response")
	}

	if s.tokenCache != nil {
		now := s.nowUnix()
		s.tokenCache.Set(cred.CacheKey(), parsed.AccessToken, now+parsed.ExpiresIn, now)
	}
	return parsed.AccessToken, nil
}

// decodeRefreshResponse is the single decode step for the refresh
// endpoint, which sometimes serves the JSON object double-encoded as a
// JSON string.
func decodeRefreshResponse(body []byte) (refreshTokenResponse, error) {
	var parsed refreshTokenResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		return parsed, nil
	}

	var encoded string
	if err := json.Unmarshal(body, &encoded); err != nil {
		return refreshTokenResponse{}, fmt.Errorf("core: parse refresh response: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &parsed); err != nil {
		return refreshTokenResponse{}, fmt.Errorf("core: parse encoded refresh response: %w", err)
	}
	return parsed, nil
}

// UsableToken is the orchestration entry point for outbound calls. With
// auto-refresh disabled it returns the configured token without touching
// the network; otherwise it resolves status and refreshes when the token
// is expired or inside the refresh threshold.
func (s *Service) UsableToken(ctx context.Context, cred Credential) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: service is nil")
	}
	if err := validateCredential(cred); err != nil {
		return "", s.mapError(err)
	}

	if !cred.AutoRefresh {
		return cred.AccessToken, nil
	}

	status := s.resolveStatus(ctx, cred)
	if status.IsExpired || status.NeedsRefresh {
		return s.Refresh(ctx, cred), nil
	}
	return status.Token, nil
}

// ForceRefresh always runs the refresh engine regardless of status. The
// engine's own fallback normally prevents failure, so Success is false
// only when the credential itself is unusable.
func (s *Service) ForceRefresh(ctx context.Context, cred Credential) RefreshOutcome {
	if s == nil {
		return RefreshOutcome{Success: false, Message: "service is not configured"}
	}
	if err := validateCredential(cred); err != nil {
		return RefreshOutcome{
			Success: false,
			Message: fmt.Sprintf("Failed to refresh token: %s", err.Error()),
		}
	}

	token := s.Refresh(ctx, cred)
	if strings.TrimSpace(token) == "" {
		return RefreshOutcome{
			Success: false,
			Message: "Failed to refresh token: empty token returned",
		}
	}
	return RefreshOutcome{
		Success:  true,
		NewToken: token,
		Message:  "Token refreshed successfully",
	}
}
