package core

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"
)

const secondsPerDay = 24 * 60 * 60

type debugTokenResponse struct {
	Data debugTokenData `json:"data"`
}

type debugTokenData struct {
	IsValid   *bool `json:"is_valid"`
	ExpiresAt int64 `json:"expires_at"`
}

// TokenStatus resolves the lifecycle state of a credential's token. The
// cache is consulted first; a hit whose token still matches the configured
// credential and whose expiry is in the future answers without a network
// round-trip. Introspection failures never propagate: the degraded status
// conservatively reports that a refresh is needed.
func (s *Service) TokenStatus(ctx context.Context, cred Credential) (TokenStatus, error) {
	if s == nil {
		return TokenStatus{}, fmt.Errorf("core: service is nil")
	}
	if err := validateCredential(cred); err != nil {
		return TokenStatus{}, s.mapError(err)
	}

	startedAt := time.Now().UTC()
	status := s.resolveStatus(ctx, cred)
	s.observeOperation(ctx, startedAt, "token_status", nil, map[string]any{
		"credential_id":     cred.CacheKey(),
		"is_expired":        status.IsExpired,
		"needs_refresh":     status.NeedsRefresh,
		"days_until_expiry": status.DaysUntilExpiry,
	})
	return status, nil
}

func (s *Service) resolveStatus(ctx context.Context, cred Credential) TokenStatus {
	token := cred.AccessToken
	now := s.nowUnix()

	if s.tokenCache != nil {
		if entry, ok := s.tokenCache.Get(cred.CacheKey()); ok {
			if entry.Token == token && entry.ExpiresAt > now {
				return TokenStatus{
					Token:           entry.Token,
					IsExpired:       false,
					NeedsRefresh:    false,
					ExpiresAt:       entry.ExpiresAt,
					DaysUntilExpiry: daysUntil(entry.ExpiresAt, now),
				}
			}
		}
	}

	data, err := s.debugToken(ctx, token)
	if err != nil {
		s.logWarn(ctx, "token introspection failed, assuming refresh is needed", map[string]any{
			"credential_id": cred.CacheKey(),
			"error":         err.Error(),
		})
		return TokenStatus{
			Token:           token,
			IsExpired:       false,
			NeedsRefresh:    true,
			ExpiresAt:       0,
			DaysUntilExpiry: 0,
		}
	}

	isExpired := data.IsValid != nil && !*data.IsValid
	needsRefresh := data.ExpiresAt > 0 && (data.ExpiresAt-now) < s.refreshThresholdSeconds(cred)

	if s.tokenCache != nil {
		s.tokenCache.Set(cred.CacheKey(), token, data.ExpiresAt, now)
	}

	status := TokenStatus{
		Token:        token,
		IsExpired:    isExpired,
		NeedsRefresh: needsRefresh,
		ExpiresAt:    data.ExpiresAt,
	}
	if data.ExpiresAt > 0 {
		status.DaysUntilExpiry = daysUntil(data.ExpiresAt, now)
	}
	return status
}

func (s *Service) debugToken(ctx context.Context, token string) (debugTokenData, error) {
	if s.transport == nil {
		return debugTokenData{}, fmt.Errorf("core: transport adapter is not configured")
	}

	res, err := s.transport.Do(ctx, TransportRequest{
		Method: http.MethodGet,
		URL:    s.config.Graph.BaseURL + "/debug_token",
		Query: map[string]string{
			"input_token":  token,
			"access_token": token,
		},
	})
	if err != nil {
		return debugTokenData{}, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return debugTokenData{}, fmt.Errorf("core: debug_token returned status %d", res.StatusCode)
	}

	var parsed debugTokenResponse
	if err := json.Unmarshal(res.Body, &parsed); err != nil {
		return debugTokenData{}, fmt.Errorf("core: parse debug_token response: %w", err)
	}
	return parsed.Data, nil
}

func daysUntil(expiresAt int64, now int64) int {
	return int(math.Ceil(float64(expiresAt-now) / float64(secondsPerDay)))
}
