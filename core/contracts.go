package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Credential is the host-configured connection to one Instagram account.
// It is owned by the host's credential store and read-only to this module.
type Credential struct {
	ID                   string
	AccessToken          string
	BusinessAccountID    string
	AutoRefresh          bool
	RefreshThresholdDays int
	WebhookVerifyToken   string
}

// DefaultCredentialID is used when the host does not key its credentials.
const DefaultCredentialID = "default"

func (c Credential) CacheKey() string {
	if c.ID == "" {
		return DefaultCredentialID
	}
	return c.ID
}

// CachedToken is the last-known token state for one credential. Epoch
// seconds throughout; entries live in process memory only and are lost on
// restart.
type CachedToken struct {
	Token         string
	ExpiresAt     int64
	LastCheckedAt int64
}

// TokenStatus is a derived view computed fresh on every resolve; it is
// never stored.
type TokenStatus struct {
	Token           string
	IsExpired       bool
	NeedsRefresh    bool
	ExpiresAt       int64
	DaysUntilExpiry int
}

// RefreshOutcome reports a forced refresh attempt.
type RefreshOutcome struct {
	Success  bool
	NewToken string
	Message  string
}

// TokenCache maps a credential identifier to its last-known token state.
// Implementations decide nothing about staleness; callers do.
type TokenCache interface {
	Get(id string) (CachedToken, bool)
	Set(id string, token string, expiresAt int64, lastCheckedAt int64)
	Clear(id string)
}

type TransportRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    []byte
	Timeout time.Duration
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
