package core

import (
	"strings"
	"sync"
)

// MemoryTokenCache is the default TokenCache: a mutex-guarded map keyed by
// credential id. Entries are few (one per configured credential) so there
// is no eviction; staleness is decided by callers.
type MemoryTokenCache struct {
	mu      sync.RWMutex
	entries map[string]CachedToken
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{
		entries: make(map[string]CachedToken),
	}
}

func (c *MemoryTokenCache) Get(id string) (CachedToken, bool) {
	if c == nil {
		return CachedToken{}, false
	}
	id = normalizeCredentialID(id)

	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[id]
	return entry, ok
}

func (c *MemoryTokenCache) Set(id string, token string, expiresAt int64, lastCheckedAt int64) {
	if c == nil {
		return
	}
	id = normalizeCredentialID(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = CachedToken{
		Token:         token,
		ExpiresAt:     expiresAt,
		LastCheckedAt: lastCheckedAt,
	}
}

func (c *MemoryTokenCache) Clear(id string) {
	if c == nil {
		return
	}
	id = normalizeCredentialID(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

func normalizeCredentialID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultCredentialID
	}
	return id
}

var _ TokenCache = (*MemoryTokenCache)(nil)
