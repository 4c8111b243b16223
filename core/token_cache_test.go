package core

import "testing"

func TestMemoryTokenCache_SetGetClear(t *testing.T) {
	cache := NewMemoryTokenCache()

	if _, ok := cache.Get("default"); ok {
		t.Fatalf("expected empty cache miss")
	}

	cache.Set("default", "token-a", 1_700_000_000, 1_699_000_000)
	entry, ok := cache.Get("default")
	if !ok {
		t.Fatalf("expected cache hit after set")
	}
	if entry.Token != "token-a" || entry.ExpiresAt != 1_700_000_000 || entry.LastCheckedAt != 1_699_000_000 {
		t.Fatalf("unexpected cached entry %+v", entry)
	}

	cache.Clear("default")
	if _, ok := cache.Get("default"); ok {
		t.Fatalf("expected miss after clear")
	}
}

func TestMemoryTokenCache_CredentialIsolation(t *testing.T) {
	cache := NewMemoryTokenCache()
	cache.Set("account-a", "token-a", 100, 10)
	cache.Set("account-b", "token-b", 200, 20)

	cache.Clear("account-a")

	if _, ok := cache.Get("account-a"); ok {
		t.Fatalf("expected account-a entry cleared")
	}
	entry, ok := cache.Get("account-b")
	if !ok || entry.Token != "token-b" {
		t.Fatalf("expected account-b entry untouched, got %+v ok=%v", entry, ok)
	}
}

func TestMemoryTokenCache_BlankIDUsesDefaultKey(t *testing.T) {
	cache := NewMemoryTokenCache()
	cache.Set("", "token-a", 100, 10)

	entry, ok := cache.Get(DefaultCredentialID)
	if !ok || entry.Token != "token-a" {
		t.Fatalf("expected blank id to alias the default key, got %+v ok=%v", entry, ok)
	}

	cache.Clear("")
	if _, ok := cache.Get(DefaultCredentialID); ok {
		t.Fatalf("expected default entry cleared through blank id")
	}
}

func TestServiceClearCache(t *testing.T) {
	cache := NewMemoryTokenCache()
	cache.Set("default", "token-a", 100, 10)

	svc, err := New(Config{}, WithTokenCache(cache))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	svc.ClearCache("")
	if _, ok := cache.Get("default"); ok {
		t.Fatalf("expected blank credential id to clear the default entry")
	}
}
