package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-instagram/core"
)

func TestMyProfile_DefaultFields(t *testing.T) {
	adapter := &fakeAdapter{
		handler: func(core.TransportRequest) (core.TransportResponse, error) {
			return jsonResponse(200, `{"id":"biz-1","username":"acme"}`), nil
		},
	}
	client := newTestClient(t, adapter)

	profile, err := client.MyProfile(context.Background(), nil)
	if err != nil {
		t.Fatalf("my profile: %v", err)
	}
	if profile["username"] != "acme" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	fields := adapter.requests[0].Query["fields"]
	for _, field := range []string{"id", "username", "account_type", "media_count"} {
		if !strings.Contains(fields, field) {
			t.Fatalf("expected default field %q requested, got %q", field, fields)
		}
	}
}

func TestUserProfile_Validation(t *testing.T) {
	client := newTestClient(t, &fakeAdapter{})

	if _, err := client.UserProfile(context.Background(), " ", nil); err == nil {
		t.Fatalf("expected error for blank user id")
	}
}

func TestBusinessAccountID(t *testing.T) {
	t.Run("resolved from profile", func(t *testing.T) {
		adapter := &fakeAdapter{
			handler: func(core.TransportRequest) (core.TransportResponse, error) {
				return jsonResponse(200, `{"id":"biz-9"}`), nil
			},
		}
		client := newTestClient(t, adapter)

		id, err := client.BusinessAccountID(context.Background())
		if err != nil {
			t.Fatalf("business account id: %v", err)
		}
		if id != "biz-9" {
			t.Fatalf("expected biz-9, got %q", id)
		}
	})

	t.Run("missing id in response", func(t *testing.T) {
		adapter := &fakeAdapter{
			handler: func(core.TransportRequest) (core.TransportResponse, error) {
				return jsonResponse(200, `{"username":"acme"}`), nil
			},
		}
		client := newTestClient(t, adapter)

		if _, err := client.BusinessAccountID(context.Background()); err == nil {
			t.Fatalf("expected error for profile without id")
		}
	})
}
