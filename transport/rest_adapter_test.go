package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-instagram/core"
)

func TestRESTAdapter_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if r.URL.Query().Get("access_token") != "ig-token" {
			t.Fatalf("expected access_token query, got %q", r.URL.RawQuery)
		}
		if r.URL.Query().Get("fields") != "id,caption" {
			t.Fatalf("expected merged query params, got %q", r.URL.RawQuery)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Fatalf("expected json content type, got %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Client") != "go-instagram" {
			t.Fatalf("expected default header carried, got %q", r.Header.Get("X-Client"))
		}
		payload, _ := io.ReadAll(r.Body)
		if string(payload) != `{"caption":"hi"}` {
			t.Fatalf("unexpected body %q", payload)
		}
		w.Header().Set("X-FB-Trace", "trace-1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"123"}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.DefaultHeaders["X-Client"] = "go-instagram"

	res, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:  http.MethodPost,
		URL:     server.URL + "/v23.0/me/media?fields=id,caption",
		Query:   map[string]string{"access_token": "ig-token"},
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    []byte(`{"caption":"hi"}`),
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	if string(res.Body) != `{"id":"123"}` {
		t.Fatalf("unexpected body %q", res.Body)
	}
	if res.Headers["X-Fb-Trace"] != "trace-1" {
		t.Fatalf("expected response headers flattened, got %+v", res.Headers)
	}
	if res.Metadata["kind"] != KindREST {
		t.Fatalf("expected kind metadata, got %+v", res.Metadata)
	}
}

func TestRESTAdapter_DefaultsToGET(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("expected GET default, got %s", r.Method)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	if _, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL}); err != nil {
		t.Fatalf("do: %v", err)
	}
}

func TestRESTAdapter_RequiresURL(t *testing.T) {
	adapter := NewRESTAdapter(http.DefaultClient)

	_, err := adapter.Do(context.Background(), core.TransportRequest{Method: http.MethodGet})
	if err == nil {
		t.Fatalf("expected error for missing url")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected structured error, got %T", err)
	}
	if richErr.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input category, got %q", richErr.Category)
	}
}

func TestRESTAdapter_WrapsConnectionFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	adapter := NewRESTAdapter(http.DefaultClient)
	_, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL})
	if err == nil {
		t.Fatalf("expected error against closed server")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected structured error, got %T", err)
	}
	if richErr.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", richErr.Category)
	}
}

func TestRESTAdapter_EnforcesResponseBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 256)))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 128

	_, err := adapter.Do(context.Background(), core.TransportRequest{URL: server.URL})
	if err == nil {
		t.Fatalf("expected body limit error")
	}
	if !strings.Contains(err.Error(), "exceeds limit") {
		t.Fatalf("expected limit message, got %v", err)
	}
}
