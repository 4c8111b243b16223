package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-instagram/core"
)

func TestCreateContainer_UsesConfiguredAccount(t *testing.T) {
	adapter := &fakeAdapter{
		handler: func(req core.TransportRequest) (core.TransportResponse, error) {
			return jsonResponse(200, `{"id":"container-1"}`), nil
		},
	}
	client := newTestClient(t, adapter)

	id, err := client.CreateContainer(context.Background(), map[string]any{"image_url": "https://cdn.example/pic.jpg"})
	if err != nil {
		t.Fatalf("create container: %v", err)
	}
	if id != "container-1" {
		t.Fatalf("expected container id, got %q", id)
	}
	if !strings.HasSuffix(adapter.requests[0].URL, "/biz-1/media") {
		t.Fatalf("expected configured account in path, got %q", adapter.requests[0].URL)
	}
}

func TestCreateContainer_DiscoversAccountWhenUnconfigured(t *testing.T) {
	adapter := &fakeAdapter{}
	adapter.handler = func(req core.TransportRequest) (core.TransportResponse, error) {
		if strings.HasSuffix(req.URL, "/me") {
			return jsonResponse(200, `{"id":"discovered-1"}`), nil
		}
		if strings.HasSuffix(req.URL, "/discovered-1/media") {
			return jsonResponse(200, `{"id":"container-1"}`), nil
		}
		return jsonResponse(404, `{}`), nil
	}

	client, err := NewClient(
		core.GraphConfig{},
		core.Credential{AccessToken: "ig-token"},
		staticTokenSource{token: "usable-token"},
		adapter,
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	id, err := client.CreateContainer(context.Background(), map[string]any{"image_url": "https://cdn.example/pic.jpg"})
	if err != nil {
		t.Fatalf("create container: %v", err)
	}
	if id != "container-1" {
		t.Fatalf("expected container id, got %q", id)
	}
	if len(adapter.requests) != 2 {
		t.Fatalf("expected discovery call then create call, got %d requests", len(adapter.requests))
	}
}

func TestContainerStatus_EmptyStatusMeansInProgress(t *testing.T) {
	adapter := &fakeAdapter{
		handler: func(core.TransportRequest) (core.TransportResponse, error) {
			return jsonResponse(200, `{"id":"container-1"}`), nil
		},
	}
	client := newTestClient(t, adapter)

	status, err := client.ContainerStatus(context.Background(), "container-1")
	if err != nil {
		t.Fatalf("container status: %v", err)
	}
	if status != containerStatusInProgress {
		t.Fatalf("expected IN_PROGRESS fallback, got %q", status)
	}
}

func TestCreateStory_InputValidation(t *testing.T) {
	client := newTestClient(t, &fakeAdapter{})

	if _, err := client.CreateStory(context.Background(), StoryInput{MediaType: "IMAGE"}); err == nil {
		t.Fatalf("expected error for image story without image_url")
	}
	if _, err := client.CreateStory(context.Background(), StoryInput{MediaType: "VIDEO"}); err == nil {
		t.Fatalf("expected error for video story without video_url")
	}
}

func TestCreateStory_PublishesWhenProcessingFinishes(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping story poll test in short mode")
	}

	adapter := &fakeAdapter{}
	adapter.handler = func(req core.TransportRequest) (core.TransportResponse, error) {
		switch {
		case strings.HasSuffix(req.URL, "/biz-1/media"):
			var body map[string]any
			if err := json.Unmarshal(req.Body, &body); err != nil {
				t.Errorf("decode container params: %v", err)
			}
			if body["media_type"] != "STORIES" {
				t.Errorf("expected STORIES media type, got %+v", body)
			}
			if body["image_url"] != "https://cdn.example/story.jpg" {
				t.Errorf("expected image url forwarded, got %+v", body)
			}
			return jsonResponse(200, `{"id":"container-1"}`), nil
		case strings.HasSuffix(req.URL, "/container-1"):
			return jsonResponse(200, `{"status_code":"FINISHED"}`), nil
		case strings.HasSuffix(req.URL, "/biz-1/media_publish"):
			return jsonResponse(200, `{"id":"story-1"}`), nil
		default:
			return jsonResponse(404, `{}`), nil
		}
	}
	client := newTestClient(t, adapter)

	result, err := client.CreateStory(context.Background(), StoryInput{
		MediaType: "IMAGE",
		ImageURL:  "https://cdn.example/story.jpg",
	})
	if err != nil {
		t.Fatalf("create story: %v", err)
	}
	if result["id"] != "story-1" || result["status"] != "published" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result["container_id"] != "container-1" {
		t.Fatalf("expected container id in result, got %+v", result)
	}
	if result["attempts_taken"] != 1 {
		t.Fatalf("expected single poll attempt, got %+v", result["attempts_taken"])
	}
}

func TestCreateStory_ProcessingFailureAborts(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping story poll test in short mode")
	}

	adapter := &fakeAdapter{}
	adapter.handler = func(req core.TransportRequest) (core.TransportResponse, error) {
		switch {
		case strings.HasSuffix(req.URL, "/biz-1/media"):
			return jsonResponse(200, `{"id":"container-1"}`), nil
		case strings.HasSuffix(req.URL, "/container-1"):
			return jsonResponse(200, `{"status_code":"ERROR"}`), nil
		default:
			return jsonResponse(404, `{}`), nil
		}
	}
	client := newTestClient(t, adapter)

	_, err := client.CreateStory(context.Background(), StoryInput{
		MediaType: "IMAGE",
		ImageURL:  "https://cdn.example/story.jpg",
	})
	if err == nil {
		t.Fatalf("expected processing failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected structured error, got %T", err)
	}
	if richErr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for processing failure, got %d", richErr.Code)
	}
	for _, req := range adapter.requests {
		if strings.HasSuffix(req.URL, "/media_publish") {
			t.Fatalf("failed container must not be published")
		}
	}
}

func TestCreateStory_CancellationAbortsPoll(t *testing.T) {
	adapter := &fakeAdapter{}
	adapter.handler = func(req core.TransportRequest) (core.TransportResponse, error) {
		if strings.HasSuffix(req.URL, "/biz-1/media") {
			return jsonResponse(200, `{"id":"container-1"}`), nil
		}
		return jsonResponse(200, `{"status_code":"IN_PROGRESS"}`), nil
	}
	client := newTestClient(t, adapter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.CreateStory(ctx, StoryInput{
		MediaType: "IMAGE",
		ImageURL:  "https://cdn.example/story.jpg",
	})
	if err == nil {
		t.Fatalf("expected cancellation to abort the poll")
	}
}
