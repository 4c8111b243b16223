package graph

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-instagram/core"
)

const (
	containerStatusInProgress = "IN_PROGRESS"
	containerStatusFinished   = "FINISHED"
	containerStatusError      = "ERROR"
	containerStatusExpired    = "EXPIRED"

	containerPollInterval    = 2 * time.Second
	containerPollMaxAttempts = 30
)

var defaultMediaFields = []string{
	"id", "media_type", "media_url", "permalink", "caption",
	"timestamp", "like_count", "comments_count",
}

// ListMedia returns every media object owned by the account, following
// pagination.
func (c *Client) ListMedia(ctx context.Context, fields []string) ([]any, error) {
	userID, err := c.accountID(ctx)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = defaultMediaFields
	}
	return c.RequestAllItems(ctx, http.MethodGet, "/"+userID+"/media", nil, map[string]string{
		"fields": strings.Join(fields, ","),
	})
}

func (c *Client) GetMedia(ctx context.Context, mediaID string, fields []string) (map[string]any, error) {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return nil, fmt.Errorf("graph: media id is required")
	}
	if len(fields) == 0 {
		fields = defaultMediaFields
	}
	return c.Request(ctx, http.MethodGet, "/"+mediaID, nil, map[string]string{
		"fields": strings.Join(fields, ","),
	})
}

func (c *Client) GetMediaChildren(ctx context.Context, mediaID string) ([]any, error) {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return nil, fmt.Errorf("graph: media id is required")
	}
	return c.RequestAllItems(ctx, http.MethodGet, "/"+mediaID+"/children", nil, map[string]string{
		"fields": "id,media_type,media_url,thumbnail_url",
	})
}

// CreateContainer stages a media container and returns its creation id.
// Params carry the provider fields verbatim (image_url, video_url,
// caption, media_type, user_tags, ...).
func (c *Client) CreateContainer(ctx context.Context, params map[string]any) (string, error) {
	userID, err := c.accountID(ctx)
	if err != nil {
		return "", err
	}
	payload, err := c.Request(ctx, http.MethodPost, "/"+userID+"/media", params, nil)
	if err != nil {
		return "", err
	}
	id, _ := payload["id"].(string)
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("graph: no container id in create response")
	}
	return id, nil
}

func (c *Client) ContainerStatus(ctx context.Context, containerID string) (string, error) {
	payload, err := c.Request(ctx, http.MethodGet, "/"+containerID, nil, map[string]string{
		"fields": "status_code",
	})
	if err != nil {
		return "", err
	}
	status, _ := payload["status_code"].(string)
	if strings.TrimSpace(status) == "" {
		return containerStatusInProgress, nil
	}
	return status, nil
}

// PublishContainer publishes a staged container to the account feed or
// story surface.
func (c *Client) PublishContainer(ctx context.Context, creationID string) (map[string]any, error) {
	userID, err := c.accountID(ctx)
	if err != nil {
		return nil, err
	}
	return c.Request(ctx, http.MethodPost, "/"+userID+"/media_publish", map[string]any{
		"creation_id": creationID,
	}, nil)
}

type StoryInput struct {
	MediaType     string // IMAGE or VIDEO
	ImageURL      string
	VideoURL      string
	LocationID    string
	Collaborators string
}

// CreateStory stages a story container, waits for processing, and
// publishes it. The wait is the bounded poll: every 2 seconds, up to 30
// attempts, terminating on FINISHED, ERROR/EXPIRED, or timeout. Context
// cancellation aborts the poll between attempts.
func (c *Client) CreateStory(ctx context.Context, in StoryInput) (map[string]any, error) {
	params := map[string]any{
		"media_type": "STORIES",
	}
	if strings.EqualFold(in.MediaType, "IMAGE") {
		if strings.TrimSpace(in.ImageURL) == "" {
			return nil, fmt.Errorf("graph: image_url is required for image stories")
		}
		params["image_url"] = in.ImageURL
	} else {
		if strings.TrimSpace(in.VideoURL) == "" {
			return nil, fmt.Errorf("graph: video_url is required for video stories")
		}
		params["video_url"] = in.VideoURL
	}
	if in.LocationID != "" {
		params["location_id"] = in.LocationID
	}
	if in.Collaborators != "" {
		params["collaborators"] = in.Collaborators
	}

	containerID, err := c.CreateContainer(ctx, params)
	if err != nil {
		return nil, err
	}

	attempts, err := c.waitForContainer(ctx, containerID)
	if err != nil {
		return nil, err
	}

	published, err := c.PublishContainer(ctx, containerID)
	if err != nil {
		return nil, err
	}

	result := make(map[string]any, len(published)+3)
	for key, value := range published {
		result[key] = value
	}
	result["status"] = "published"
	result["container_id"] = containerID
	result["attempts_taken"] = attempts
	return result, nil
}

func (c *Client) waitForContainer(ctx context.Context, containerID string) (int, error) {
	status := containerStatusInProgress
	attempts := 0

	for status == containerStatusInProgress && attempts < containerPollMaxAttempts {
		if err := waitWithContext(ctx, containerPollInterval); err != nil {
			return attempts, err
		}

		current, err := c.ContainerStatus(ctx, containerID)
		if err != nil {
			return attempts, err
		}
		status = current
		attempts++

		switch status {
		case containerStatusFinished:
			return attempts, nil
		case containerStatusError, containerStatusExpired:
			return attempts, goerrors.New(
				fmt.Sprintf("graph: story creation failed with status %s", status),
				goerrors.CategoryExternal,
			).WithCode(http.StatusBadGateway).WithTextCode(core.AdapterErrorUpstreamFailed)
		}
	}

	if status == containerStatusInProgress {
		return attempts, goerrors.New(
			"graph: story creation timed out waiting for media processing",
			goerrors.CategoryExternal,
		).WithCode(http.StatusGatewayTimeout).WithTextCode(core.AdapterErrorMediaTimeout)
	}
	return attempts, nil
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
