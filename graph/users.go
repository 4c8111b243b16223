package graph

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

var defaultProfileFields = []string{
	"id", "name", "account_type", "media_count", "user_id", "username",
}

func (c *Client) MyProfile(ctx context.Context, fields []string) (map[string]any, error) {
	if len(fields) == 0 {
		fields = defaultProfileFields
	}
	return c.Request(ctx, http.MethodGet, "/me", nil, map[string]string{
		"fields": strings.Join(fields, ","),
	})
}

func (c *Client) UserProfile(ctx context.Context, userID string, fields []string) (map[string]any, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("graph: user id is required")
	}
	if len(fields) == 0 {
		fields = []string{"id", "username"}
	}
	return c.Request(ctx, http.MethodGet, "/"+userID, nil, map[string]string{
		"fields": strings.Join(fields, ","),
	})
}

// BusinessAccountID resolves the authenticated business account id from
// the /me edge.
func (c *Client) BusinessAccountID(ctx context.Context) (string, error) {
	payload, err := c.MyProfile(ctx, defaultProfileFields)
	if err != nil {
		return "", err
	}
	id, _ := payload["id"].(string)
	if strings.TrimSpace(id) == "" {
		return "", fmt.Errorf("graph: no account id in profile response")
	}
	return id, nil
}

// accountID prefers the configured business account id and falls back to
// discovery through the profile edge.
func (c *Client) accountID(ctx context.Context) (string, error) {
	if id := strings.TrimSpace(c.credential.BusinessAccountID); id != "" {
		return id, nil
	}
	return c.BusinessAccountID(ctx)
}
