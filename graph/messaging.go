package graph

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type Button struct {
	Type    string `json:"type"` // web_url | postback
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Payload string `json:"payload,omitempty"`
}

type GenericElement struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

type QuickReplyOption struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// SendText sends a plain text message to an IGSID.
func (c *Client) SendText(ctx context.Context, recipientID string, text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("graph: message text is required")
	}
	return c.sendMessage(ctx, recipientID, map[string]any{"text": text})
}

// SendAttachment sends an image, audio, video, or file attachment by URL.
func (c *Client) SendAttachment(ctx context.Context, recipientID string, attachmentType string, url string) (map[string]any, error) {
	attachmentType = strings.ToLower(strings.TrimSpace(attachmentType))
	switch attachmentType {
	case "image", "audio", "video", "file":
	default:
		return nil, fmt.Errorf("graph: invalid attachment type %q", attachmentType)
	}
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("graph: attachment url is required")
	}
	return c.sendMessage(ctx, recipientID, map[string]any{
		"attachment": map[string]any{
			"type": attachmentType,
			"payload": map[string]any{
				"url": url,
			},
		},
	})
}

func (c *Client) SendButtonTemplate(ctx context.Context, recipientID string, text string, buttons []Button) (map[string]any, error) {
	if len(buttons) == 0 {
		return nil, fmt.Errorf("graph: at least one button is required")
	}
	return c.sendMessage(ctx, recipientID, map[string]any{
		"attachment": map[string]any{
			"type": "template",
			"payload": map[string]any{
				"template_type": "button",
				"text":          text,
				"buttons":       buttons,
			},
		},
	})
}

func (c *Client) SendGenericTemplate(ctx context.Context, recipientID string, elements []GenericElement) (map[string]any, error) {
	if len(elements) == 0 {
		return nil, fmt.Errorf("graph: at least one element is required")
	}
	return c.sendMessage(ctx, recipientID, map[string]any{
		"attachment": map[string]any{
			"type": "template",
			"payload": map[string]any{
				"template_type": "generic",
				"elements":      elements,
			},
		},
	})
}

func (c *Client) SendQuickReplies(ctx context.Context, recipientID string, text string, replies []QuickReplyOption) (map[string]any, error) {
	if len(replies) == 0 {
		return nil, fmt.Errorf("graph: at least one quick reply is required")
	}
	quickReplies := make([]map[string]any, 0, len(replies))
	for _, reply := range replies {
		quickReplies = append(quickReplies, map[string]any{
			"content_type": "text",
			"title":        reply.Title,
			"payload":      reply.Payload,
		})
	}
	return c.sendMessage(ctx, recipientID, map[string]any{
		"text":          text,
		"quick_replies": quickReplies,
	})
}

// ReplyToComment posts a reply under an existing comment.
func (c *Client) ReplyToComment(ctx context.Context, commentID string, message string) (map[string]any, error) {
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return nil, fmt.Errorf("graph: comment id is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("graph: reply message is required")
	}
	return c.Request(ctx, http.MethodPost, "/"+commentID+"/replies", map[string]any{
		"message": message,
	}, nil)
}

func (c *Client) sendMessage(ctx context.Context, recipientID string, message map[string]any) (map[string]any, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return nil, fmt.Errorf("graph: recipient id is required")
	}
	return c.Request(ctx, http.MethodPost, "/me/messages", map[string]any{
		"recipient": map[string]any{"id": recipientID},
		"message":   message,
	}, nil)
}
