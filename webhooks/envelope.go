package webhooks

// Envelope is one inbound webhook delivery. It exists only for the
// duration of the request.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging,omitempty"`
	Changes   []Change         `json:"changes,omitempty"`
}

// MessagingEvent carries message, postback, or opt-in payloads. A single
// event may structurally carry more than one sub-type at once; each
// matched sub-type feeds its own output channel.
type MessagingEvent struct {
	Sender    Participant      `json:"sender"`
	Recipient Participant      `json:"recipient"`
	Timestamp int64            `json:"timestamp"`
	Message   *MessagePayload  `json:"message,omitempty"`
	Postback  *PostbackPayload `json:"postback,omitempty"`
	Optin     *OptinPayload    `json:"optin,omitempty"`
}

type Participant struct {
	ID string `json:"id"`
}

type MessagePayload struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	QuickReply  *QuickReply  `json:"quick_reply,omitempty"`
	IsEcho      bool         `json:"is_echo,omitempty"`
}

type Attachment struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

type QuickReply struct {
	Payload string `json:"payload"`
}

type PostbackPayload struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

type OptinPayload struct {
	Ref string `json:"ref"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue is the union of comment and mention field shapes; the
// dispatcher picks fields based on Change.Field.
type ChangeValue struct {
	ID        string      `json:"id,omitempty"`
	Text      string      `json:"text,omitempty"`
	Media     *MediaRef   `json:"media,omitempty"`
	From      *CommentsBy `json:"from,omitempty"`
	ParentID  string      `json:"parent_id,omitempty"`
	MediaID   string      `json:"media_id,omitempty"`
	CommentID string      `json:"comment_id,omitempty"`
}

type MediaRef struct {
	ID               string `json:"id"`
	MediaProductType string `json:"media_product_type,omitempty"`
}

type CommentsBy struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}
