package webhooks

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"

	"github.com/goliatone/go-instagram/core"
)

const (
	EventMessages  = "messages"
	EventPostbacks = "messaging_postbacks"
	EventOptins    = "messaging_optins"
	EventComments  = "comments"
	EventMentions  = "mentions"
)

const signatureHeader = "x-hub-signature-256"

type Config struct {
	Events     []string `koanf:"events" mapstructure:"events"`
	IgnoreEcho bool     `koanf:"ignore_echo" mapstructure:"ignore_echo"`
	StrictAuth bool     `koanf:"strict_auth" mapstructure:"strict_auth"`
}

func DefaultConfig() Config {
	return Config{
		Events:     []string{EventMessages},
		IgnoreEcho: true,
		StrictAuth: false,
	}
}

type InboundRequest struct {
	Method  string
	Query   map[string]string
	Headers map[string]string
	Body    []byte
}

// Record is one routed event in the host's wire shape.
type Record map[string]any

// Channels are the five positionally ordered trigger outputs. Order is
// preserved within a channel; there is no ordering guarantee across
// channels. Empty channels are empty slices, not nil.
type Channels struct {
	Messages  []Record
	Postbacks []Record
	OptIns    []Record
	Comments  []Record
	Mentions  []Record
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Challenge  string
	Channels   Channels
	Metadata   map[string]any
}

// Dispatcher serves the two webhook verbs: the GET subscribe handshake
// and POST event deliveries.
type Dispatcher struct {
	config     Config
	credential core.Credential
	ledger     DeliveryLedger
	logger     core.Logger
}

type DispatcherOption func(*Dispatcher)

func WithLedger(ledger DeliveryLedger) DispatcherOption {
	return func(d *Dispatcher) {
		d.ledger = ledger
	}
}

func WithLogger(logger core.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func NewDispatcher(credential core.Credential, cfg Config, options ...DispatcherOption) *Dispatcher {
	if len(cfg.Events) == 0 {
		cfg.Events = DefaultConfig().Events
	}
	dispatcher := &Dispatcher{
		config:     cfg,
		credential: credential,
		logger:     glog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(dispatcher)
	}
	if dispatcher.logger == nil {
		dispatcher.logger = glog.Nop()
	}
	return dispatcher
}

func (d *Dispatcher) Handle(ctx context.Context, req InboundRequest) (InboundResult, error) {
	switch strings.ToUpper(strings.TrimSpace(req.Method)) {
	case http.MethodGet:
		return d.handleHandshake(req)
	case http.MethodPost:
		return d.handleDelivery(ctx, req)
	default:
		return InboundResult{}, methodNotAllowedError(req.Method)
	}
}

// handleHandshake echoes the challenge verbatim when the subscribe mode
// and verify token match. The match is pure equality: an unset verify
// token only accepts an unset hub.verify_token.
func (d *Dispatcher) handleHandshake(req InboundRequest) (InboundResult, error) {
	mode := queryValue(req.Query, "hub.mode")
	token := queryValue(req.Query, "hub.verify_token")
	challenge := req.Query["hub.challenge"]

	expected := strings.TrimSpace(d.credential.WebhookVerifyToken)
	if mode != "subscribe" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return InboundResult{}, authError("webhooks: verification failed: invalid verify token")
	}

	return InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Challenge:  challenge,
		Metadata:   map[string]any{"mode": mode},
	}, nil
}

func (d *Dispatcher) handleDelivery(ctx context.Context, req InboundRequest) (InboundResult, error) {
	signature := headerValue(req.Headers, signatureHeader)

	verify := VerifySignature
	if d.config.StrictAuth {
		verify = VerifySignatureStrict
	}
	if !verify(req.Body, signature, d.credential.WebhookVerifyToken) {
		if d.config.StrictAuth {
			return InboundResult{}, authError("webhooks: delivery authentication failed: invalid signature")
		}
		d.logger.Warn("webhook signature mismatch, continuing (fail-open)",
			"credential_id", d.credential.CacheKey())
	}

	var claimID string
	if d.ledger != nil {
		deliveryID := signature
		if strings.TrimSpace(deliveryID) == "" {
			deliveryID = uuid.NewString()
		}
		record, claimed, err := d.ledger.Claim(ctx, deliveryID, req.Body)
		if err != nil {
			return InboundResult{}, err
		}
		if !claimed {
			return InboundResult{
				Accepted:   true,
				StatusCode: http.StatusOK,
				Channels:   emptyChannels(),
				Metadata: map[string]any{
					"delivery_id": record.DeliveryID,
					"deduped":     true,
				},
			}, nil
		}
		claimID = record.ID
	}

	var envelope Envelope
	if err := json.Unmarshal(req.Body, &envelope); err != nil {
		wrapped := badPayloadError(err)
		if claimID != "" {
			_ = d.ledger.Fail(ctx, claimID, wrapped)
		}
		return InboundResult{}, wrapped
	}

	channels := d.route(envelope)
	if claimID != "" {
		if err := d.ledger.Complete(ctx, claimID); err != nil {
			return InboundResult{}, err
		}
	}

	return InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Channels:   channels,
		Metadata: map[string]any{
			"object":      envelope.Object,
			"entry_count": len(envelope.Entry),
		},
	}, nil
}

// route classifies entries into output channels. Unrecognized change
// fields and unmatched sub-types are skipped silently.
func (d *Dispatcher) route(envelope Envelope) Channels {
	channels := emptyChannels()

	for _, entry := range envelope.Entry {
		for _, event := range entry.Messaging {
			base := Record{
				"senderId":    event.Sender.ID,
				"recipientId": event.Recipient.ID,
				"timestamp":   event.Timestamp,
				"entryId":     entry.ID,
			}

			if event.Message != nil && d.eventEnabled(EventMessages) {
				if d.config.IgnoreEcho && event.Message.IsEcho {
					continue
				}
				record := cloneRecord(base)
				record["eventType"] = "message"
				record["messageId"] = event.Message.MID
				record["text"] = event.Message.Text
				record["attachments"] = event.Message.Attachments
				if event.Message.QuickReply != nil {
					record["quickReplyPayload"] = event.Message.QuickReply.Payload
				}
				record["isEcho"] = event.Message.IsEcho
				channels.Messages = append(channels.Messages, record)
			}

			if event.Postback != nil && d.eventEnabled(EventPostbacks) {
				record := cloneRecord(base)
				record["eventType"] = "postback"
				record["payload"] = event.Postback.Payload
				record["title"] = event.Postback.Title
				channels.Postbacks = append(channels.Postbacks, record)
			}

			if event.Optin != nil && d.eventEnabled(EventOptins) {
				record := cloneRecord(base)
				record["eventType"] = "optin"
				record["ref"] = event.Optin.Ref
				channels.OptIns = append(channels.OptIns, record)
			}
		}

		for _, change := range entry.Changes {
			switch change.Field {
			case "comments":
				if !d.eventEnabled(EventComments) {
					continue
				}
				record := Record{
					"eventType": "comment",
					"commentId": change.Value.ID,
					"text":      change.Value.Text,
					"entryId":   entry.ID,
					"timestamp": entry.Time,
				}
				if change.Value.Media != nil {
					record["mediaId"] = change.Value.Media.ID
					record["mediaProductType"] = change.Value.Media.MediaProductType
				}
				if change.Value.From != nil {
					record["fromUserId"] = change.Value.From.ID
					record["fromUsername"] = change.Value.From.Username
				}
				if change.Value.ParentID != "" {
					record["parentCommentId"] = change.Value.ParentID
					record["isReply"] = true
				} else {
					record["isReply"] = false
				}
				channels.Comments = append(channels.Comments, record)

			case "mentions":
				if !d.eventEnabled(EventMentions) {
					continue
				}
				record := Record{
					"eventType": "mention",
					"mentionId": change.Value.ID,
					"mediaId":   change.Value.MediaID,
					"entryId":   entry.ID,
					"timestamp": entry.Time,
				}
				if change.Value.CommentID != "" {
					record["commentId"] = change.Value.CommentID
					record["mentionType"] = "comment"
				} else {
					record["mentionType"] = "story"
				}
				if change.Value.Text != "" {
					record["text"] = change.Value.Text
				}
				channels.Mentions = append(channels.Mentions, record)
			}
		}
	}

	return channels
}

func (d *Dispatcher) eventEnabled(name string) bool {
	for _, event := range d.config.Events {
		if strings.EqualFold(strings.TrimSpace(event), name) {
			return true
		}
	}
	return false
}

func emptyChannels() Channels {
	return Channels{
		Messages:  []Record{},
		Postbacks: []Record{},
		OptIns:    []Record{},
		Comments:  []Record{},
		Mentions:  []Record{},
	}
}

func cloneRecord(base Record) Record {
	record := make(Record, len(base)+6)
	for key, value := range base {
		record[key] = value
	}
	return record
}

func queryValue(query map[string]string, key string) string {
	if len(query) == 0 {
		return ""
	}
	return strings.TrimSpace(query[key])
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
