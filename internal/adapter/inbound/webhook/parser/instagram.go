package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonny/engagebot/internal/domain/model"
)

// ObjectInstagram is the callback object kind for Instagram accounts.
const ObjectInstagram = "instagram"

type igComment struct {
	ID          string   `json:"id"`
	CommentID   string   `json:"comment_id"`
	Text        string   `json:"text"`
	From        account  `json:"from"`
	CreatedTime flexTime `json:"created_time"`
	Media       struct {
		ID               string `json:"id"`
		MediaProductType string `json:"media_product_type"`
	} `json:"media"`
}

type igReaction struct {
	ID           string   `json:"id"`
	ReactionType string   `json:"reaction_type"`
	User         account  `json:"user"`
	CreatedTime  flexTime `json:"created_time"`
	Media        struct {
		ID string `json:"id"`
	} `json:"media"`
}

// InstagramParser handles callbacks with object "instagram": comment and
// reaction changes plus messaging (direct messages).
type InstagramParser struct{}

func NewInstagramParser() *InstagramParser {
	return &InstagramParser{}
}

func (p *InstagramParser) Object() string { return ObjectInstagram }

// Parse returns one event per usable sub-item. Sub-items with an unknown
// field, a missing author, or an echo flag are skipped.
func (p *InstagramParser) Parse(payload []byte) ([]model.InboundEvent, error) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	if env.Object != ObjectInstagram {
		return nil, fmt.Errorf("instagram: unexpected object %q", env.Object)
	}

	var events []model.InboundEvent
	for _, e := range env.Entry {
		events = append(events, parseMessaging(e.Messaging)...)

		for _, c := range e.Changes {
			switch c.Field {
			case "comments", "live_comments":
				var v igComment
				if err := json.Unmarshal(c.Value, &v); err != nil {
					continue
				}
				if ev, ok := igCommentEvent(v); ok {
					events = append(events, ev)
				}
			case "reactions":
				var v igReaction
				if err := json.Unmarshal(c.Value, &v); err != nil {
					continue
				}
				if ev, ok := igReactionEvent(v); ok {
					events = append(events, ev)
				}
			}
		}
	}
	return events, nil
}

func igCommentEvent(v igComment) (model.InboundEvent, bool) {
	handle := v.From.handle()
	if handle == "" {
		return model.InboundEvent{}, false
	}
	id := v.ID
	if id == "" {
		id = v.CommentID
	}
	source := model.SourcePost
	if strings.EqualFold(v.Media.MediaProductType, "STORY") {
		source = model.SourceStory
	}
	ev := model.NewInboundEvent(model.EventKindComment, id, handle, v.Text, v.CreatedTime.Time).
		WithSender(v.From.ID).
		WithContent(v.Media.ID, source)
	return ev, true
}

func igReactionEvent(v igReaction) (model.InboundEvent, bool) {
	handle := v.User.handle()
	if handle == "" {
		return model.InboundEvent{}, false
	}
	ev := model.NewInboundEvent(model.EventKindReaction, v.ID, handle, "", v.CreatedTime.Time).
		WithSender(v.User.ID).
		WithContent(v.Media.ID, model.SourcePost).
		WithReaction(v.ReactionType)
	return ev, true
}

// parseMessaging turns messaging entries into direct message events. Echoes
// of messages the account itself sent are dropped.
func parseMessaging(items []messagingEvent) []model.InboundEvent {
	var events []model.InboundEvent
	for _, m := range items {
		if m.Message == nil || m.Message.IsEcho || m.Sender.ID == "" {
			continue
		}
		ev := model.NewInboundEvent(model.EventKindDirectMessage, m.Message.MID, m.Sender.handle(), m.Message.Text, m.Timestamp.Time).
			WithSender(m.Sender.ID).
			WithContent("", model.SourceDM)
		events = append(events, ev)
	}
	return events
}
