package parser

import (
	"encoding/json"
	"fmt"

	"github.com/jonny/engagebot/internal/domain/model"
)

// ObjectPage is the callback object kind for Facebook Pages.
const ObjectPage = "page"

type pageFeedValue struct {
	Item        string   `json:"item"`
	Verb        string   `json:"verb"`
	CommentID   string   `json:"comment_id"`
	PostID      string   `json:"post_id"`
	Message     string   `json:"message"`
	From        account  `json:"from"`
	CreatedTime flexTime `json:"created_time"`
}

// PageParser handles callbacks with object "page": new comments from the
// feed field plus Messenger messaging.
type PageParser struct{}

func NewPageParser() *PageParser {
	return &PageParser{}
}

func (p *PageParser) Object() string { return ObjectPage }

func (p *PageParser) Parse(payload []byte) ([]model.InboundEvent, error) {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return nil, err
	}
	if env.Object != ObjectPage {
		return nil, fmt.Errorf("page: unexpected object %q", env.Object)
	}

	var events []model.InboundEvent
	for _, e := range env.Entry {
		events = append(events, parseMessaging(e.Messaging)...)

		for _, c := range e.Changes {
			if c.Field != "feed" {
				continue
			}
			var v pageFeedValue
			if err := json.Unmarshal(c.Value, &v); err != nil {
				continue
			}
			if v.Item != "comment" || (v.Verb != "" && v.Verb != "add") {
				continue
			}
			// Comments posted by the page itself arrive with from.id == entry id.
			if v.From.handle() == "" || v.From.ID == e.ID {
				continue
			}
			ev := model.NewInboundEvent(model.EventKindComment, v.CommentID, v.From.handle(), v.Message, v.CreatedTime.Time).
				WithSender(v.From.ID).
				WithContent(v.PostID, model.SourcePost)
			events = append(events, ev)
		}
	}
	return events, nil
}
