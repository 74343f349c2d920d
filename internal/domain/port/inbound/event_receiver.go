package inbound

import (
	"context"

	"github.com/jonny/engagebot/internal/domain/model"
)

// CallbackParser turns a verified callback payload of one object kind into
// individual events.
type CallbackParser interface {
	Object() string
	Parse(payload []byte) ([]model.InboundEvent, error)
}

// ParserRegistry manages CallbackParser instances keyed by object kind.
type ParserRegistry interface {
	Register(parser CallbackParser)
	Resolve(object string) (CallbackParser, error)
	Objects() []string
}

type OutcomeStatus string

const (
	OutcomeReplied   OutcomeStatus = "replied"
	OutcomeRecorded  OutcomeStatus = "recorded"
	OutcomeDuplicate OutcomeStatus = "duplicate"
	OutcomeIgnored   OutcomeStatus = "ignored"
)

// EventOutcome is what the engine decided for one event.
type EventOutcome struct {
	Status      OutcomeStatus
	Interaction model.Interaction
	Reason      string
}

// EventReceiverPort delivers callbacks and their events to the decision engine.
type EventReceiverPort interface {
	RecordDelivery(ctx context.Context, delivery model.WebhookDelivery) (model.WebhookDelivery, error)
	ReceiveEvent(ctx context.Context, event model.InboundEvent) (EventOutcome, error)
}
