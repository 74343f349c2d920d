package outbound

import "context"

type DispatchFailureNotification struct {
	InteractionID string
	SenderHandle  string
	Method        string
	Reason        DispatchReason
	Detail        string
	Message       string
}

type LeadNotification struct {
	InteractionID string
	SenderHandle  string
	Message       string
	Priority      string
	JobKeywords   []string
	Topics        []string
}

// Notifier alerts operators about things the pipeline cannot fix on its own.
type Notifier interface {
	NotifyDispatchFailure(ctx context.Context, n DispatchFailureNotification) error
	NotifyLead(ctx context.Context, n LeadNotification) error
}
