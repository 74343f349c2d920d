package outbound

import (
	"context"
	"errors"
	"fmt"
)

// DispatchReason classifies why an outbound message could not be delivered.
type DispatchReason string

const (
	ReasonMissingCredential    DispatchReason = "missing_credential"
	ReasonInvalidTarget        DispatchReason = "invalid_target"
	ReasonPermissionDenied     DispatchReason = "permission_denied"
	ReasonRecipientUnreachable DispatchReason = "recipient_unreachable"
	ReasonUnknown              DispatchReason = "unknown"
)

// DispatchError is returned by Messenger implementations for every failed
// delivery.
type DispatchError struct {
	Reason     DispatchReason
	StatusCode int
	Err        error
}

func (e *DispatchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dispatch %s (status %d): %v", e.Reason, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("dispatch %s: %v", e.Reason, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// ReasonOf extracts the DispatchReason from err, defaulting to ReasonUnknown.
func ReasonOf(err error) DispatchReason {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Reason
	}
	return ReasonUnknown
}

// DispatchReceipt describes a delivered message.
type DispatchReceipt struct {
	MessageID string
	// Encoding is the request encoding the API accepted ("form" or "query").
	Encoding string
}

// Messenger delivers responses through the platform's messaging API.
type Messenger interface {
	ReplyToComment(ctx context.Context, commentID, message string) (DispatchReceipt, error)
	SendDirectMessage(ctx context.Context, recipientID, message string) (DispatchReceipt, error)
}
