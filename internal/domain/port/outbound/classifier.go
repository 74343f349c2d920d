package outbound

import "github.com/jonny/engagebot/internal/domain/model"

// Classifier scores free text. Implementations must be deterministic and
// safe for concurrent use.
type Classifier interface {
	Classify(text string) model.Classification
	// CannedReplies lists every suggested-reply text Classify can return, so
	// the engine can recognize its own replies coming back.
	CannedReplies() []string
}
