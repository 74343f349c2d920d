package service

import (
	"strings"

	"github.com/jonny/engagebot/pkg/textnorm"
)

// ReasonAutoReplyDetected is recorded on events dropped by the loop guard.
const ReasonAutoReplyDetected = "auto-reply message detected"

// DefaultLoopPhrases are fragments of replies this service (or a previous
// deployment of it) posts publicly.
var DefaultLoopPhrases = []string{
	"¡Gracias por comentar!",
	"Gracias por comentar",
	"Lamentamos tu experiencia",
	"contáctanos por DM",
	"Thanks for your comment!",
}

// LoopGuard recognizes the service's own replies when they come back as
// inbound comments.
type LoopGuard struct {
	phrases []string
}

// NewLoopGuard builds a guard over phrases plus the texts the engine itself
// can emit. Matching is case and accent insensitive.
func NewLoopGuard(phrases ...string) *LoopGuard {
	all := make([]string, 0, len(phrases)+2)
	all = append(all, phrases...)
	all = append(all, GenericFallbackReply, empathyFragment)

	seen := make(map[string]bool, len(all))
	g := &LoopGuard{}
	for _, p := range all {
		f := textnorm.Fold(p)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		g.phrases = append(g.phrases, f)
	}
	return g
}

// Matches reports whether text contains any known auto-reply phrasing.
func (g *LoopGuard) Matches(text string) bool {
	folded := textnorm.Fold(text)
	if folded == "" {
		return false
	}
	for _, p := range g.phrases {
		if strings.Contains(folded, p) {
			return true
		}
	}
	return false
}

// Phrases returns the folded phrase list.
func (g *LoopGuard) Phrases() []string {
	out := make([]string, len(g.phrases))
	copy(out, g.phrases)
	return out
}
