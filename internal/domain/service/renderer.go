package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonny/engagebot/internal/domain/model"
)

// GenericFallbackReply is used when a template renders to nothing. It is also
// the body of the seed template.
const GenericFallbackReply = "¡Gracias por comentar! 😊"

const (
	empathyFragment  = "Lamentamos tu experiencia"
	defaultPostTitle = "Publicación"
)

var (
	unresolvedToken = regexp.MustCompile(`@?\{[A-Za-z_]+\}`)
	spaceRun        = regexp.MustCompile(`[ \t]{2,}`)
	blankRun        = regexp.MustCompile(`\n{3,}`)
	spaceBeforeNL   = regexp.MustCompile(`[ \t]+\n`)
)

// EmpathyReply is the canned message sent privately to unhappy commenters.
func EmpathyReply(handle string) string {
	return fmt.Sprintf("Hola @%s! 👋 %s. Por favor, contáctanos por DM para resolver esto de manera personalizada. 🙏",
		handle, empathyFragment)
}

// RenderVars are the values available to template placeholders.
type RenderVars struct {
	Username        string
	Sentiment       model.Sentiment
	CompanyName     string
	PostTitle       string
	SmartReply      string
	OriginalComment string
	Topics          []string
	JobKeywords     []string
	Priority        model.Priority
}

// Render substitutes placeholders in body. Unknown placeholders collapse to
// nothing and the resulting whitespace is normalized.
func Render(body string, v RenderVars) string {
	postTitle := v.PostTitle
	if postTitle == "" {
		postTitle = defaultPostTitle
	}
	r := strings.NewReplacer(
		"@{username}", "@"+v.Username,
		"{username}", v.Username,
		"{sentiment}", string(v.Sentiment),
		"{company_name}", v.CompanyName,
		"{post_title}", postTitle,
		"{smart_reply}", v.SmartReply,
		"{original_comment}", v.OriginalComment,
		"{topics}", strings.Join(v.Topics, ", "),
		"{job_keywords}", strings.Join(v.JobKeywords, ", "),
		"{priority}", string(v.Priority),
	)
	out := r.Replace(body)
	out = unresolvedToken.ReplaceAllString(out, "")
	out = spaceRun.ReplaceAllString(out, " ")
	out = spaceBeforeNL.ReplaceAllString(out, "\n")
	out = blankRun.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// Reply is the rendered response and where it goes.
type Reply struct {
	Text       string
	MoveToDM   bool
	TemplateID string
	Category   model.TemplateCategory
	// Empathy is set when the negative-sentiment override replaced the text.
	Empathy bool
}

// BuildReply renders tmpl for a classified message and decides the route.
func BuildReply(tmpl model.ReplyTemplate, c model.Classification, v RenderVars) Reply {
	reply := Reply{
		TemplateID: tmpl.ID,
		Category:   tmpl.Category,
		MoveToDM:   c.Suggested.ShouldMoveToDM,
	}
	rendered := Render(tmpl.Body, v)

	negative := c.Sentiment == model.SentimentNegative
	if negative && tmpl.Category != model.CategoryInquiry &&
		(rendered == "" || rendered == GenericFallbackReply) {
		reply.Text = EmpathyReply(v.Username)
		reply.MoveToDM = true
		reply.Empathy = true
		return reply
	}
	if negative && tmpl.Category == model.CategoryInquiry {
		reply.MoveToDM = true
	}

	switch {
	case rendered != "":
		reply.Text = rendered
	case c.Suggested.Message != "":
		reply.Text = c.Suggested.Message
	default:
		reply.Text = GenericFallbackReply
	}
	reply.Text = ensureMention(reply.Text, v.Username)
	return reply
}

// ensureMention makes sure the reply addresses the sender by @handle.
func ensureMention(text, handle string) string {
	if handle == "" {
		return text
	}
	mention := "@" + handle
	if strings.Contains(strings.ToLower(text), strings.ToLower(mention)) {
		return text
	}
	return mention + " " + text
}
