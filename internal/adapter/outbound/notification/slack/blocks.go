package slack

import (
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// quote truncates s and renders it as a Slack block quote.
func quote(s string) string {
	const max = 500
	if r := []rune(s); len(r) > max {
		s = string(r[:max]) + "…"
	}
	if s == "" {
		return "> _(empty)_"
	}
	return "> " + strings.ReplaceAll(s, "\n", "\n> ")
}

// BuildDispatchFailureBlocks constructs Block Kit blocks for a failed reply.
func BuildDispatchFailureBlocks(n outbound.DispatchFailureNotification) []slackapi.Block {
	header := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf(":warning: *Reply to @%s could not be delivered*", n.SenderHandle), false, false),
		nil, nil,
	)

	fields := []*slackapi.TextBlockObject{
		slackapi.NewTextBlockObject(slackapi.MarkdownType, fmt.Sprintf("*Method*\n%s", n.Method), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType, fmt.Sprintf("*Reason*\n`%s`", n.Reason), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType, fmt.Sprintf("*Interaction*\n`%s`", n.InteractionID), false, false),
	}
	details := slackapi.NewSectionBlock(nil, fields, nil)

	blocks := []slackapi.Block{header, slackapi.NewDividerBlock(), details}
	if n.Message != "" {
		blocks = append(blocks, slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType, quote(n.Message), false, false), nil, nil))
	}
	if n.Detail != "" {
		blocks = append(blocks, slackapi.NewContextBlock("",
			slackapi.NewTextBlockObject(slackapi.MarkdownType, n.Detail, false, false)))
	}
	return blocks
}

// BuildLeadBlocks constructs Block Kit blocks for a high-priority lead.
func BuildLeadBlocks(n outbound.LeadNotification) []slackapi.Block {
	header := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf(":star: *New %s-priority lead from @%s*", n.Priority, n.SenderHandle), false, false),
		nil, nil,
	)
	message := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType, quote(n.Message), false, false), nil, nil)

	blocks := []slackapi.Block{header, message}

	var fields []*slackapi.TextBlockObject
	if len(n.JobKeywords) > 0 {
		fields = append(fields, slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Job keywords*\n%s", strings.Join(n.JobKeywords, ", ")), false, false))
	}
	if len(n.Topics) > 0 {
		fields = append(fields, slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Topics*\n%s", strings.Join(n.Topics, ", ")), false, false))
	}
	if len(fields) > 0 {
		blocks = append(blocks, slackapi.NewSectionBlock(nil, fields, nil))
	}
	blocks = append(blocks, slackapi.NewContextBlock("",
		slackapi.NewTextBlockObject(slackapi.MarkdownType, fmt.Sprintf("Interaction `%s`", n.InteractionID), false, false)))
	return blocks
}
