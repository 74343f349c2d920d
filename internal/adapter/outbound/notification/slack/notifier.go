package slack

import (
	"context"
	"fmt"
	"net/http"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// Config holds Slack notifier configuration.
type Config struct {
	BotToken string
	Channel  string
	// APIURL overrides the Slack Web API base URL (must end with "/").
	APIURL string
	// Timeout bounds each Web API request. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout is the per-request limit for Slack API calls.
const DefaultTimeout = 10 * time.Second

// Notifier implements outbound.Notifier via the Slack API.
type Notifier struct {
	client *slackapi.Client
	config Config
}

var _ outbound.Notifier = (*Notifier)(nil)

// NewNotifier creates a new Slack Notifier.
func NewNotifier(cfg Config) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	opts := []slackapi.Option{
		slackapi.OptionHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.APIURL != "" {
		opts = append(opts, slackapi.OptionAPIURL(cfg.APIURL))
	}
	return &Notifier{
		client: slackapi.New(cfg.BotToken, opts...),
		config: cfg,
	}
}

// NotifyDispatchFailure posts a card describing a reply that failed to send.
func (n *Notifier) NotifyDispatchFailure(ctx context.Context, f outbound.DispatchFailureNotification) error {
	_, _, err := n.client.PostMessageContext(ctx, n.config.Channel,
		slackapi.MsgOptionBlocks(BuildDispatchFailureBlocks(f)...),
		slackapi.MsgOptionText(fmt.Sprintf("Reply to @%s failed: %s", f.SenderHandle, f.Reason), false),
	)
	if err != nil {
		return fmt.Errorf("slack NotifyDispatchFailure: %w", err)
	}
	return nil
}

// NotifyLead posts a card for a high-priority job-interest interaction.
func (n *Notifier) NotifyLead(ctx context.Context, l outbound.LeadNotification) error {
	_, _, err := n.client.PostMessageContext(ctx, n.config.Channel,
		slackapi.MsgOptionBlocks(BuildLeadBlocks(l)...),
		slackapi.MsgOptionText(fmt.Sprintf("New lead from @%s", l.SenderHandle), false),
	)
	if err != nil {
		return fmt.Errorf("slack NotifyLead: %w", err)
	}
	return nil
}
