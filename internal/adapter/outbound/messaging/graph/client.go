package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

const (
	DefaultInstagramBaseURL = "https://graph.instagram.com"
	DefaultGraphBaseURL     = "https://graph.facebook.com/v18.0"

	minTokenLength = 50

	encodingForm  = "form"
	encodingQuery = "query"
)

// Config holds configuration for the Graph client.
type Config struct {
	InstagramBaseURL string
	GraphBaseURL     string
	// AccountID is the page or Instagram business account that sends direct
	// messages. Empty means "me".
	AccountID   string
	AccessToken string
	Timeout     time.Duration
}

// Client implements outbound.Messenger against the Graph messaging API.
type Client struct {
	config     Config
	httpClient *http.Client
	settings   outbound.SettingsRepository
	logger     *slog.Logger
}

var _ outbound.Messenger = (*Client)(nil)

// NewClient creates a Client. When settings is non-nil its page access token
// takes precedence over cfg.AccessToken.
func NewClient(cfg Config, settings outbound.SettingsRepository, logger *slog.Logger) *Client {
	if cfg.InstagramBaseURL == "" {
		cfg.InstagramBaseURL = DefaultInstagramBaseURL
	}
	if cfg.GraphBaseURL == "" {
		cfg.GraphBaseURL = DefaultGraphBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		settings:   settings,
		logger:     logger,
	}
}

// --- Graph API types ---

type replyResponse struct {
	ID string `json:"id"`
}

type messageResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

type errorEnvelope struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Subcode   int    `json:"error_subcode"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// apiError is a non-2xx answer from the Graph API.
type apiError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *apiError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("graph api status %d code %d: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("graph api status %d: %s", e.StatusCode, e.Message)
}

// --- Messenger implementation ---

// ReplyToComment posts message as a public reply under a comment. Instagram
// comment ids are purely numeric; Page comment ids take the form
// "<post>_<comment>" and are answered through the Page comments edge.
func (c *Client) ReplyToComment(ctx context.Context, commentID, message string) (outbound.DispatchReceipt, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return outbound.DispatchReceipt{}, err
	}
	commentID = strings.TrimSpace(commentID)
	postID, pageCommentID, isPage := strings.Cut(commentID, "_")
	if isPage && (!isNumeric(postID) || !isNumeric(pageCommentID)) || !isPage && !isNumeric(commentID) {
		return outbound.DispatchReceipt{}, &outbound.DispatchError{
			Reason: outbound.ReasonInvalidTarget,
			Err:    fmt.Errorf("comment id %q is not numeric", commentID),
		}
	}

	endpoint := strings.TrimRight(c.config.InstagramBaseURL, "/") + "/" + commentID + "/replies"
	if isPage {
		endpoint = strings.TrimRight(c.config.GraphBaseURL, "/") + "/" + commentID + "/comments"
	}
	params := url.Values{}
	params.Set("message", message)
	params.Set("access_token", token)

	body, encoding, err := c.post(ctx, endpoint, params)
	if err != nil {
		return outbound.DispatchReceipt{}, err
	}
	var resp replyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return outbound.DispatchReceipt{}, &outbound.DispatchError{Reason: outbound.ReasonUnknown, Err: fmt.Errorf("decoding reply response: %w", err)}
	}
	return outbound.DispatchReceipt{MessageID: resp.ID, Encoding: encoding}, nil
}

// SendDirectMessage sends message privately to the user with recipientID.
func (c *Client) SendDirectMessage(ctx context.Context, recipientID, message string) (outbound.DispatchReceipt, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return outbound.DispatchReceipt{}, err
	}
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return outbound.DispatchReceipt{}, &outbound.DispatchError{
			Reason: outbound.ReasonInvalidTarget,
			Err:    errors.New("recipient id is empty"),
		}
	}

	account := c.config.AccountID
	if account == "" {
		account = "me"
	}
	recipient, _ := json.Marshal(map[string]string{"id": recipientID})
	text, _ := json.Marshal(map[string]string{"text": message})

	endpoint := strings.TrimRight(c.config.GraphBaseURL, "/") + "/" + account + "/messages"
	params := url.Values{}
	params.Set("recipient", string(recipient))
	params.Set("message", string(text))
	params.Set("access_token", token)

	body, encoding, err := c.post(ctx, endpoint, params)
	if err != nil {
		return outbound.DispatchReceipt{}, err
	}
	var resp messageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return outbound.DispatchReceipt{}, &outbound.DispatchError{Reason: outbound.ReasonUnknown, Err: fmt.Errorf("decoding message response: %w", err)}
	}
	return outbound.DispatchReceipt{MessageID: resp.MessageID, Encoding: encoding}, nil
}

// --- Internal helpers ---

// post sends params form-encoded and, if the API refuses that, once more as a
// query string.
func (c *Client) post(ctx context.Context, endpoint string, params url.Values) ([]byte, string, error) {
	body, err := c.do(ctx, endpoint, params, encodingForm)
	if err == nil {
		return body, encodingForm, nil
	}
	if ctx.Err() != nil {
		return nil, "", classify(err)
	}
	c.logger.Debug("form-encoded request refused, retrying with query string", "endpoint", endpoint, "error", err)

	body, err = c.do(ctx, endpoint, params, encodingQuery)
	if err != nil {
		return nil, "", classify(err)
	}
	return body, encodingQuery, nil
}

func (c *Client) do(ctx context.Context, endpoint string, params url.Values, encoding string) ([]byte, error) {
	var (
		req *http.Request
		err error
	)
	switch encoding {
	case encodingQuery:
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+params.Encode(), nil)
	default:
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	}
	if err != nil {
		return nil, fmt.Errorf("creating graph request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling graph api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading graph response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &apiError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var env errorEnvelope
		if json.Unmarshal(respBody, &env) == nil && env.Error.Message != "" {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}
	return respBody, nil
}

// accessToken returns the first usable token: settings, then config.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.settings != nil {
		s, err := c.settings.Get(ctx)
		if err != nil {
			c.logger.Warn("loading settings for access token failed", "error", err)
		} else if token, ok := NormalizeToken(s.PageAccessToken); ok {
			return token, nil
		}
	}
	if token, ok := NormalizeToken(c.config.AccessToken); ok {
		return token, nil
	}
	return "", &outbound.DispatchError{
		Reason: outbound.ReasonMissingCredential,
		Err:    errors.New("no valid page access token configured"),
	}
}

// NormalizeToken strips whitespace and control characters from raw and
// reports whether the result looks like a usable access token.
func NormalizeToken(raw string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	if len(cleaned) < minTokenLength {
		return "", false
	}
	for _, r := range cleaned {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "", false
		}
	}
	return cleaned, true
}

// classify maps an API or transport error onto a DispatchError.
func classify(err error) error {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		return &outbound.DispatchError{Reason: outbound.ReasonUnknown, Err: err}
	}
	return &outbound.DispatchError{
		Reason:     reasonFor(apiErr.StatusCode, apiErr.Code, apiErr.Message),
		StatusCode: apiErr.StatusCode,
		Err:        err,
	}
}

func reasonFor(status, code int, message string) outbound.DispatchReason {
	switch {
	case status == http.StatusUnauthorized || code == 190:
		return outbound.ReasonMissingCredential
	case status == http.StatusNotFound:
		return outbound.ReasonInvalidTarget
	case status == http.StatusForbidden || code == 10 || (code >= 200 && code <= 299):
		return outbound.ReasonPermissionDenied
	case code == 551 || (status == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "recipient")):
		return outbound.ReasonRecipientUnreachable
	default:
		return outbound.ReasonUnknown
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
