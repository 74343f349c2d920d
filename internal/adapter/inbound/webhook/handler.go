package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sourcegraph/conc/panics"

	"github.com/jonny/engagebot/internal/adapter/inbound/webhook/middleware"
	"github.com/jonny/engagebot/internal/adapter/inbound/webhook/parser"
	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/inbound"
	"github.com/jonny/engagebot/pkg/apierror"
)

// Summary is the acknowledgment body returned for every accepted callback.
type Summary struct {
	Received   int `json:"received"`
	Processed  int `json:"processed"`
	Ignored    int `json:"ignored"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

func (s *Summary) add(status inbound.OutcomeStatus) {
	switch status {
	case inbound.OutcomeDuplicate:
		s.Duplicates++
	case inbound.OutcomeIgnored:
		s.Ignored++
	default:
		s.Processed++
	}
}

// Handler is the HTTP handler for incoming platform callbacks.
type Handler struct {
	registry  inbound.ParserRegistry
	receiver  inbound.EventReceiverPort
	appSecret string
	logger    *slog.Logger
}

// NewHandler creates a Handler. An empty appSecret disables signature
// verification; events are then processed but flagged unverified.
func NewHandler(registry inbound.ParserRegistry, receiver inbound.EventReceiverPort, appSecret string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry:  registry,
		receiver:  receiver,
		appSecret: appSecret,
		logger:    logger,
	}
}

// ServeHTTP handles a callback:
//  1. Records the raw delivery with its signature verdict.
//  2. Rejects invalid signatures with 401.
//  3. Parses sub-items with the parser for the payload's object kind.
//  4. Hands each sub-item to the receiver, isolating failures per item.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, ok := middleware.RawBody(r)
	if !ok {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, middleware.MaxBodyBytes))
		if err != nil {
			apierror.Write(w, apierror.BadRequest("failed to read request body"))
			return
		}
	}

	header := SignatureHeader(r.Header)
	status := VerifySignature(body, header, h.appSecret)
	object, perr := parser.PeekObject(body)

	delivery := model.NewWebhookDelivery(string(body), header, status).
		WithObject(object).
		WithRemoteAddr(r.RemoteAddr)
	saved, err := h.receiver.RecordDelivery(r.Context(), delivery)
	if err != nil {
		h.logger.Error("failed to record delivery", "error", err)
		apierror.Write(w, apierror.Internal("failed to record delivery"))
		return
	}

	if status == model.SignatureInvalid {
		h.logger.Warn("rejected callback with invalid signature",
			"deliveryID", saved.ID, "remote", r.RemoteAddr)
		apierror.Write(w, apierror.Unauthorized("invalid webhook signature"))
		return
	}
	if status == model.SignatureSkipped {
		h.logger.Warn("app secret not configured, processing unverified callback", "deliveryID", saved.ID)
	}

	var summary Summary
	if perr != nil {
		h.logger.Warn("unparsable callback payload", "deliveryID", saved.ID, "error", perr)
		writeSummary(w, summary)
		return
	}

	p, err := h.registry.Resolve(object)
	if err != nil {
		h.logger.Info("ignoring callback for unsupported object", "deliveryID", saved.ID, "object", object)
		writeSummary(w, summary)
		return
	}

	events, err := p.Parse(body)
	if err != nil {
		h.logger.Warn("failed to parse callback", "deliveryID", saved.ID, "object", object, "error", err)
		writeSummary(w, summary)
		return
	}

	summary.Received = len(events)
	for _, ev := range events {
		ev = ev.WithDelivery(saved.ID, status == model.SignatureValid)
		outcome, err := h.receive(r.Context(), ev)
		if err != nil {
			summary.Failed++
			h.logger.Error("failed to process event",
				"deliveryID", saved.ID, "eventID", ev.ID, "externalID", ev.ExternalID,
				"kind", ev.Kind, "error", err)
			continue
		}
		summary.add(outcome.Status)
	}

	writeSummary(w, summary)
}

// receive runs one event through the receiver, converting a panic into an
// error so the remaining items still run.
func (h *Handler) receive(ctx context.Context, ev model.InboundEvent) (inbound.EventOutcome, error) {
	var (
		outcome inbound.EventOutcome
		err     error
		pc      panics.Catcher
	)
	pc.Try(func() {
		outcome, err = h.receiver.ReceiveEvent(ctx, ev)
	})
	if recovered := pc.Recovered(); recovered != nil {
		return inbound.EventOutcome{}, errors.New(recovered.String())
	}
	return outcome, err
}

func writeSummary(w http.ResponseWriter, s Summary) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(s)
}

// VerifyHandler answers the platform's subscription handshake
// (GET with hub.mode, hub.verify_token and hub.challenge).
func VerifyHandler(verifyToken string, logger *slog.Logger) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mode := q.Get("hub.mode")
		token := q.Get("hub.verify_token")
		challenge := q.Get("hub.challenge")

		if verifyToken == "" || mode != "subscribe" || token != verifyToken {
			logger.Warn("webhook verification failed", "mode", mode, "tokenConfigured", verifyToken != "")
			apierror.Write(w, apierror.Forbidden("verification failed"))
			return
		}

		logger.Info("webhook subscription verified")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, challenge)
	}
}
