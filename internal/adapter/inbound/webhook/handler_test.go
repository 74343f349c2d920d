package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jonny/engagebot/internal/adapter/inbound/webhook/parser"
	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/inbound"
)

// mockReceiver is a test double implementing inbound.EventReceiverPort.
type mockReceiver struct {
	mu          sync.Mutex
	deliveries  []model.WebhookDelivery
	events      []model.InboundEvent
	deliveryErr error
	outcome     func(ev model.InboundEvent) (inbound.EventOutcome, error)
}

var _ inbound.EventReceiverPort = (*mockReceiver)(nil)

func (m *mockReceiver) RecordDelivery(_ context.Context, d model.WebhookDelivery) (model.WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deliveryErr != nil {
		return model.WebhookDelivery{}, m.deliveryErr
	}
	m.deliveries = append(m.deliveries, d)
	return d, nil
}

func (m *mockReceiver) ReceiveEvent(_ context.Context, ev model.InboundEvent) (inbound.EventOutcome, error) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
	if m.outcome != nil {
		return m.outcome(ev)
	}
	return inbound.EventOutcome{Status: inbound.OutcomeReplied}, nil
}

const twoComments = `{"object":"instagram","entry":[{"id":"1","changes":[
	{"field":"comments","value":{"id":"101","text":"Hola","from":{"id":"9","username":"alice"}}},
	{"field":"comments","value":{"id":"102","text":"Gracias","from":{"id":"8","username":"bob"}}}
]}]}`

func post(t *testing.T, h http.Handler, body, signature string) (*httptest.ResponseRecorder, Summary) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(HeaderSignature256, signature)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var s Summary
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
			t.Fatalf("decoding summary: %v", err)
		}
	}
	return rec, s
}

func TestHandler_ValidSignatureProcessesEveryItem(t *testing.T) {
	recv := &mockReceiver{}
	h := NewHandler(parser.NewDefaultRegistry(), recv, "secret", nil)

	rec, s := post(t, h, twoComments, sign256([]byte(twoComments), "secret"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if s.Received != 2 || s.Processed != 2 {
		t.Errorf("unexpected summary %+v", s)
	}
	if len(recv.deliveries) != 1 || recv.deliveries[0].SignatureStatus != model.SignatureValid {
		t.Fatalf("unexpected deliveries %+v", recv.deliveries)
	}
	if recv.deliveries[0].Object != "instagram" || recv.deliveries[0].RawPayload != twoComments {
		t.Errorf("delivery did not capture the raw callback: %+v", recv.deliveries[0])
	}
	for _, ev := range recv.events {
		if ev.DeliveryID != recv.deliveries[0].ID || !ev.Verified {
			t.Errorf("event not linked to verified delivery: %+v", ev)
		}
	}
}

func TestHandler_InvalidSignatureIsRecordedAndRejected(t *testing.T) {
	recv := &mockReceiver{}
	h := NewHandler(parser.NewDefaultRegistry(), recv, "secret", nil)

	rec, _ := post(t, h, twoComments, sign256([]byte(twoComments), "wrong"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if len(recv.deliveries) != 1 || recv.deliveries[0].SignatureStatus != model.SignatureInvalid {
		t.Errorf("invalid delivery not recorded: %+v", recv.deliveries)
	}
	if len(recv.events) != 0 {
		t.Errorf("expected no events, got %d", len(recv.events))
	}

	rec, _ = post(t, h, twoComments, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing header status = %d, want 401", rec.Code)
	}
}

func TestHandler_NoSecretProcessesUnverified(t *testing.T) {
	recv := &mockReceiver{}
	h := NewHandler(parser.NewDefaultRegistry(), recv, "", nil)

	rec, s := post(t, h, twoComments, "")
	if rec.Code != http.StatusOK || s.Processed != 2 {
		t.Fatalf("status = %d summary %+v", rec.Code, s)
	}
	if recv.deliveries[0].SignatureStatus != model.SignatureSkipped {
		t.Errorf("signature status = %s", recv.deliveries[0].SignatureStatus)
	}
	for _, ev := range recv.events {
		if ev.Verified {
			t.Error("event should be flagged unverified")
		}
	}
}

func TestHandler_DeliveryPersistenceFailure(t *testing.T) {
	recv := &mockReceiver{deliveryErr: errors.New("db down")}
	h := NewHandler(parser.NewDefaultRegistry(), recv, "", nil)

	rec, _ := post(t, h, twoComments, "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandler_OutcomesAndFailuresAreCounted(t *testing.T) {
	body := `{"object":"instagram","entry":[{"changes":[
		{"field":"comments","value":{"id":"1","text":"a","from":{"id":"1","username":"a"}}},
		{"field":"comments","value":{"id":"2","text":"b","from":{"id":"2","username":"b"}}},
		{"field":"comments","value":{"id":"3","text":"c","from":{"id":"3","username":"c"}}},
		{"field":"comments","value":{"id":"4","text":"d","from":{"id":"4","username":"d"}}},
		{"field":"comments","value":{"id":"5","text":"e","from":{"id":"5","username":"e"}}}
	]}]}`
	recv := &mockReceiver{outcome: func(ev model.InboundEvent) (inbound.EventOutcome, error) {
		switch ev.ExternalID {
		case "1":
			return inbound.EventOutcome{Status: inbound.OutcomeDuplicate}, nil
		case "2":
			return inbound.EventOutcome{Status: inbound.OutcomeIgnored}, nil
		case "3":
			return inbound.EventOutcome{}, errors.New("persistence failed")
		case "4":
			panic("classifier exploded")
		default:
			return inbound.EventOutcome{Status: inbound.OutcomeRecorded}, nil
		}
	}}
	h := NewHandler(parser.NewDefaultRegistry(), recv, "", nil)

	rec, s := post(t, h, body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	want := Summary{Received: 5, Processed: 1, Ignored: 1, Duplicates: 1, Failed: 2}
	if s != want {
		t.Errorf("summary = %+v, want %+v", s, want)
	}
	if len(recv.events) != 5 {
		t.Errorf("expected every item to reach the receiver, got %d", len(recv.events))
	}
}

func TestHandler_UnknownOrUnparsablePayloadIsAcknowledged(t *testing.T) {
	for _, body := range []string{
		`{"object":"whatsapp_business_account","entry":[]}`,
		`not json at all`,
		`{"object":"instagram","entry":"wrong"}`,
	} {
		recv := &mockReceiver{}
		h := NewHandler(parser.NewDefaultRegistry(), recv, "", nil)
		rec, s := post(t, h, body, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%q: status = %d, want 200", body, rec.Code)
		}
		if s.Received != 0 {
			t.Errorf("%q: received = %d", body, s.Received)
		}
		if len(recv.deliveries) != 1 {
			t.Errorf("%q: delivery not recorded", body)
		}
	}
}

func TestVerifyHandler(t *testing.T) {
	h := VerifyHandler("tok", nil)

	tests := []struct {
		name  string
		query string
		code  int
		body  string
	}{
		{"matching token", "hub.mode=subscribe&hub.verify_token=tok&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=tok&hub.challenge=12345", http.StatusForbidden, ""},
		{"missing params", "", http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil))
			if rec.Code != tt.code {
				t.Errorf("status = %d, want %d", rec.Code, tt.code)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.body)
			}
		})
	}

	rec := httptest.NewRecorder()
	VerifyHandler("", nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=&hub.challenge=1", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("unconfigured token status = %d, want 403", rec.Code)
	}
}
