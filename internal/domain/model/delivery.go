package model

import "time"

type SignatureStatus string

const (
	SignatureValid   SignatureStatus = "valid"
	SignatureInvalid SignatureStatus = "invalid"
	SignatureSkipped SignatureStatus = "skipped"
)

// WebhookDelivery is one raw callback as received, kept for audit whether or
// not its signature verified.
type WebhookDelivery struct {
	ID              string          `json:"id"`
	Object          string          `json:"object"`
	RawPayload      string          `json:"raw_payload"`
	SignatureHeader string          `json:"signature_header"`
	SignatureStatus SignatureStatus `json:"signature_status"`
	RemoteAddr      string          `json:"remote_addr"`
	ReceivedAt      time.Time       `json:"received_at"`
}

func NewWebhookDelivery(rawPayload, signatureHeader string, status SignatureStatus) WebhookDelivery {
	return WebhookDelivery{
		ID:              generateID(),
		RawPayload:      rawPayload,
		SignatureHeader: signatureHeader,
		SignatureStatus: status,
		ReceivedAt:      time.Now().UTC(),
	}
}

func (d WebhookDelivery) WithObject(object string) WebhookDelivery {
	d.Object = object
	return d
}

func (d WebhookDelivery) WithRemoteAddr(addr string) WebhookDelivery {
	d.RemoteAddr = addr
	return d
}

// Verified reports whether the callback carried a valid signature.
func (d WebhookDelivery) Verified() bool {
	return d.SignatureStatus == SignatureValid
}
