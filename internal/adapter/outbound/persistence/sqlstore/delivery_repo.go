package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonny/engagebot/internal/domain/model"
)

// DeliveryRepo persists raw webhook deliveries.
type DeliveryRepo struct {
	store *Store
}

func NewDeliveryRepo(store *Store) *DeliveryRepo {
	return &DeliveryRepo{store: store}
}

func (r *DeliveryRepo) Create(ctx context.Context, d model.WebhookDelivery) (model.WebhookDelivery, error) {
	const q = `INSERT INTO webhook_deliveries
		(id, object, raw_payload, signature_header, signature_status, remote_addr, received_at)
		VALUES (?,?,?,?,?,?,?)`

	err := r.store.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.store.exec(ctx, q,
			d.ID, d.Object, d.RawPayload, d.SignatureHeader,
			string(d.SignatureStatus), d.RemoteAddr, d.ReceivedAt.UTC(),
		)
		return err
	})
	if err != nil {
		return model.WebhookDelivery{}, mapWriteError("inserting delivery", err)
	}
	return d, nil
}

func (r *DeliveryRepo) GetByID(ctx context.Context, id string) (model.WebhookDelivery, error) {
	const q = `SELECT id, object, raw_payload, signature_header, signature_status, remote_addr, received_at
		FROM webhook_deliveries WHERE id = ?`

	var (
		d      model.WebhookDelivery
		status string
	)
	err := r.store.queryRow(ctx, q, id).Scan(
		&d.ID, &d.Object, &d.RawPayload, &d.SignatureHeader, &status, &d.RemoteAddr, &d.ReceivedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WebhookDelivery{}, notFound("delivery", id)
	}
	if err != nil {
		return model.WebhookDelivery{}, fmt.Errorf("fetching delivery: %w", err)
	}
	d.SignatureStatus = model.SignatureStatus(status)
	d.ReceivedAt = d.ReceivedAt.UTC()
	return d, nil
}
