package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// EventRepo persists normalized inbound events and their processing state.
type EventRepo struct {
	store *Store
}

func NewEventRepo(store *Store) *EventRepo {
	return &EventRepo{store: store}
}

const eventColumns = `id, delivery_id, external_id, kind, sender_handle, sender_id, text,
	content_id, source, reaction_type, verified, state, reason, interaction_id,
	occurred_at, created_at, updated_at, processed_at`

func (r *EventRepo) Create(ctx context.Context, ev model.InboundEvent) (model.InboundEvent, error) {
	q := `INSERT INTO inbound_events (` + eventColumns + `)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

	err := r.store.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.store.exec(ctx, q,
			ev.ID, ev.DeliveryID, ev.ExternalID, string(ev.Kind),
			ev.SenderHandle, ev.SenderID, ev.Text, ev.ContentID,
			string(ev.Source), ev.ReactionType, ev.Verified,
			string(ev.State), ev.Reason, ev.InteractionID,
			ev.OccurredAt.UTC(), ev.CreatedAt.UTC(), ev.UpdatedAt.UTC(),
			nullableTime(ev.ProcessedAt),
		)
		return err
	})
	if err != nil {
		return model.InboundEvent{}, mapWriteError("inserting event", err)
	}
	return ev, nil
}

func (r *EventRepo) GetByID(ctx context.Context, id string) (model.InboundEvent, error) {
	q := `SELECT ` + eventColumns + ` FROM inbound_events WHERE id = ?`
	ev, err := scanEvent(r.store.queryRow(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.InboundEvent{}, notFound("event", id)
	}
	if err != nil {
		return model.InboundEvent{}, fmt.Errorf("fetching event: %w", err)
	}
	return ev, nil
}

// Update writes the processing outcome of an event.
func (r *EventRepo) Update(ctx context.Context, ev model.InboundEvent) (model.InboundEvent, error) {
	const q = `UPDATE inbound_events SET
		state=?, reason=?, interaction_id=?, updated_at=?, processed_at=?
		WHERE id=?`

	var affected int64
	err := r.store.withRetry(ctx, func(ctx context.Context) error {
		res, err := r.store.exec(ctx, q,
			string(ev.State), ev.Reason, ev.InteractionID,
			ev.UpdatedAt.UTC(), nullableTime(ev.ProcessedAt), ev.ID,
		)
		if err != nil {
			return err
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return model.InboundEvent{}, fmt.Errorf("updating event: %w", err)
	}
	if affected == 0 {
		return model.InboundEvent{}, notFound("event", ev.ID)
	}
	return ev, nil
}

var allowedEventOrderColumns = map[string]bool{
	"created_at": true, "occurred_at": true, "kind": true, "state": true,
}

func (r *EventRepo) List(ctx context.Context, filter outbound.EventFilter, page outbound.PageRequest) (outbound.PageResult[model.InboundEvent], error) {
	where, args := buildEventWhere(filter)

	var total int64
	if err := r.store.queryRow(ctx, "SELECT COUNT(*) FROM inbound_events"+where, args...).Scan(&total); err != nil {
		return outbound.PageResult[model.InboundEvent]{}, fmt.Errorf("counting events: %w", err)
	}

	tail, size, err := pageClause(page, allowedEventOrderColumns, "created_at")
	if err != nil {
		return outbound.PageResult[model.InboundEvent]{}, err
	}
	rows, err := r.store.query(ctx, "SELECT "+eventColumns+" FROM inbound_events"+where+tail,
		append(args, size, page.Page*size)...)
	if err != nil {
		return outbound.PageResult[model.InboundEvent]{}, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var items []model.InboundEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return outbound.PageResult[model.InboundEvent]{}, fmt.Errorf("scanning event: %w", err)
		}
		items = append(items, ev)
	}
	if err := rows.Err(); err != nil {
		return outbound.PageResult[model.InboundEvent]{}, fmt.Errorf("iterating events: %w", err)
	}

	return outbound.PageResult[model.InboundEvent]{
		Items:      items,
		TotalCount: total,
		Page:       page.Page,
		Size:       size,
	}, nil
}

func buildEventWhere(f outbound.EventFilter) (string, []any) {
	var w whereBuilder
	if f.DeliveryID != "" {
		w.add("delivery_id = ?", f.DeliveryID)
	}
	if f.Kind != "" {
		w.add("kind = ?", f.Kind)
	}
	if f.State != "" {
		w.add("state = ?", f.State)
	}
	w.timeRange("created_at", f.Since, f.Until)
	return w.build()
}

func scanEvent(s rowScanner) (model.InboundEvent, error) {
	var (
		ev                  model.InboundEvent
		kind, source, state string
		processedAt         sql.NullTime
	)
	err := s.Scan(
		&ev.ID, &ev.DeliveryID, &ev.ExternalID, &kind, &ev.SenderHandle, &ev.SenderID, &ev.Text,
		&ev.ContentID, &source, &ev.ReactionType, &ev.Verified, &state, &ev.Reason, &ev.InteractionID,
		&ev.OccurredAt, &ev.CreatedAt, &ev.UpdatedAt, &processedAt,
	)
	if err != nil {
		return model.InboundEvent{}, err
	}
	ev.Kind = model.EventKind(kind)
	ev.Source = model.Source(source)
	ev.State = model.EventState(state)
	ev.OccurredAt = ev.OccurredAt.UTC()
	ev.CreatedAt = ev.CreatedAt.UTC()
	ev.UpdatedAt = ev.UpdatedAt.UTC()
	ev.ProcessedAt = timePtr(processedAt)
	return ev, nil
}
