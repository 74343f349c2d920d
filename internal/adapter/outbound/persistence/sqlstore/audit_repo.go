package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// AuditRepo implements outbound.AuditRepository.
type AuditRepo struct {
	store *Store
}

func NewAuditRepo(store *Store) *AuditRepo {
	return &AuditRepo{store: store}
}

const auditColumns = `id, event_type, interaction_id, event_id, actor, description, metadata, created_at`

func (r *AuditRepo) Create(ctx context.Context, log model.AuditLog) error {
	meta := "{}"
	if len(log.Metadata) > 0 {
		b, err := json.Marshal(log.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata: %w", err)
		}
		meta = string(b)
	}

	q := `INSERT INTO audit_logs (` + auditColumns + `) VALUES (?,?,?,?,?,?,?,?)`
	err := r.store.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.store.exec(ctx, q,
			log.ID, string(log.EventType), log.InteractionID, log.EventID,
			log.Actor, log.Description, meta, log.CreatedAt.UTC(),
		)
		return err
	})
	if err != nil {
		return mapWriteError("inserting audit log", err)
	}
	return nil
}

var allowedAuditOrderColumns = map[string]bool{
	"created_at": true, "event_type": true, "actor": true,
}

func (r *AuditRepo) List(ctx context.Context, filter outbound.AuditFilter, page outbound.PageRequest) (outbound.PageResult[model.AuditLog], error) {
	var w whereBuilder
	if filter.InteractionID != "" {
		w.add("interaction_id = ?", filter.InteractionID)
	}
	if filter.EventType != "" {
		w.add("event_type = ?", filter.EventType)
	}
	if filter.Actor != "" {
		w.add("actor = ?", filter.Actor)
	}
	w.timeRange("created_at", filter.Since, filter.Until)
	where, args := w.build()

	var total int64
	if err := r.store.queryRow(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return outbound.PageResult[model.AuditLog]{}, fmt.Errorf("counting audit logs: %w", err)
	}

	tail, size, err := pageClause(page, allowedAuditOrderColumns, "created_at")
	if err != nil {
		return outbound.PageResult[model.AuditLog]{}, err
	}
	rows, err := r.store.query(ctx, "SELECT "+auditColumns+" FROM audit_logs"+where+tail,
		append(args, size, page.Page*size)...)
	if err != nil {
		return outbound.PageResult[model.AuditLog]{}, fmt.Errorf("listing audit logs: %w", err)
	}
	defer rows.Close()

	var items []model.AuditLog
	for rows.Next() {
		var (
			l         model.AuditLog
			eventType string
			meta      string
		)
		if err := rows.Scan(&l.ID, &eventType, &l.InteractionID, &l.EventID,
			&l.Actor, &l.Description, &meta, &l.CreatedAt); err != nil {
			return outbound.PageResult[model.AuditLog]{}, fmt.Errorf("scanning audit log: %w", err)
		}
		l.EventType = model.AuditEventType(eventType)
		l.CreatedAt = l.CreatedAt.UTC()
		if err := json.Unmarshal([]byte(meta), &l.Metadata); err != nil {
			return outbound.PageResult[model.AuditLog]{}, fmt.Errorf("unmarshaling audit metadata: %w", err)
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return outbound.PageResult[model.AuditLog]{}, fmt.Errorf("iterating audit logs: %w", err)
	}

	return outbound.PageResult[model.AuditLog]{
		Items:      items,
		TotalCount: total,
		Page:       page.Page,
		Size:       size,
	}, nil
}
