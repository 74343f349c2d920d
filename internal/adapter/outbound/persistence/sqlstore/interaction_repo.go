package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonny/engagebot/internal/domain/model"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

// InteractionRepo persists interactions. The unique index on external_id is
// the durable half of duplicate suppression; empty ids are stored as NULL so
// they never collide.
type InteractionRepo struct {
	store *Store
}

func NewInteractionRepo(store *Store) *InteractionRepo {
	return &InteractionRepo{store: store}
}

const interactionColumns = `id, external_id, kind, message, sender_handle, sender_id, content_id,
	sentiment, source, replied, reply_message, moved_to_dm, metadata, created_at, updated_at`

func (r *InteractionRepo) Create(ctx context.Context, i model.Interaction) (model.Interaction, error) {
	meta, err := json.Marshal(i.Metadata)
	if err != nil {
		return model.Interaction{}, fmt.Errorf("marshaling metadata: %w", err)
	}

	q := `INSERT INTO interactions (` + interactionColumns + `)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

	err = r.store.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.store.exec(ctx, q,
			i.ID, nullableString(i.ExternalID), string(i.Kind), i.Message,
			i.SenderHandle, i.SenderID, i.ContentID,
			string(i.Sentiment), string(i.Source),
			i.Replied, i.ReplyMessage, i.MovedToDM, string(meta),
			i.CreatedAt.UTC(), i.UpdatedAt.UTC(),
		)
		return err
	})
	if err != nil {
		return model.Interaction{}, mapWriteError("inserting interaction", err)
	}
	return i, nil
}

func (r *InteractionRepo) GetByID(ctx context.Context, id string) (model.Interaction, error) {
	q := `SELECT ` + interactionColumns + ` FROM interactions WHERE id = ?`
	i, err := scanInteraction(r.store.queryRow(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Interaction{}, notFound("interaction", id)
	}
	if err != nil {
		return model.Interaction{}, fmt.Errorf("fetching interaction: %w", err)
	}
	return i, nil
}

func (r *InteractionRepo) GetByExternalID(ctx context.Context, externalID string) (*model.Interaction, error) {
	if externalID == "" {
		return nil, nil
	}
	q := `SELECT ` + interactionColumns + ` FROM interactions WHERE external_id = ?`
	i, err := scanInteraction(r.store.queryRow(ctx, q, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching interaction by external id: %w", err)
	}
	return &i, nil
}

// Update replaces the reply decision and dispatch metadata of an interaction.
func (r *InteractionRepo) Update(ctx context.Context, i model.Interaction) (model.Interaction, error) {
	meta, err := json.Marshal(i.Metadata)
	if err != nil {
		return model.Interaction{}, fmt.Errorf("marshaling metadata: %w", err)
	}

	const q = `UPDATE interactions SET
		sentiment=?, replied=?, reply_message=?, moved_to_dm=?, metadata=?, updated_at=?
		WHERE id=?`

	var affected int64
	err = r.store.withRetry(ctx, func(ctx context.Context) error {
		res, err := r.store.exec(ctx, q,
			string(i.Sentiment), i.Replied, i.ReplyMessage, i.MovedToDM,
			string(meta), i.UpdatedAt.UTC(), i.ID,
		)
		if err != nil {
			return err
		}
		affected, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return model.Interaction{}, fmt.Errorf("updating interaction: %w", err)
	}
	if affected == 0 {
		return model.Interaction{}, notFound("interaction", i.ID)
	}
	return i, nil
}

var allowedInteractionOrderColumns = map[string]bool{
	"created_at": true, "updated_at": true, "sentiment": true,
	"sender_handle": true, "kind": true,
}

func (r *InteractionRepo) List(ctx context.Context, filter outbound.InteractionFilter, page outbound.PageRequest) (outbound.PageResult[model.Interaction], error) {
	where, args := buildInteractionWhere(filter)

	var total int64
	if err := r.store.queryRow(ctx, "SELECT COUNT(*) FROM interactions"+where, args...).Scan(&total); err != nil {
		return outbound.PageResult[model.Interaction]{}, fmt.Errorf("counting interactions: %w", err)
	}

	tail, size, err := pageClause(page, allowedInteractionOrderColumns, "created_at")
	if err != nil {
		return outbound.PageResult[model.Interaction]{}, err
	}
	rows, err := r.store.query(ctx, "SELECT "+interactionColumns+" FROM interactions"+where+tail,
		append(args, size, page.Page*size)...)
	if err != nil {
		return outbound.PageResult[model.Interaction]{}, fmt.Errorf("listing interactions: %w", err)
	}
	defer rows.Close()

	var items []model.Interaction
	for rows.Next() {
		i, err := scanInteraction(rows)
		if err != nil {
			return outbound.PageResult[model.Interaction]{}, fmt.Errorf("scanning interaction: %w", err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return outbound.PageResult[model.Interaction]{}, fmt.Errorf("iterating interactions: %w", err)
	}

	return outbound.PageResult[model.Interaction]{
		Items:      items,
		TotalCount: total,
		Page:       page.Page,
		Size:       size,
	}, nil
}

func buildInteractionWhere(f outbound.InteractionFilter) (string, []any) {
	var w whereBuilder
	if f.SenderHandle != "" {
		w.add("sender_handle = ?", model.NormalizeHandle(f.SenderHandle))
	}
	if f.Kind != "" {
		w.add("kind = ?", f.Kind)
	}
	if f.Sentiment != "" {
		w.add("sentiment = ?", f.Sentiment)
	}
	if f.Replied != nil {
		w.add("replied = ?", *f.Replied)
	}
	w.timeRange("created_at", f.Since, f.Until)
	return w.build()
}

func scanInteraction(s rowScanner) (model.Interaction, error) {
	var (
		i                       model.Interaction
		externalID              sql.NullString
		kind, sentiment, source string
		meta                    string
	)
	err := s.Scan(
		&i.ID, &externalID, &kind, &i.Message, &i.SenderHandle, &i.SenderID, &i.ContentID,
		&sentiment, &source, &i.Replied, &i.ReplyMessage, &i.MovedToDM, &meta,
		&i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return model.Interaction{}, err
	}
	i.ExternalID = externalID.String
	i.Kind = model.EventKind(kind)
	i.Sentiment = model.Sentiment(sentiment)
	i.Source = model.Source(source)
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &i.Metadata); err != nil {
			return model.Interaction{}, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	return i, nil
}
