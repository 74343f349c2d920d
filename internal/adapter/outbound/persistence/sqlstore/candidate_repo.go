package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonny/engagebot/internal/domain/model"
)

// CandidateRepo persists candidate profiles keyed by normalized handle.
type CandidateRepo struct {
	store *Store
}

func NewCandidateRepo(store *Store) *CandidateRepo {
	return &CandidateRepo{store: store}
}

func (r *CandidateRepo) GetByHandle(ctx context.Context, handle string) (*model.Candidate, error) {
	const q = `SELECT handle, name, engagement_score, interest_areas, conversations,
		location, age, experience_years, status, created_at, updated_at
		FROM candidates WHERE handle = ?`

	var (
		c                model.Candidate
		interests, convs string
		status           string
	)
	err := r.store.queryRow(ctx, q, model.NormalizeHandle(handle)).Scan(
		&c.Handle, &c.Name, &c.EngagementScore, &interests, &convs,
		&c.Location, &c.Age, &c.ExperienceYears, &status, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching candidate: %w", err)
	}
	c.InterestAreas = unmarshalStrings(interests)
	c.Conversations = []model.ConversationEntry{}
	if err := json.Unmarshal([]byte(convs), &c.Conversations); err != nil {
		return nil, fmt.Errorf("unmarshaling conversations: %w", err)
	}
	c.Status = model.CandidateStatus(status)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

// Upsert inserts the candidate or replaces every mutable column of the
// existing row. created_at is kept from the first insert.
func (r *CandidateRepo) Upsert(ctx context.Context, c model.Candidate) error {
	interests, err := marshalStrings(c.InterestAreas)
	if err != nil {
		return fmt.Errorf("marshaling interests: %w", err)
	}
	convs := c.Conversations
	if convs == nil {
		convs = []model.ConversationEntry{}
	}
	convJSON, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("marshaling conversations: %w", err)
	}

	const q = `INSERT INTO candidates
		(handle, name, engagement_score, interest_areas, conversations,
		 location, age, experience_years, status, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (handle) DO UPDATE SET
		 name = excluded.name,
		 engagement_score = excluded.engagement_score,
		 interest_areas = excluded.interest_areas,
		 conversations = excluded.conversations,
		 location = excluded.location,
		 age = excluded.age,
		 experience_years = excluded.experience_years,
		 status = excluded.status,
		 updated_at = excluded.updated_at`

	err = r.store.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.store.exec(ctx, q,
			model.NormalizeHandle(c.Handle), c.Name, c.EngagementScore, interests, string(convJSON),
			c.Location, c.Age, c.ExperienceYears, string(c.Status),
			c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("upserting candidate: %w", err)
	}
	return nil
}
