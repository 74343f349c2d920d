package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonny/engagebot/internal/adapter/outbound/persistence/dbretry"
	"github.com/jonny/engagebot/internal/domain/port/outbound"
)

const defaultPageSize = 20

type rowScanner interface {
	Scan(dest ...any) error
}

// whereBuilder accumulates AND-ed filter clauses.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(clause string, arg any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, arg)
}

func (w *whereBuilder) timeRange(column string, since, until *time.Time) {
	if since != nil {
		w.add(column+" >= ?", since.UTC())
	}
	if until != nil {
		w.add(column+" <= ?", until.UTC())
	}
}

func (w *whereBuilder) build() (string, []any) {
	if len(w.clauses) == 0 {
		return "", w.args
	}
	return " WHERE " + strings.Join(w.clauses, " AND "), w.args
}

// pageClause validates the order column and returns ORDER BY / LIMIT / OFFSET
// plus the normalized page size.
func pageClause(page outbound.PageRequest, allowed map[string]bool, defaultOrder string) (string, int, error) {
	orderCol := defaultOrder
	if page.OrderBy != "" {
		if !allowed[page.OrderBy] {
			return "", 0, fmt.Errorf("invalid order column: %q", page.OrderBy)
		}
		orderCol = page.OrderBy
	}
	dir := "ASC"
	if page.Desc {
		dir = "DESC"
	}
	size := page.Size
	if size <= 0 {
		size = defaultPageSize
	}
	return fmt.Sprintf(" ORDER BY %s %s LIMIT ? OFFSET ?", orderCol, dir), size, nil
}

func marshalJSON(v any, empty string) (string, error) {
	if v == nil {
		return empty, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func marshalStrings(s []string) (string, error) {
	if s == nil {
		s = []string{}
	}
	return marshalJSON(s, "[]")
}

func unmarshalStrings(raw string) []string {
	out := []string{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// mapWriteError turns unique violations into outbound.ErrDuplicate.
func mapWriteError(op string, err error) error {
	if dbretry.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, outbound.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, outbound.ErrNotFound)
}
