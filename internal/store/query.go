package store

import (
	"context"
	"fmt"
	"strings"

	"romvault/pkg/models"
)

type ListQuery struct {
	Q        string // keyword search in name
	System   string
	Category string
	Limit    int
	Offset   int
}

// Normalized applies the paging defaults: limit 20, at most 100.
func (q ListQuery) Normalized() ListQuery {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

func (s *Store) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := s.buildListSQL(q, true)
	row := s.DB.QueryRowContext(ctx, sqlStr, args...)
	var total int
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (s *Store) List(ctx context.Context, q ListQuery) ([]models.GameDoc, error) {
	sqlStr, args := s.buildListSQL(q, false)

	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.GameDoc, 0, q.Normalized().Limit)
	for rows.Next() {
		d, err := scanDoc(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// buildListSQL builds either COUNT(*) or the paged SELECT.
func (s *Store) buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `SELECT id, data FROM documents`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM documents`
	}

	where := []string{"collection = ?"}
	args := []any{s.Collection}

	if kw := strings.TrimSpace(q.Q); kw != "" {
		where = append(where, `LOWER(json_extract(data, '$.name')) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(kw))+"%")
	}
	if sys := strings.TrimSpace(q.System); sys != "" {
		where = append(where, "LOWER(json_extract(data, '$.system')) = ?")
		args = append(args, strings.ToLower(sys))
	}
	if cat := strings.TrimSpace(q.Category); cat != "" {
		where = append(where, "LOWER(json_extract(data, '$.category')) = ?")
		args = append(args, strings.ToLower(cat))
	}

	sqlStr := baseSelect + " WHERE " + strings.Join(where, " AND ")

	if !countOnly {
		sqlStr += " ORDER BY json_extract(data, '$.name') ASC, id ASC"
		sqlStr += " LIMIT ? OFFSET ?"
		q = q.Normalized()
		args = append(args, q.Limit, q.Offset)
	}

	return sqlStr, args
}

// likeEscaper makes the search keyword match literally under ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
