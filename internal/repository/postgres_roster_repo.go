package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/tryout/internal/model"
)

// PostgresRosterRepo はPostgreSQLを使用したロスターリポジトリ。
type PostgresRosterRepo struct {
	db *sql.DB
}

// NewPostgresRosterRepo はPostgresRosterRepoを生成する。
func NewPostgresRosterRepo(db *sql.DB) *PostgresRosterRepo {
	return &PostgresRosterRepo{db: db}
}

// ListMembers はロスターメンバー一覧をsort_order順に返す。
func (r *PostgresRosterRepo) ListMembers(ctx context.Context) ([]*model.RosterMember, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, role, socials, sort_order, created_at
		 FROM roster_members
		 ORDER BY sort_order ASC, name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster members: %w", err)
	}
	defer rows.Close()

	var members []*model.RosterMember
	for rows.Next() {
		m := &model.RosterMember{}
		var socials []byte
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &socials, &m.SortOrder, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan roster member: %w", err)
		}
		if len(socials) > 0 {
			if err := json.Unmarshal(socials, &m.Socials); err != nil {
				return nil, fmt.Errorf("failed to unmarshal socials: %w", err)
			}
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roster members: %w", err)
	}
	return members, nil
}

// compile-time interface check
var _ RosterRepository = (*PostgresRosterRepo)(nil)
