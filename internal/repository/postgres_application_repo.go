package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/tryout/internal/model"
)

// PostgresApplicationRepo はPostgreSQLを使用した応募リポジトリ。
type PostgresApplicationRepo struct {
	db *sql.DB
}

// NewPostgresApplicationRepo はPostgresApplicationRepoを生成する。
func NewPostgresApplicationRepo(db *sql.DB) *PostgresApplicationRepo {
	return &PostgresApplicationRepo{db: db}
}

const applicationColumns = `id, name, email, discord_tag, position, message, attributes, status, submitted_at, seed`

// scanApplication は1行を応募モデルへ変換する。attributesはJSONBから復元する。
func scanApplication(scan func(dest ...any) error) (*model.Application, error) {
	app := &model.Application{}
	var attrs []byte
	err := scan(&app.ID, &app.Name, &app.Email, &app.DiscordTag, &app.Position,
		&app.Message, &attrs, &app.Status, &app.SubmittedAt, &app.Seed)
	if err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &app.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}
	return app, nil
}

// Insert は応募を冪等に挿入する。
// 同一IDが既に存在する場合はON CONFLICT DO NOTHINGにより何もせずfalseを返す。
func (r *PostgresApplicationRepo) Insert(ctx context.Context, app *model.Application) (bool, error) {
	attrs, err := json.Marshal(app.Attributes)
	if err != nil {
		return false, fmt.Errorf("failed to marshal attributes: %w", err)
	}
	if app.Attributes == nil {
		attrs = []byte("{}")
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO applications (id, name, email, discord_tag, position, message, attributes, status, submitted_at, seed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO NOTHING`,
		app.ID, app.Name, app.Email, app.DiscordTag, app.Position,
		app.Message, attrs, app.Status, app.SubmittedAt, app.Seed,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert application: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// FindByID は指定IDの応募を取得する。見つからない場合はnilを返す。
func (r *PostgresApplicationRepo) FindByID(ctx context.Context, id string) (*model.Application, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return app, nil
}

// UpdateStatus は現在のステータスがfromである場合に限りtoへ更新する。
// WHERE句で遷移元を固定することで、競合する審査操作の後勝ちを防ぐ。
func (r *PostgresApplicationRepo) UpdateStatus(ctx context.Context, id string, from, to model.ApplicationStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE applications SET status = $1 WHERE id = $2 AND status = $3`,
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update application status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteByID は指定IDの応募をステータスに関わらず削除する。
func (r *PostgresApplicationRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete application: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// orderClause はソートキーをORDER BY句へ変換する。
// 同着時はsubmitted_at降順で安定させる。
func orderClause(sort model.ApplicationSort) string {
	switch sort {
	case model.SortOldest:
		return `submitted_at ASC`
	case model.SortRole:
		return `position ASC, submitted_at DESC`
	case model.SortName:
		return `lower(name) ASC, submitted_at DESC`
	default:
		return `submitted_at DESC`
	}
}

// List はフィルタとソートを適用した応募一覧を返す。
func (r *PostgresApplicationRepo) List(ctx context.Context, filter model.ApplicationFilter, sort model.ApplicationSort) ([]*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications`
	var args []any
	if filter != model.FilterAll && filter != "" {
		query += ` WHERE status = $1`
		args = append(args, string(filter))
	}
	query += ` ORDER BY ` + orderClause(sort)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var apps []*model.Application
	for rows.Next() {
		app, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}
	return apps, nil
}

// ListSubmittedAfter は指定時刻より後に提出された応募を新しい順に返す。
func (r *PostgresApplicationRepo) ListSubmittedAfter(ctx context.Context, after time.Time) ([]*model.Application, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications
		 WHERE submitted_at > $1
		 ORDER BY submitted_at DESC`,
		after,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications after %v: %w", after, err)
	}
	defer rows.Close()

	var apps []*model.Application
	for rows.Next() {
		app, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}
	return apps, nil
}

// Stats はステータス別の件数を集計して返す。
func (r *PostgresApplicationRepo) Stats(ctx context.Context) (*model.ApplicationStats, error) {
	stats := &model.ApplicationStats{}
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*),
		        count(*) FILTER (WHERE status = 'pending'),
		        count(*) FILTER (WHERE status = 'accepted'),
		        count(*) FILTER (WHERE status = 'denied')
		 FROM applications`,
	).Scan(&stats.Total, &stats.Pending, &stats.Accepted, &stats.Denied)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate application stats: %w", err)
	}
	return stats, nil
}

// DeleteSeed はデモデータ（seed = true）を一括削除し、削除件数を返す。
func (r *PostgresApplicationRepo) DeleteSeed(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM applications WHERE seed = true`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete seed applications: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ ApplicationRepository = (*PostgresApplicationRepo)(nil)
