// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/tryout/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する（大文字小文字を区別しない）。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する（大文字小文字を区別しない）。
	// 見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// CreateWithProviderLink はユーザーとprovider_linkを同一トランザクションで作成する。
	// OAuth初回ログイン時の自動プロビジョニングで使用する。
	CreateWithProviderLink(ctx context.Context, user *model.User, link *model.ProviderLink) error
}

// ProviderLinkRepository は外部IdP紐付け情報の永続化インターフェース。
type ProviderLinkRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idで紐付けを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.ProviderLink, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// ApplicationRepository は応募データの永続化インターフェース。
type ApplicationRepository interface {
	// Insert は応募を冪等に挿入する。
	// 同一IDが既に存在する場合は何もせずfalseを返す（at-least-once配信の重複対策）。
	Insert(ctx context.Context, app *model.Application) (bool, error)

	// FindByID は指定IDの応募を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Application, error)

	// UpdateStatus は現在のステータスがfromである場合に限りtoへ更新する。
	// 更新できた場合はtrueを返す。
	UpdateStatus(ctx context.Context, id string, from, to model.ApplicationStatus) (bool, error)

	// DeleteByID は指定IDの応募をステータスに関わらず削除する。
	// 削除した場合はtrueを返す。
	DeleteByID(ctx context.Context, id string) (bool, error)

	// List はフィルタとソートを適用した応募一覧を返す。
	List(ctx context.Context, filter model.ApplicationFilter, sort model.ApplicationSort) ([]*model.Application, error)

	// ListSubmittedAfter は指定時刻より後に提出された応募を新しい順に返す。
	// ダッシュボードの定期照合ポーリングで使用する。
	ListSubmittedAfter(ctx context.Context, after time.Time) ([]*model.Application, error)

	// Stats はステータス別の件数を集計して返す。
	Stats(ctx context.Context) (*model.ApplicationStats, error)

	// DeleteSeed はデモデータ（seed = true）を一括削除し、削除件数を返す。
	// 残存する実データの相対順序は変わらない。
	DeleteSeed(ctx context.Context) (int64, error)
}

// RosterRepository は公開ロスターの読み取りインターフェース。
type RosterRepository interface {
	// ListMembers はロスターメンバー一覧をsort_order順に返す。
	ListMembers(ctx context.Context) ([]*model.RosterMember, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
