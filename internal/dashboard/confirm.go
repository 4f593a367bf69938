package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tryout/internal/model"
)

// DefaultConfirmTTL は確認トークンの有効期間。
const DefaultConfirmTTL = 2 * time.Minute

// ActionKind は確認を要する破壊的操作の種別。
type ActionKind string

const (
	ActionAccept    ActionKind = "accept"
	ActionDeny      ActionKind = "deny"
	ActionRemove    ActionKind = "remove"
	ActionClearSeed ActionKind = "clear_seed"
)

// ValidAction は既知の操作種別かどうかを返す。
func ValidAction(a ActionKind) bool {
	switch a {
	case ActionAccept, ActionDeny, ActionRemove, ActionClearSeed:
		return true
	}
	return false
}

// PendingAction は確認待ちの操作。
// 実際の変更は確認が完了するまで一切行われない。
type PendingAction struct {
	Token         string     `json:"token"`
	ApplicationID string     `json:"applicationId,omitempty"`
	Action        ActionKind `json:"action"`
	RequestedBy   string     `json:"-"`
	ExpiresAt     time.Time  `json:"expiresAt"`
}

// ConfirmStore は確認トークンのインメモリストア。
// トークンは単一プロセス内でのみ有効で、プロセス再起動で消える。
// 期限切れは参照時に判定する（遅延失効）。
type ConfirmStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[string]*PendingAction
}

// NewConfirmStore はConfirmStoreを生成する。ttlが0以下の場合はデフォルト値を使用する。
func NewConfirmStore(ttl time.Duration) *ConfirmStore {
	if ttl <= 0 {
		ttl = DefaultConfirmTTL
	}
	return &ConfirmStore{
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[string]*PendingAction),
	}
}

// Create は確認待ち操作を登録し、トークンを発行する。
func (s *ConfirmStore) Create(applicationID string, action ActionKind, requestedBy string) *PendingAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := &PendingAction{
		Token:         uuid.New().String(),
		ApplicationID: applicationID,
		Action:        action,
		RequestedBy:   requestedBy,
		ExpiresAt:     s.now().Add(s.ttl),
	}
	s.pending[pending.Token] = pending
	return pending
}

// Take はトークンを消費して確認待ち操作を取り出す。
// 取り出した操作は再利用できない。未知のトークンはCONFIRMATION_NOT_FOUND、
// 期限切れはCONFIRMATION_EXPIREDを返す。
func (s *ConfirmStore) Take(token string) (*PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.pending[token]
	if !ok {
		return nil, model.NewConfirmationNotFoundError()
	}
	delete(s.pending, token)

	if !pending.ExpiresAt.After(s.now()) {
		return nil, model.NewConfirmationExpiredError()
	}
	return pending, nil
}

// Cancel はトークンを破棄する。副作用は一切発生しない。
// トークンが存在した場合はtrueを返す。
func (s *ConfirmStore) Cancel(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[token]; !ok {
		return false
	}
	delete(s.pending, token)
	return true
}

// PurgeExpired は期限切れの確認待ち操作を削除し、削除件数を返す。
func (s *ConfirmStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	purged := 0
	for token, pending := range s.pending {
		if !pending.ExpiresAt.After(now) {
			delete(s.pending, token)
			purged++
		}
	}
	return purged
}
