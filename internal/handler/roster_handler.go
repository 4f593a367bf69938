package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/tryout/internal/model"
)

// RosterProviderInterface はロスターハンドラーが必要とするインターフェース。
type RosterProviderInterface interface {
	// ListMembers はロスターメンバー一覧をsort_order順に返す。
	ListMembers(ctx context.Context) ([]*model.RosterMember, error)
}

// RosterHandler は公開ロスターのHTTPハンドラー。認証不要。
type RosterHandler struct {
	provider RosterProviderInterface
}

// NewRosterHandler はRosterHandlerを生成する。
func NewRosterHandler(provider RosterProviderInterface) *RosterHandler {
	return &RosterHandler{provider: provider}
}

// rosterResponse はロスターのAPIレスポンス。
type rosterResponse struct {
	Members []*model.RosterMember `json:"members"`
	Count   int                   `json:"count"`
}

// ListMembers はロスターメンバー一覧を返す。
// GET /api/roster
func (h *RosterHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.provider.ListMembers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if members == nil {
		members = []*model.RosterMember{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rosterResponse{
		Members: members,
		Count:   len(members),
	})
}
