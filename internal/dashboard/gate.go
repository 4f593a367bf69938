// Package dashboard は審査ダッシュボードのアクセス制御・確認フロー・イベント配信を提供する。
package dashboard

import (
	"strings"

	"github.com/hitoshi/tryout/internal/model"
)

// Decision はアクセス判定の結果。
type Decision string

const (
	DecisionGranted Decision = "granted"
	DecisionDenied  Decision = "denied"
)

// Gate はレビュアー許可リストによるダッシュボードのアクセスゲート。
// 判定は認証済みメールアドレスの許可リスト照合のみで行う（大文字小文字を区別しない）。
type Gate struct {
	reviewers map[string]struct{}
}

// NewGate はGateを生成する。reviewerEmailsは小文字に正規化して保持する。
func NewGate(reviewerEmails []string) *Gate {
	reviewers := make(map[string]struct{}, len(reviewerEmails))
	for _, email := range reviewerEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			reviewers[email] = struct{}{}
		}
	}
	return &Gate{reviewers: reviewers}
}

// Check はリクエスト主体のアクセス可否を判定する。
// 未認証、または許可リスト外のメールアドレスはDenied。
// Deniedの場合、呼び出し側は部分表示を返さず/access-restrictedへ303リダイレクトすること。
func (g *Gate) Check(identity model.Identity) Decision {
	if !identity.IsAuthenticated() {
		return DecisionDenied
	}
	if _, ok := g.reviewers[strings.ToLower(identity.Email())]; !ok {
		return DecisionDenied
	}
	return DecisionGranted
}
