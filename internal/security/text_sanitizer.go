// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService は応募フォームの自由入力テキストをサニタイズし、
// 保存先DBとDiscord Webhook・ダッシュボードへの転送経路を
// XSS攻撃などのセキュリティリスクから保護する。
// bluemondayのStrictPolicyを使用し、HTMLタグを一切通過させない。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は自由入力テキストのサニタイズ機能のインターフェースを定義する。
// 応募の保存前に、名前・メッセージ等の全自由入力フィールドへ適用される。
type TextSanitizerService interface {
	// Sanitize は入力テキストからHTMLタグを全て除去し、前後空白を詰めて返す。
	// 応募フォームはプレーンテキスト前提のため、許可タグは存在しない。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのタグと属性を除去し、テキストノードのみを残す。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力テキストからHTMLタグを全て除去し、前後空白を詰めて返す。
func (s *textSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
