// Package model はドメインモデルを定義する。
package model

import "time"

// イベント種別
const (
	EventApplicationReceived = "application_received"
	EventApplicationUpdated  = "application_updated"
	EventApplicationRemoved  = "application_removed"
)

// NotificationEvent は応募に関する変更通知を表す。
// 配信はat-least-once保証のみで、購読側はApplication IDで重複排除すること。
type NotificationEvent struct {
	Type        string       `json:"type"`
	Application *Application `json:"application,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}
