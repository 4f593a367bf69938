// Package model はドメインモデルを定義する。
package model

import "time"

// RosterMember は公開ロスターのメンバー1名を表す。
type RosterMember struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Role      string            `json:"role"`
	Socials   map[string]string `json:"socials,omitempty"`
	SortOrder int               `json:"-"`
	CreatedAt time.Time         `json:"-"`
}
