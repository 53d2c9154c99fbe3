// Package entity 定义领域实体
package entity

import (
	"time"
)

// Seed 一次世界生成的根记录
type Seed struct {
	ID string `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// CurrentDateTime 世界内当前时间，主角生成后写入
	CurrentDateTime *time.Time `json:"current_date_time,omitempty"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Seed) TableName() string {
	return "seeds"
}
