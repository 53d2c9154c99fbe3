package entity

import (
	"time"
)

// 回合计数目前不推进
const (
	InitialTurn = 1
)

// Event 锚定在地点上的事件
type Event struct {
	ID            string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SeedID        string     `json:"seed_id" gorm:"type:uuid;index;not null"`
	Name          string     `json:"name" gorm:"type:varchar(255);not null"`
	Description   string     `json:"description,omitempty" gorm:"type:text"`
	Type          string     `json:"type,omitempty" gorm:"type:varchar(100)"`
	StartDateTime *time.Time `json:"start_date_time,omitempty"`
	EndDateTime   *time.Time `json:"end_date_time,omitempty"`
	LocationID    string     `json:"location_id" gorm:"type:uuid;index;not null"`
	StartTurn     int        `json:"start_turn"`
	EndTurn       int        `json:"end_turn"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Event) TableName() string {
	return "events"
}

// EventCharacter 角色参与事件
type EventCharacter struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SeedID      string    `json:"seed_id" gorm:"type:uuid;index;not null"`
	CharacterID string    `json:"character_id" gorm:"type:uuid;index;not null"`
	EventID     string    `json:"event_id" gorm:"type:uuid;index;not null"`
	Role        string    `json:"role" gorm:"type:varchar(100)"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (EventCharacter) TableName() string {
	return "event_characters"
}
