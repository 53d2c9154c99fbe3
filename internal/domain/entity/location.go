package entity

import (
	"time"
)

// Location 地点，ParentID 非空时为子地点
type Location struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SeedID      string    `json:"seed_id" gorm:"type:uuid;index;not null"`
	ParentID    *string   `json:"parent_id,omitempty" gorm:"type:uuid;index"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Longitude   *float64  `json:"longitude,omitempty"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Type        string    `json:"type,omitempty" gorm:"type:varchar(100)"`
	Climate     string    `json:"climate,omitempty" gorm:"type:varchar(100)"`
	Terrain     string    `json:"terrain,omitempty" gorm:"type:varchar(100)"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Location) TableName() string {
	return "locations"
}

// IsTopLevel 是否为顶层地点
func (l *Location) IsTopLevel() bool {
	return l.ParentID == nil
}
