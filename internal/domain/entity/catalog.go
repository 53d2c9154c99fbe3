package entity

import (
	"time"
)

// 目录条目（Skill/Status/Item）不按 seed 划分，每次分配都新建

// Skill 技能目录条目
type Skill struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Skill) TableName() string {
	return "skills"
}

// CharacterSkill 角色技能
type CharacterSkill struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SeedID      string    `json:"seed_id" gorm:"type:uuid;index;not null"`
	CharacterID string    `json:"character_id" gorm:"type:uuid;index;not null"`
	SkillID     string    `json:"skill_id" gorm:"type:uuid;not null"`
	Level       int       `json:"level"`
	ExpPoints   int       `json:"exp_points"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (CharacterSkill) TableName() string {
	return "character_skills"
}

// Status 状态目录条目，Duration 单位为小时
type Status struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Type        string    `json:"type" gorm:"type:varchar(100)"`
	Duration    float64   `json:"duration"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Status) TableName() string {
	return "statuses"
}

// CharacterStatus 角色状态
type CharacterStatus struct {
	ID          string     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SeedID      string     `json:"seed_id" gorm:"type:uuid;index;not null"`
	CharacterID string     `json:"character_id" gorm:"type:uuid;index;not null"`
	StatusID    string     `json:"status_id" gorm:"type:uuid;not null"`
	Active      bool       `json:"active"`
	EndDateTime *time.Time `json:"end_date_time,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (CharacterStatus) TableName() string {
	return "character_statuses"
}

// Item 物品目录条目
type Item struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Type        string    `json:"type" gorm:"type:varchar(100)"`
	Value       float64   `json:"value"`
	Weight      float64   `json:"weight"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Item) TableName() string {
	return "items"
}

// CharacterItem 角色持有物品，Condition 为百分比
type CharacterItem struct {
	ID          string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SeedID      string    `json:"seed_id" gorm:"type:uuid;index;not null"`
	CharacterID string    `json:"character_id" gorm:"type:uuid;index;not null"`
	ItemID      string    `json:"item_id" gorm:"type:uuid;not null"`
	Quantity    int       `json:"quantity"`
	Condition   float64   `json:"condition"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (CharacterItem) TableName() string {
	return "character_items"
}

// AllModels 返回需要迁移的全部模型
func AllModels() []any {
	return []any{
		&Seed{}, &Character{}, &Location{}, &Event{}, &EventCharacter{},
		&CharacterRelationship{}, &Skill{}, &CharacterSkill{},
		&Status{}, &CharacterStatus{}, &Item{}, &CharacterItem{},
	}
}
