// Package entity 定义领域实体
package entity

import (
	"time"
)

// 主角初始状态
const (
	ProtagonistLevel    = 1
	ProtagonistHealth   = 100
	ProtagonistCurrency = 0
)

// AbilityScores 六项能力值
type AbilityScores struct {
	Strength     int `json:"strength"`
	Speed        int `json:"speed"`
	Agility      int `json:"agility"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// Character 角色（主角或 NPC）
type Character struct {
	ID            string        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SeedID        string        `json:"seed_id" gorm:"type:uuid;index;not null"`
	MainCharacter bool          `json:"main_character" gorm:"not null;index"`
	Alive         bool          `json:"alive" gorm:"not null"`
	Name          string        `json:"name" gorm:"type:varchar(255);not null"`
	DateOfBirth   *time.Time    `json:"date_of_birth,omitempty" gorm:"type:date"`
	Race          string        `json:"race,omitempty" gorm:"type:varchar(100)"`
	Gender        *bool         `json:"gender,omitempty"`
	Abilities     AbilityScores `json:"abilities" gorm:"embedded"`
	Level         int           `json:"level" gorm:"not null"`
	ExpPoints     int           `json:"exp_points" gorm:"not null"`
	CurrentHealth int           `json:"current_health"`
	MaxHealth     int           `json:"max_health"`
	// CurrentCurrency 持有货币
	CurrentCurrency int       `json:"current_currency"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Character) TableName() string {
	return "characters"
}

// ExperienceForLevel 等级对应的经验值：100 * (2^(level-1) - 1)
func ExperienceForLevel(level int) int {
	if level < 1 {
		return 0
	}
	return 100 * ((1 << (level - 1)) - 1)
}
