package entity

import (
	"time"
)

// 情感分值范围与缺省值
const (
	AffectMin          = 0
	AffectMax          = 10
	AffectNeutral      = 5
	FamiliarityDefault = 0
)

// CharacterRelationship 角色间的有向关系
type CharacterRelationship struct {
	ID                 string    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SeedID             string    `json:"seed_id" gorm:"type:uuid;index;not null"`
	CharacterID        string    `json:"character_id" gorm:"type:uuid;index;not null"`
	RelatedCharacterID string    `json:"related_character_id" gorm:"type:uuid;index;not null"`
	RelationshipType   string    `json:"relationship_type" gorm:"type:varchar(100)"`
	Attraction         int       `json:"attraction"`
	Respect            int       `json:"respect"`
	Trust              int       `json:"trust"`
	Familiarity        int       `json:"familiarity"`
	Anger              int       `json:"anger"`
	Fear               int       `json:"fear"`
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (CharacterRelationship) TableName() string {
	return "character_relationships"
}

// ClampAffect 将分值限制在 [AffectMin, AffectMax]
func ClampAffect(v int) int {
	switch {
	case v < AffectMin:
		return AffectMin
	case v > AffectMax:
		return AffectMax
	default:
		return v
	}
}
