package node

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"world-forge-api/pkg/logger"
)

// CharacterRecord 角色生成结果
type CharacterRecord struct {
	Name            string     `mapstructure:"name"`
	DateOfBirth     *time.Time `mapstructure:"date_of_birth"`
	Race            string     `mapstructure:"race"`
	Gender          *bool      `mapstructure:"gender"`
	Strength        *float64   `mapstructure:"strength"`
	Speed           *float64   `mapstructure:"speed"`
	Agility         *float64   `mapstructure:"agility"`
	Intelligence    *float64   `mapstructure:"intelligence"`
	Wisdom          *float64   `mapstructure:"wisdom"`
	Charisma        *float64   `mapstructure:"charisma"`
	CurrentDateTime *time.Time `mapstructure:"current_date_time"`
}

func (r *CharacterRecord) Validate() error { return requireField("name", r.Name) }

// LocationRecord 地点生成结果
type LocationRecord struct {
	Name        string   `mapstructure:"name"`
	Description string   `mapstructure:"description"`
	Longitude   *float64 `mapstructure:"longitude"`
	Latitude    *float64 `mapstructure:"latitude"`
	Type        string   `mapstructure:"type"`
	Climate     string   `mapstructure:"climate"`
	Terrain     string   `mapstructure:"terrain"`
}

func (r *LocationRecord) Validate() error { return requireField("name", r.Name) }

type SkillRecord struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

func (r *SkillRecord) Validate() error { return requireField("name", r.Name) }

// StatusRecord Duration 单位为小时
type StatusRecord struct {
	Name        string   `mapstructure:"name"`
	Description string   `mapstructure:"description"`
	Type        string   `mapstructure:"type"`
	Duration    *float64 `mapstructure:"duration"`
}

func (r *StatusRecord) Validate() error { return requireField("name", r.Name) }

type ItemRecord struct {
	Name        string   `mapstructure:"name"`
	Description string   `mapstructure:"description"`
	Type        string   `mapstructure:"type"`
	Value       *float64 `mapstructure:"value"`
	Weight      *float64 `mapstructure:"weight"`
	Quantity    *float64 `mapstructure:"quantity"`
	Condition   *float64 `mapstructure:"condition"`
}

func (r *ItemRecord) Validate() error { return requireField("name", r.Name) }

// EventRecord 事件及当前角色在其中的身份
type EventRecord struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Type        string `mapstructure:"type"`
	Role        string `mapstructure:"role"`
}

func (r *EventRecord) Validate() error {
	if err := requireField("name", r.Name); err != nil {
		return err
	}
	return requireField("role", r.Role)
}

// RelationshipRecord 关系类型与六项情感分值
type RelationshipRecord struct {
	Type        string   `mapstructure:"type"`
	Attraction  *float64 `mapstructure:"attraction"`
	Respect     *float64 `mapstructure:"respect"`
	Trust       *float64 `mapstructure:"trust"`
	Familiarity *float64 `mapstructure:"familiarity"`
	Anger       *float64 `mapstructure:"anger"`
	Fear        *float64 `mapstructure:"fear"`
}

func (r *RelationshipRecord) Validate() error { return requireField("type", r.Type) }

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: missing %s", ErrExtraction, name)
	}
	return nil
}

// Decode 将记录解码为强类型结构，并执行结构自带的校验
func Decode[T any](rec Record) (*T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(map[string]any(rec)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if v, ok := any(&out).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// ExtractOne 解析单个对象并解码
func ExtractOne[T any](ctx context.Context, text, nestedKey string) (*T, error) {
	rec := ExtractObject(ctx, text, nestedKey)
	if rec == nil {
		return nil, ErrExtraction
	}
	return Decode[T](rec)
}

// ExtractMany 解析对象数组并逐个解码，丢弃无效元素。
// 空数组返回空切片；非空但全部无效视为失败。
func ExtractMany[T any](ctx context.Context, text, nestedKey string) ([]*T, error) {
	recs := ExtractList(ctx, text, nestedKey)
	if recs == nil {
		return nil, ErrExtraction
	}

	out := make([]*T, 0, len(recs))
	for i, rec := range recs {
		v, err := Decode[T](rec)
		if err != nil {
			logger.Warn(ctx, "dropping invalid record from model output", "index", i, "error", err.Error())
			continue
		}
		out = append(out, v)
	}
	if len(recs) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("%w: all %d records invalid", ErrExtraction, len(recs))
	}
	return out, nil
}

// Float 取指针值，nil 时返回默认值
func Float(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
