package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money 金额类型，基于 decimal 实现精确计算
type Money struct {
	decimal.Decimal
}

// NewMoney 从字符串创建金额
func NewMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, fmt.Errorf("invalid money value: %w", err)
	}
	return Money{Decimal: d}, nil
}

// NewMoneyFromFloat 从浮点数创建金额
func NewMoneyFromFloat(value float64) Money {
	return Money{Decimal: decimal.NewFromFloat(value)}
}

// Value 实现 driver.Valuer 接口
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.String(), nil
}

// Scan 实现 sql.Scanner 接口
func (m *Money) Scan(value interface{}) error {
	if value == nil {
		m.Decimal = decimal.Zero
		return nil
	}
	switch v := value.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		m.Decimal = d
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return err
		}
		m.Decimal = d
	case float64:
		m.Decimal = decimal.NewFromFloat(v)
	case int64:
		m.Decimal = decimal.NewFromInt(v)
	default:
		return fmt.Errorf("cannot scan %T into Money", value)
	}
	return nil
}

// GormDataType 指定数据库字段类型
func (Money) GormDataType() string {
	return "decimal(20,8)"
}

// IsZero 判断金额是否为零
func (m Money) IsZero() bool {
	return m.Decimal.IsZero()
}

// MarshalJSON 序列化为 JSON 数字字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.Decimal.String() + `"`), nil
}

// UnmarshalJSON 从 JSON 反序列化
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	m.Decimal = d
	return nil
}
