package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON 通用 JSON 字段类型
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = JSON{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSON", value)
	}
	if len(data) == 0 {
		*j = JSON{}
		return nil
	}
	return json.Unmarshal(data, j)
}

// GormDataType 指定数据库字段类型
func (JSON) GormDataType() string {
	return "text"
}

// StringArray 字符串数组类型
type StringArray []string

// Value 实现 driver.Valuer 接口
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner 接口
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
	if len(data) == 0 {
		*a = StringArray{}
		return nil
	}
	return json.Unmarshal(data, a)
}

// GormDataType 指定数据库字段类型
func (StringArray) GormDataType() string {
	return "text"
}
