package models

import (
	"time"
)

// Setting 系统设置，key-value 存储
type Setting struct {
	Key       string    `gorm:"primarykey;size:64" json:"key"`
	Value     JSON      `gorm:"type:text" json:"value"`
	Remark    string    `gorm:"size:255" json:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Setting) TableName() string {
	return "settings"
}
