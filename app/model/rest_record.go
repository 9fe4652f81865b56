package model

import (
	"time"
)

// RestType 休息类型
type RestType int

const (
	RestTypeSleep  RestType = 0 // 睡眠
	RestTypeWakeUp RestType = 1 // 起床
)

// RestRecord 休息记录模型（睡眠/起床打卡）
type RestRecord struct {
	ID        string    `json:"id" gorm:"primarykey;size:36"`
	UserID    string    `json:"user_id" gorm:"not null;index;size:36"`
	RestType  RestType  `json:"rest_type" gorm:"not null"`           // 0-睡眠，1-起床
	RestTime  int64     `json:"rest_time" gorm:"not null"`           // 打卡时间戳（北京时间）
	MonthStr  string    `json:"month_str" gorm:"not null;size:8"`    // 形如 "08月"，用于按月汇总
	WifiName  *string   `json:"wifi_name"`                           // 打卡时连接的WiFi
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	City      *string   `json:"city"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (RestRecord) TableName() string {
	return "rest_records"
}
