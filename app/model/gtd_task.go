package model

import (
	"time"
)

// GtdStatus GTD任务状态
type GtdStatus int

const (
	GtdStatusTodo      GtdStatus = 0 // 待办
	GtdStatusDoing     GtdStatus = 1 // 进行中
	GtdStatusDone      GtdStatus = 2 // 已完成
	GtdStatusCancelled GtdStatus = 3 // 已取消
)

// GtdTask GTD任务模型
type GtdTask struct {
	ID        string    `json:"id" gorm:"primarykey;size:36"`
	UserID    string    `json:"user_id" gorm:"not null;index;size:36"`
	Name      string    `json:"name" gorm:"not null"`               // 任务名称
	StartTime int64     `json:"start_time" gorm:"not null"`         // 开始时间戳
	EndTime   int64     `json:"end_time" gorm:"not null"`           // 结束时间戳
	Priority  int       `json:"priority" gorm:"not null;default:0"` // 数字越大优先级越高
	Category  string    `json:"category" gorm:"not null"`           // 任务分类
	Status    GtdStatus `json:"status" gorm:"not null;default:0;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (GtdTask) TableName() string {
	return "gtd_tasks"
}
