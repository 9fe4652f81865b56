package model

import (
	"encoding/json"
	"time"
)

// VideoTaskType 视频任务类型
type VideoTaskType string

const (
	VideoTaskTypeProcess VideoTaskType = "process" // 完整处理流程
	VideoTaskTypeParse   VideoTaskType = "parse"   // 仅解析链接
)

// VideoTaskStatus 视频任务状态
type VideoTaskStatus string

const (
	VideoTaskStatusPending         VideoTaskStatus = "pending"
	VideoTaskStatusDownloading     VideoTaskStatus = "downloading"
	VideoTaskStatusExtractingAudio VideoTaskStatus = "extracting_audio"
	VideoTaskStatusTranscribing    VideoTaskStatus = "transcribing"
	VideoTaskStatusSummarizing     VideoTaskStatus = "summarizing"
	VideoTaskStatusCompleted       VideoTaskStatus = "completed"
	VideoTaskStatusFailed          VideoTaskStatus = "failed"
)

// MediaType 媒体类型
type MediaType string

const (
	MediaTypeVideo     MediaType = "video"
	MediaTypeImage     MediaType = "image"
	MediaTypeLivePhoto MediaType = "live_photo"
)

// videoTaskStatusRank 状态推进顺序，只允许向前推进
var videoTaskStatusRank = map[VideoTaskStatus]int{
	VideoTaskStatusPending:         0,
	VideoTaskStatusDownloading:     1,
	VideoTaskStatusExtractingAudio: 2,
	VideoTaskStatusTranscribing:    3,
	VideoTaskStatusSummarizing:     4,
	VideoTaskStatusCompleted:       5,
	VideoTaskStatusFailed:          5,
}

// VideoTask 视频处理任务模型
type VideoTask struct {
	ID        string          `json:"id" gorm:"primarykey;size:36"`
	UserID    string          `json:"user_id" gorm:"not null;index;size:36"`
	TaskType  VideoTaskType   `json:"task_type" gorm:"not null;default:'process';index"`
	SourceURL string          `json:"source_url" gorm:"not null;index"` // 原始链接，创建后不变
	Status    VideoTaskStatus `json:"status" gorm:"not null;default:'pending';index"`

	// 解析结果
	MediaType    MediaType `json:"media_type,omitempty"`
	ContentID    string    `json:"content_id,omitempty" gorm:"index"` // 上游作品ID，决定落盘路径
	Description  string    `json:"description,omitempty" gorm:"type:text"`
	Author       string    `json:"author,omitempty"`
	DownloadURLs string    `json:"-" gorm:"type:text"` // JSON数组，按清晰度从高到低排序

	// 各阶段产物，只有对应阶段成功后才写入
	VideoPath  string `json:"video_path,omitempty"`
	AudioPath  string `json:"audio_path,omitempty"`
	Transcript string `json:"transcript,omitempty" gorm:"type:text"`
	Summary    string `json:"summary,omitempty" gorm:"type:text"`

	ErrorMsg  string    `json:"error,omitempty" gorm:"type:text"` // 仅失败时有值
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (VideoTask) TableName() string {
	return "video_tasks"
}

// IsTerminal 任务是否已到达终态
func (t *VideoTask) IsTerminal() bool {
	return t.Status == VideoTaskStatusCompleted || t.Status == VideoTaskStatusFailed
}

// CanAdvanceTo 检查状态是否只向前推进
func (t *VideoTask) CanAdvanceTo(next VideoTaskStatus) bool {
	cur, ok := videoTaskStatusRank[t.Status]
	if !ok {
		return false
	}
	n, ok := videoTaskStatusRank[next]
	if !ok {
		return false
	}
	return n >= cur && !t.IsTerminal()
}

// SetDownloadURLs 序列化下载链接列表
func (t *VideoTask) SetDownloadURLs(urls []string) error {
	data, err := json.Marshal(urls)
	if err != nil {
		return err
	}
	t.DownloadURLs = string(data)
	return nil
}

// DownloadURLList 反序列化下载链接列表
func (t *VideoTask) DownloadURLList() []string {
	if t.DownloadURLs == "" {
		return nil
	}
	var urls []string
	if err := json.Unmarshal([]byte(t.DownloadURLs), &urls); err != nil {
		return nil
	}
	return urls
}
