package service

import (
	"context"
	"fmt"
	"time"

	"lifetrace/app/config"
	"lifetrace/app/logger"
	"lifetrace/app/model"

	"resty.dev/v3"
)

// NotionService Notion 同步服务，把休息记录写入 Notion 数据库
type NotionService struct {
	cfg    *config.NotionConfig
	log    *logger.Logger
	client *resty.Client
}

// notionPageResponse Notion 创建页面响应
type notionPageResponse struct {
	ID string `json:"id"`
}

// NewNotionService 创建 Notion 同步服务
func NewNotionService(cfg *config.Config, log *logger.Logger) *NotionService {
	client := resty.New()
	client.SetBaseURL("https://api.notion.com/v1")
	client.SetAuthToken(cfg.Notion.Token)
	client.SetHeader("Notion-Version", "2022-06-28")

	return &NotionService{
		cfg:    &cfg.Notion,
		log:    log,
		client: client,
	}
}

// Enabled 是否配置了 Notion 同步
func (s *NotionService) Enabled() bool {
	return s.cfg.Token != ""
}

// AddRestRecord 把休息记录同步到对应的 Notion 数据库（睡眠/起床各一个库）。
// 返回创建的页面ID。
func (s *NotionService) AddRestRecord(ctx context.Context, record *model.RestRecord) (string, error) {
	databaseID := s.cfg.SleepDatabaseID
	if record.RestType == model.RestTypeWakeUp {
		databaseID = s.cfg.WakeDatabaseID
	}
	if databaseID == "" {
		return "", fmt.Errorf("Notion数据库ID未配置")
	}

	restTime := time.Unix(record.RestTime, 0)

	properties := map[string]any{
		"月份": map[string]any{
			"title": []map[string]any{
				{"text": map[string]any{"content": record.MonthStr}},
			},
		},
		"日期": map[string]any{
			"date": map[string]any{"start": restTime.Format("2006-01-02")},
		},
		"记录时间": map[string]any{
			"date": map[string]any{"start": restTime.Format(time.RFC3339)},
		},
		"城市": textProperty(record.City),
		"WiFi": textProperty(record.WifiName),
	}
	if record.Longitude != nil {
		properties["经度"] = map[string]any{"number": *record.Longitude}
	}
	if record.Latitude != nil {
		properties["纬度"] = map[string]any{"number": *record.Latitude}
	}

	var page notionPageResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"parent":     map[string]string{"database_id": databaseID},
			"properties": properties,
		}).
		SetResult(&page).
		Post("/pages")

	if err != nil {
		return "", fmt.Errorf("Notion数据同步失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("Notion数据同步失败，状态码: %d, 响应: %s", resp.StatusCode(), resp.String())
	}
	return page.ID, nil
}

// textProperty 构建富文本属性，nil 按空字符串处理
func textProperty(value *string) map[string]any {
	content := ""
	if value != nil {
		content = *value
	}
	return map[string]any{
		"rich_text": []map[string]any{
			{"text": map[string]any{"content": content}},
		},
	}
}
