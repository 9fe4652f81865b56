package service

import (
	"context"
	"testing"

	"lifetrace/app/config"
	"lifetrace/app/logger"
	"lifetrace/app/model"
)

func TestNotionServiceEnabled(t *testing.T) {
	log := logger.New(config.LogConfig{Level: "error", Output: "stdout"})

	disabled := NewNotionService(&config.Config{}, log)
	if disabled.Enabled() {
		t.Fatal("未配置 token 时应为禁用")
	}

	enabled := NewNotionService(&config.Config{
		Notion: config.NotionConfig{Token: "secret-token"},
	}, log)
	if !enabled.Enabled() {
		t.Fatal("配置了 token 时应为启用")
	}
}

func TestNotionAddRestRecordRequiresDatabaseID(t *testing.T) {
	log := logger.New(config.LogConfig{Level: "error", Output: "stdout"})
	s := NewNotionService(&config.Config{
		Notion: config.NotionConfig{
			Token:           "secret-token",
			SleepDatabaseID: "sleep-db",
			// 起床库未配置
		},
	}, log)

	record := &model.RestRecord{RestType: model.RestTypeWakeUp, RestTime: 1756400000, MonthStr: "08月"}
	if _, err := s.AddRestRecord(context.Background(), record); err == nil {
		t.Fatal("缺少数据库ID应返回错误")
	}
}
