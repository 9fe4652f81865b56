package service

import (
	"context"
	"fmt"
	"net/url"

	"lifetrace/app/config"
	"lifetrace/app/logger"

	"resty.dev/v3"
)

// BarkService Bark 推送服务
type BarkService struct {
	cfg    *config.BarkConfig
	log    *logger.Logger
	client *resty.Client
}

// NewBarkService 创建 Bark 推送服务
func NewBarkService(cfg *config.Config, log *logger.Logger) *BarkService {
	return &BarkService{
		cfg:    &cfg.Bark,
		log:    log,
		client: resty.New().SetBaseURL(cfg.Bark.BaseURL),
	}
}

// Send 发送一条推送通知。未配置 device_key 时静默跳过。
func (s *BarkService) Send(ctx context.Context, title, content string) error {
	if s.cfg.DeviceKey == "" {
		return nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"level":     "timeSensitive",
			"isArchive": "1",
			"group":     "lifetrace",
		}).
		Get(fmt.Sprintf("/%s/%s/%s",
			s.cfg.DeviceKey,
			url.PathEscape(title),
			url.PathEscape(content)))

	if err != nil {
		return fmt.Errorf("Bark通知发送失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("Bark通知发送失败，状态码: %d", resp.StatusCode())
	}
	return nil
}

// SendQuietly 发送通知，失败只记日志不返回错误。
// 推送属于尽力而为，不能影响主流程。
func (s *BarkService) SendQuietly(ctx context.Context, title, content string) {
	if err := s.Send(ctx, title, content); err != nil {
		s.log.Warnf("%v", err)
	}
}
