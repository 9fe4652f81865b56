package service

import (
	"os"
	"path/filepath"
	"time"

	"lifetrace/app/config"
	"lifetrace/app/logger"
	"lifetrace/app/model"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CleanupService 定期清理过期的终态任务及其落盘文件
type CleanupService struct {
	cfg  *config.Config
	log  *logger.Logger
	db   *gorm.DB
	cron *cron.Cron
}

// NewCleanupService 创建清理服务
func NewCleanupService(cfg *config.Config, log *logger.Logger, db *gorm.DB) *CleanupService {
	return &CleanupService{
		cfg:  cfg,
		log:  log,
		db:   db,
		cron: cron.New(),
	}
}

// Start 注册定时任务，每天凌晨3点执行一次清理
func (s *CleanupService) Start() error {
	if _, err := s.cron.AddFunc("0 3 * * *", s.CleanupOldTasks); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infof("清理服务已启动，保留天数: %d", s.cfg.Video.RetentionDays)
	return nil
}

// Stop 停止定时任务，等待正在执行的清理结束
func (s *CleanupService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// CleanupOldTasks 清理超过保留期的已完结任务的媒体文件。
// 任务行本身保留，只清理磁盘上的中间产物。
func (s *CleanupService) CleanupOldTasks() {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.Video.RetentionDays)

	var tasks []model.VideoTask
	err := s.db.Where("status IN ? AND updated_at < ? AND content_id != ''",
		[]model.VideoTaskStatus{model.VideoTaskStatusCompleted, model.VideoTaskStatusFailed},
		cutoff).
		Find(&tasks).Error
	if err != nil {
		s.log.Errorf("查询待清理任务失败: %v", err)
		return
	}

	cleaned := 0
	for _, task := range tasks {
		// 同一内容的目录在任务间共享，有在途任务时不能删
		var active int64
		err := s.db.Model(&model.VideoTask{}).
			Where("content_id = ? AND status NOT IN ?", task.ContentID,
				[]model.VideoTaskStatus{model.VideoTaskStatusCompleted, model.VideoTaskStatusFailed}).
			Count(&active).Error
		if err != nil {
			s.log.Errorf("查询在途任务失败: ContentID=%s, %v", task.ContentID, err)
			continue
		}
		if active > 0 {
			continue
		}

		dir := filepath.Join(s.cfg.Video.StorageDir, task.ContentID)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			s.log.Errorf("清理媒体目录失败: %s, %v", dir, err)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		s.log.Infof("清理了 %d 个任务的媒体文件（超过%d天）", cleaned, s.cfg.Video.RetentionDays)
	}
}
