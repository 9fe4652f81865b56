package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"lifetrace/app/config"
	"lifetrace/app/logger"
	"lifetrace/app/model"
	"lifetrace/app/utils/mediaparser"
	"lifetrace/app/utils/retry"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTaskNotFound 任务不存在或不属于当前用户
var ErrTaskNotFound = errors.New("任务不存在")

// MediaResolver 分享链接解析
type MediaResolver interface {
	Resolve(ctx context.Context, shareURL string) (*mediaparser.ParsedMedia, error)
}

// MediaFetcher 媒体文件下载
type MediaFetcher interface {
	Download(ctx context.Context, url, savePath string) (int64, error)
}

// AudioExtractor 音频提取
type AudioExtractor interface {
	Extract(ctx context.Context, videoPath string) (string, error)
}

// SpeechClient 语音识别与文本总结
type SpeechClient interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
	Summarize(ctx context.Context, text string) (string, error)
}

// VideoPipelineService 视频处理管线编排器。
// 负责任务生命周期：创建、去重、各阶段推进、失败落库。
type VideoPipelineService struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *gorm.DB
	resolver  MediaResolver
	fetcher   MediaFetcher
	extractor AudioExtractor
	speech    SpeechClient
	bark      *BarkService

	// submitMu 串行化"查重+建任务"，防止并发提交同一链接时建出两个任务
	submitMu sync.Mutex
	wg       sync.WaitGroup
}

// NewVideoPipelineService 创建视频处理管线服务
func NewVideoPipelineService(
	cfg *config.Config,
	log *logger.Logger,
	db *gorm.DB,
	resolver MediaResolver,
	fetcher MediaFetcher,
	extractor AudioExtractor,
	speech SpeechClient,
	bark *BarkService,
) *VideoPipelineService {
	return &VideoPipelineService{
		cfg:       cfg,
		log:       log,
		db:        db,
		resolver:  resolver,
		fetcher:   fetcher,
		extractor: extractor,
		speech:    speech,
		bark:      bark,
	}
}

// Recover 重新调度进程重启前遗留的未完结任务。
// 在途任务重置回 pending 后整条重跑：落盘路径由内容ID决定，重复执行是幂等的。
// 必须在对外提供提交服务前调用，否则遗留任务会永远卡在中间状态。
func (s *VideoPipelineService) Recover() error {
	var tasks []model.VideoTask
	err := s.db.Where("status NOT IN ?",
		[]model.VideoTaskStatus{model.VideoTaskStatusCompleted, model.VideoTaskStatusFailed}).
		Find(&tasks).Error
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	for _, task := range tasks {
		if task.Status != model.VideoTaskStatusPending {
			if err := s.db.Model(&task).Update("status", model.VideoTaskStatusPending).Error; err != nil {
				s.log.Errorf("重置任务状态失败: TaskID=%s, %v", task.ID, err)
				continue
			}
		}
		s.wg.Add(1)
		go func(taskID string) {
			defer s.wg.Done()
			s.run(taskID)
		}(task.ID)
	}

	s.log.Infof("恢复了 %d 个未完成任务", len(tasks))
	return nil
}

// Submit 提交任务。同一用户同一链接同一类型只允许一个未完结任务，
// 重复提交直接返回已有任务；任务创建后立即返回，处理在后台进行。
func (s *VideoPipelineService) Submit(userID, input string, taskType model.VideoTaskType) (*model.VideoTask, error) {
	shareURL, err := mediaparser.ExtractShareURL(input)
	if err != nil {
		return nil, err
	}

	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	// 查找进行中的同链接同类型任务。仅解析任务不能顶替完整处理请求
	var existing model.VideoTask
	err = s.db.Where("user_id = ? AND source_url = ? AND task_type = ? AND status NOT IN ?",
		userID, shareURL, taskType,
		[]model.VideoTaskStatus{model.VideoTaskStatusCompleted, model.VideoTaskStatusFailed}).
		First(&existing).Error
	if err == nil {
		s.log.Infof("任务已存在，返回进行中的任务: TaskID=%s, URL=%s", existing.ID, shareURL)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	task := &model.VideoTask{
		ID:        uuid.NewString(),
		UserID:    userID,
		TaskType:  taskType,
		SourceURL: shareURL,
		Status:    model.VideoTaskStatusPending,
	}
	if err := s.db.Create(task).Error; err != nil {
		return nil, err
	}

	s.log.Infof("任务已创建: TaskID=%s, Type=%s, URL=%s", task.ID, taskType, shareURL)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(task.ID)
	}()

	return task, nil
}

// Get 查询任务。任务不存在或属于其他用户时返回 ErrTaskNotFound。
func (s *VideoPipelineService) Get(taskID, userID string) (*model.VideoTask, error) {
	var task model.VideoTask
	err := s.db.Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List 分页查询用户的任务列表
func (s *VideoPipelineService) List(userID string, page, pageSize int) ([]model.VideoTask, int64, error) {
	var tasks []model.VideoTask
	query := s.db.Model(&model.VideoTask{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&tasks).Error
	return tasks, total, err
}

// Wait 等待所有后台任务结束，用于优雅关闭
func (s *VideoPipelineService) Wait() {
	s.wg.Wait()
}

// run 后台执行体。所有阶段错误都在这里兜底落库，绝不向外抛出。
func (s *VideoPipelineService) run(taskID string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("任务执行发生panic: TaskID=%s, %v", taskID, r)
			s.db.Model(&model.VideoTask{}).Where("id = ?", taskID).
				Updates(map[string]any{
					"status":    model.VideoTaskStatusFailed,
					"error_msg": fmt.Sprintf("内部错误: %v", r),
				})
		}
	}()

	var task model.VideoTask
	if err := s.db.First(&task, "id = ?", taskID).Error; err != nil {
		s.log.Errorf("加载任务失败: TaskID=%s, %v", taskID, err)
		return
	}
	if task.IsTerminal() {
		return
	}

	if task.TaskType == model.VideoTaskTypeParse {
		s.runParse(&task)
	} else {
		s.runProcess(&task)
	}
}

// runParse 仅解析：调解析API，写入媒体信息后直接完结
func (s *VideoPipelineService) runParse(task *model.VideoTask) {
	ctx := context.Background()

	media, err := s.resolve(ctx, task.SourceURL)
	if err != nil {
		s.fail(task, err)
		return
	}

	updates := metadataUpdates(media)
	updates["status"] = model.VideoTaskStatusCompleted
	s.advance(task, model.VideoTaskStatusCompleted, updates)
	s.log.Infof("✅ 解析任务完成: TaskID=%s, ContentID=%s", task.ID, media.ContentID)
}

// runProcess 完整流程：解析 → 下载 → 提取音频 → 语音识别 → AI总结。
// 每个阶段的产物和状态变更必须落库后才开始下一阶段。
func (s *VideoPipelineService) runProcess(task *model.VideoTask) {
	ctx := context.Background()

	// 1. 解析（pending 阶段内完成）
	media, err := s.resolve(ctx, task.SourceURL)
	if err != nil {
		s.fail(task, err)
		return
	}

	updates := metadataUpdates(media)
	updates["status"] = model.VideoTaskStatusDownloading
	if !s.advance(task, model.VideoTaskStatusDownloading, updates) {
		return
	}

	// 2. 下载。视频取最高清晰度（列表首位），图集取首张
	downloadURL := media.DownloadURLs[0]
	savePath := s.mediaPath(media)
	err = retry.Do(ctx, retry.NetworkPolicy(), func() error {
		_, derr := s.fetcher.Download(ctx, downloadURL, savePath)
		return derr
	})
	if err != nil {
		s.fail(task, err)
		return
	}

	// 图片/实况照片没有音轨，下载完成即完结
	if media.MediaType != model.MediaTypeVideo {
		s.advance(task, model.VideoTaskStatusCompleted, map[string]any{
			"video_path": savePath,
			"status":     model.VideoTaskStatusCompleted,
		})
		s.log.Infof("✅ 非视频媒体处理完成: TaskID=%s, MediaType=%s", task.ID, media.MediaType)
		s.notifyCompleted(task)
		return
	}

	if !s.advance(task, model.VideoTaskStatusExtractingAudio, map[string]any{
		"video_path": savePath,
		"status":     model.VideoTaskStatusExtractingAudio,
	}) {
		return
	}

	// 3. 提取音频。本地调用只重试一次
	var audioPath string
	err = retry.Do(ctx, retry.SubprocessPolicy(), func() error {
		var eerr error
		audioPath, eerr = s.extractor.Extract(ctx, savePath)
		return eerr
	})
	if err != nil {
		s.fail(task, err)
		return
	}

	if !s.advance(task, model.VideoTaskStatusTranscribing, map[string]any{
		"audio_path": audioPath,
		"status":     model.VideoTaskStatusTranscribing,
	}) {
		return
	}

	// 4. 语音识别
	var transcript string
	err = retry.Do(ctx, retry.NetworkPolicy(), func() error {
		var terr error
		transcript, terr = s.speech.Transcribe(ctx, audioPath)
		return terr
	})
	if err != nil {
		s.fail(task, err)
		return
	}

	if !s.advance(task, model.VideoTaskStatusSummarizing, map[string]any{
		"transcript": transcript,
		"status":     model.VideoTaskStatusSummarizing,
	}) {
		return
	}

	// 5. AI总结
	var summary string
	err = retry.Do(ctx, retry.NetworkPolicy(), func() error {
		var serr error
		summary, serr = s.speech.Summarize(ctx, transcript)
		return serr
	})
	if err != nil {
		s.fail(task, err)
		return
	}

	s.advance(task, model.VideoTaskStatusCompleted, map[string]any{
		"summary": summary,
		"status":  model.VideoTaskStatusCompleted,
	})
	s.log.Infof("✅ 视频处理完成: TaskID=%s, ContentID=%s", task.ID, media.ContentID)
	s.notifyCompleted(task)
}

// resolve 带重试的解析调用
func (s *VideoPipelineService) resolve(ctx context.Context, shareURL string) (*mediaparser.ParsedMedia, error) {
	var media *mediaparser.ParsedMedia
	err := retry.Do(ctx, retry.NetworkPolicy(), func() error {
		var rerr error
		media, rerr = s.resolver.Resolve(ctx, shareURL)
		return rerr
	})
	if err != nil {
		return nil, err
	}
	if len(media.DownloadURLs) == 0 {
		return nil, &mediaparser.ParseError{Message: "解析结果中没有下载链接"}
	}
	return media, nil
}

// mediaPath 按内容ID生成确定性的存储路径，同一内容重复下载会覆盖而不是堆积
func (s *VideoPipelineService) mediaPath(media *mediaparser.ParsedMedia) string {
	ext := ".mp4"
	if media.MediaType != model.MediaTypeVideo {
		ext = ".jpg"
	}
	return filepath.Join(s.cfg.Video.StorageDir, media.ContentID, media.ContentID+ext)
}

// metadataUpdates 解析结果对应的字段更新
func metadataUpdates(media *mediaparser.ParsedMedia) map[string]any {
	task := model.VideoTask{}
	_ = task.SetDownloadURLs(media.DownloadURLs)
	return map[string]any{
		"media_type":    media.MediaType,
		"content_id":    media.ContentID,
		"description":   media.Description,
		"author":        media.Author,
		"download_urls": task.DownloadURLs,
	}
}

// advance 原子推进任务状态：阶段产物和状态变更在同一条UPDATE里落库，
// 并发读不会看到"状态已推进但产物缺失"的中间态。
func (s *VideoPipelineService) advance(task *model.VideoTask, next model.VideoTaskStatus, updates map[string]any) bool {
	if !task.CanAdvanceTo(next) {
		s.log.Warnf("非法状态推进被拒绝: TaskID=%s, %s -> %s", task.ID, task.Status, next)
		return false
	}

	if err := s.db.Model(task).Updates(updates).Error; err != nil {
		s.log.Errorf("任务状态更新失败: TaskID=%s, %v", task.ID, err)
		s.fail(task, fmt.Errorf("任务状态更新失败: %w", err))
		return false
	}
	task.Status = next
	return true
}

// fail 任务失败落库。之前阶段已写入的产物保留，便于排查和部分复用。
func (s *VideoPipelineService) fail(task *model.VideoTask, cause error) {
	s.log.Errorf("❌ 任务失败: TaskID=%s, %v", task.ID, cause)

	err := s.db.Model(task).Updates(map[string]any{
		"status":    model.VideoTaskStatusFailed,
		"error_msg": cause.Error(),
	}).Error
	if err != nil {
		s.log.Errorf("任务失败状态落库失败: TaskID=%s, %v", task.ID, err)
	}
	task.Status = model.VideoTaskStatusFailed

	if s.bark != nil {
		s.bark.SendQuietly(context.Background(), "视频处理失败",
			fmt.Sprintf("任务ID: %s\n错误: %v", task.ID, cause))
	}
}

// notifyCompleted 任务完成推送，尽力而为
func (s *VideoPipelineService) notifyCompleted(task *model.VideoTask) {
	if s.bark == nil {
		return
	}

	var fresh model.VideoTask
	if err := s.db.First(&fresh, "id = ?", task.ID).Error; err != nil {
		return
	}
	content := fresh.Summary
	if content == "" {
		content = "任务ID: " + task.ID
	}
	s.bark.SendQuietly(context.Background(), "视频处理完成", content)
}
