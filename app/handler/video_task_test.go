package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lifetrace/app/config"
	"lifetrace/app/logger"
	"lifetrace/app/model"
	"lifetrace/app/service"
	"lifetrace/app/utils/mediaparser"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, shareURL string) (*mediaparser.ParsedMedia, error) {
	return &mediaparser.ParsedMedia{
		ContentID:    "7100000001",
		Description:  "测试视频",
		Author:       "作者",
		MediaType:    model.MediaTypeVideo,
		DownloadURLs: []string{"https://cdn.example.com/1080p.mp4"},
	}, nil
}

type stubFetcher struct{}

func (stubFetcher) Download(ctx context.Context, url, savePath string) (int64, error) {
	return 1024, nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(ctx context.Context, videoPath string) (string, error) {
	return strings.TrimSuffix(videoPath, ".mp4") + ".mp3", nil
}

type stubSpeech struct{}

func (stubSpeech) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return "字幕内容", nil
}

func (stubSpeech) Summarize(ctx context.Context, text string) (string, error) {
	return "总结内容", nil
}

func newVideoTaskRouter(t *testing.T, db *gorm.DB, userID string) (*gin.Engine, *service.VideoPipelineService) {
	t.Helper()
	cfg := &config.Config{Video: config.VideoConfig{StorageDir: t.TempDir()}}
	log := logger.New(config.LogConfig{Level: "error", Output: "stdout"})
	pipeline := service.NewVideoPipelineService(cfg, log, db,
		stubResolver{}, stubFetcher{}, stubExtractor{}, stubSpeech{}, nil)

	h := NewVideoTaskHandler(pipeline)
	r := gin.New()
	group := r.Group("/api/video-tasks", authAs(userID))
	group.POST("", h.SubmitVideoTask)
	group.GET("", h.GetVideoTasks)
	group.GET("/:id", h.GetVideoTask)
	return r, pipeline
}

func TestSubmitVideoTaskReturnsTaskID(t *testing.T) {
	db := setupTestDB(t)
	r, pipeline := newVideoTaskRouter(t, db, "user-1")

	body := `{"url": "7.43 复制打开 https://v.douyin.com/abc/ 看看", "task_type": "process"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/video-tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("状态码 = %d, body=%s", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	taskID, _ := dataField(t, resp, "task_id").(string)
	if taskID == "" {
		t.Fatalf("响应缺少 task_id: %s", w.Body.String())
	}
	pipeline.Wait()

	// 再查一次确认任务已完成
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/video-tasks/"+taskID, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("查询状态码 = %d, body=%s", w.Code, w.Body.String())
	}
	resp = decodeResponse(t, w)
	task, ok := dataField(t, resp, "task").(map[string]any)
	if !ok {
		t.Fatalf("响应缺少 task: %s", w.Body.String())
	}
	if task["status"] != string(model.VideoTaskStatusCompleted) {
		t.Fatalf("status = %v", task["status"])
	}
	if task["summary"] != "总结内容" {
		t.Fatalf("summary = %v", task["summary"])
	}
	urls, ok := dataField(t, resp, "download_urls").([]any)
	if !ok || len(urls) != 1 {
		t.Fatalf("download_urls = %v", dataField(t, resp, "download_urls"))
	}
}

func TestSubmitVideoTaskRejectsInvalidURL(t *testing.T) {
	db := setupTestDB(t)
	r, _ := newVideoTaskRouter(t, db, "user-1")

	body := `{"url": "这里没有链接"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/video-tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("状态码 = %d, want 400", w.Code)
	}
}

func TestSubmitVideoTaskRejectsBadTaskType(t *testing.T) {
	db := setupTestDB(t)
	r, _ := newVideoTaskRouter(t, db, "user-1")

	body := `{"url": "https://v.douyin.com/abc/", "task_type": "whatever"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/video-tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("状态码 = %d, want 400", w.Code)
	}
}

func TestGetVideoTaskNotFoundForOtherUser(t *testing.T) {
	db := setupTestDB(t)
	owner, pipeline := newVideoTaskRouter(t, db, "user-1")

	body := `{"url": "https://v.douyin.com/abc/"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/video-tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	owner.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("状态码 = %d", w.Code)
	}
	taskID, _ := dataField(t, decodeResponse(t, w), "task_id").(string)
	pipeline.Wait()

	// 他人查询同一任务应得到404
	other, _ := newVideoTaskRouter(t, db, "user-2")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/video-tasks/"+taskID, nil)
	other.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("状态码 = %d, want 404", w.Code)
	}
}

func TestGetVideoTasksPagination(t *testing.T) {
	db := setupTestDB(t)
	r, _ := newVideoTaskRouter(t, db, "user-1")

	for i := 0; i < 3; i++ {
		task := &model.VideoTask{
			ID:        "task-" + string(rune('a'+i)),
			UserID:    "user-1",
			TaskType:  model.VideoTaskTypeProcess,
			SourceURL: "https://v.douyin.com/x/",
			Status:    model.VideoTaskStatusCompleted,
		}
		if err := db.Create(task).Error; err != nil {
			t.Fatal(err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/video-tasks?page=1&page_size=2", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("状态码 = %d", w.Code)
	}
	resp := decodeResponse(t, w)
	if total, _ := dataField(t, resp, "total").(float64); total != 3 {
		t.Fatalf("total = %v, want 3", dataField(t, resp, "total"))
	}
	list, _ := dataField(t, resp, "list").([]any)
	if len(list) != 2 {
		t.Fatalf("第一页任务数 = %d, want 2", len(list))
	}
}
