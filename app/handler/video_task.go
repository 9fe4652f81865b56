package handler

import (
	"errors"
	"net/http"
	"strconv"

	"lifetrace/app/model"
	"lifetrace/app/service"
	"lifetrace/app/utils/mediaparser"

	"github.com/gin-gonic/gin"
)

// VideoTaskHandler 视频处理任务处理器
type VideoTaskHandler struct {
	pipeline *service.VideoPipelineService
}

// NewVideoTaskHandler 创建视频任务处理器
func NewVideoTaskHandler(pipeline *service.VideoPipelineService) *VideoTaskHandler {
	return &VideoTaskHandler{pipeline: pipeline}
}

func (h *VideoTaskHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{Code: 0, Message: message, Data: data})
}

func (h *VideoTaskHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{Code: errorCode, Message: message, Data: nil})
}

// SubmitVideoTaskRequest 提交任务请求
type SubmitVideoTaskRequest struct {
	URL      string `json:"url" binding:"required"`                           // 分享链接，可以混有其他文字
	TaskType string `json:"task_type" binding:"omitempty,oneof=process parse"` // 默认完整处理
}

// SubmitVideoTaskResponse 提交任务响应
type SubmitVideoTaskResponse struct {
	TaskID  string                `json:"task_id"`
	Status  model.VideoTaskStatus `json:"status"`
	Message string                `json:"message"`
}

// SubmitVideoTask 提交视频处理任务。
// 立即返回任务ID，处理进度通过查询接口获取。
func (h *VideoTaskHandler) SubmitVideoTask(c *gin.Context) {
	var req SubmitVideoTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		h.error(c, http.StatusUnauthorized, 401, "用户未认证")
		return
	}

	taskType := model.VideoTaskTypeProcess
	if req.TaskType == string(model.VideoTaskTypeParse) {
		taskType = model.VideoTaskTypeParse
	}

	task, err := h.pipeline.Submit(userID.(string), req.URL, taskType)
	if errors.Is(err, mediaparser.ErrInvalidShareURL) {
		h.error(c, http.StatusBadRequest, 400, "无效的分享链接")
		return
	}
	if err != nil {
		h.error(c, http.StatusInternalServerError, 500, "创建任务失败")
		return
	}

	message := "任务已创建，正在后台处理中..."
	if task.IsTerminal() {
		message = "任务已处理完成"
	}
	c.JSON(http.StatusCreated, ApiResponse{
		Code:    0,
		Message: message,
		Data: SubmitVideoTaskResponse{
			TaskID:  task.ID,
			Status:  task.Status,
			Message: message,
		},
	})
}

// GetVideoTask 查询任务状态和结果
func (h *VideoTaskHandler) GetVideoTask(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		h.error(c, http.StatusUnauthorized, 401, "用户未认证")
		return
	}

	task, err := h.pipeline.Get(c.Param("id"), userID.(string))
	if errors.Is(err, service.ErrTaskNotFound) {
		h.error(c, http.StatusNotFound, 404, "任务不存在")
		return
	}
	if err != nil {
		h.error(c, http.StatusInternalServerError, 500, "查询任务失败")
		return
	}

	h.success(c, gin.H{
		"task":          task,
		"download_urls": task.DownloadURLList(),
	}, "查询成功")
}

// GetVideoTasks 获取任务列表
func (h *VideoTaskHandler) GetVideoTasks(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		h.error(c, http.StatusUnauthorized, 401, "用户未认证")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	tasks, total, err := h.pipeline.List(userID.(string), page, pageSize)
	if err != nil {
		h.error(c, http.StatusInternalServerError, 500, "获取任务列表失败")
		return
	}

	h.success(c, gin.H{
		"list":     tasks,
		"total":    total,
		"current":  page,
		"pageSize": pageSize,
	}, "获取任务列表成功")
}
