package handler

import (
	"net/http"
	"strconv"

	"lifetrace/app/database"
	"lifetrace/app/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GtdTaskHandler GTD任务处理器
type GtdTaskHandler struct{}

// NewGtdTaskHandler 创建GTD任务处理器
func NewGtdTaskHandler() *GtdTaskHandler {
	return &GtdTaskHandler{}
}

func (h *GtdTaskHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{Code: 0, Message: message, Data: data})
}

func (h *GtdTaskHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{Code: errorCode, Message: message, Data: nil})
}

// CreateGtdTaskRequest 创建任务请求
type CreateGtdTaskRequest struct {
	Name      string `json:"name" binding:"required"`
	StartTime int64  `json:"start_time" binding:"required"`
	EndTime   int64  `json:"end_time" binding:"required,gtefield=StartTime"`
	Priority  int    `json:"priority"`
	Category  string `json:"category" binding:"required"`
}

// UpdateGtdTaskRequest 更新任务请求，所有字段可选
type UpdateGtdTaskRequest struct {
	Name      *string          `json:"name"`
	StartTime *int64           `json:"start_time"`
	EndTime   *int64           `json:"end_time"`
	Priority  *int             `json:"priority"`
	Category  *string          `json:"category"`
	Status    *model.GtdStatus `json:"status" binding:"omitempty,oneof=0 1 2 3"`
}

// CreateGtdTask 创建GTD任务
func (h *GtdTaskHandler) CreateGtdTask(c *gin.Context) {
	var req CreateGtdTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		h.error(c, http.StatusUnauthorized, 401, "用户未认证")
		return
	}

	task := model.GtdTask{
		ID:        uuid.NewString(),
		UserID:    userID.(string),
		Name:      req.Name,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Priority:  req.Priority,
		Category:  req.Category,
		Status:    model.GtdStatusTodo,
	}
	if err := database.GetDB().Create(&task).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "创建任务失败")
		return
	}

	h.success(c, &task, "创建任务成功")
}

// GetGtdTasks 获取任务列表，支持状态、分类过滤
func (h *GtdTaskHandler) GetGtdTasks(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		h.error(c, http.StatusUnauthorized, 401, "用户未认证")
		return
	}

	query := database.GetDB().Model(&model.GtdTask{}).Where("user_id = ?", userID.(string))

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	offset := (page - 1) * pageSize

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	query.Count(&total)

	var tasks []model.GtdTask
	if err := query.Order("priority DESC, start_time ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&tasks).Error; err != nil {
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

// UpdateGtdTask 更新GTD任务
func (h *GtdTaskHandler) UpdateGtdTask(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		h.error(c, http.StatusUnauthorized, 401, "用户未认证")
		return
	}

	var task model.GtdTask
	db := database.GetDB()
	if err := db.Where("id = ? AND user_id = ?", c.Param("id"), userID.(string)).First(&task).Error; err != nil {
		h.error(c, http.StatusNotFound, 404, "任务不存在")
		return
	}

	var req UpdateGtdTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.StartTime != nil {
		updates["start_time"] = *req.StartTime
	}
	if req.EndTime != nil {
		updates["end_time"] = *req.EndTime
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if len(updates) == 0 {
		h.success(c, &task, "无需更新")
		return
	}

	if err := db.Model(&task).Updates(updates).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "更新任务失败")
		return
	}

	h.success(c, &task, "更新任务成功")
}

// DeleteGtdTask 删除GTD任务
func (h *GtdTaskHandler) DeleteGtdTask(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		h.error(c, http.StatusUnauthorized, 401, "用户未认证")
		return
	}

	result := database.GetDB().Where("id = ? AND user_id = ?", c.Param("id"), userID.(string)).
		Delete(&model.GtdTask{})
	if result.Error != nil {
		h.error(c, http.StatusInternalServerError, 500, "删除任务失败")
		return
	}
	if result.RowsAffected == 0 {
		h.error(c, http.StatusNotFound, 404, "任务不存在")
		return
	}

	h.success(c, nil, "删除任务成功")
}
