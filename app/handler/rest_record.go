package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"lifetrace/app/database"
	"lifetrace/app/model"
	"lifetrace/app/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// cnLocation 北京时间。打卡时间与月份字符串统一用北京时间生成
var cnLocation = time.FixedZone("CST", 8*3600)

// RestRecordHandler 休息记录处理器
type RestRecordHandler struct {
	notion *service.NotionService
	bark   *service.BarkService
}

// NewRestRecordHandler 创建休息记录处理器
func NewRestRecordHandler(notion *service.NotionService, bark *service.BarkService) *RestRecordHandler {
	return &RestRecordHandler{notion: notion, bark: bark}
}

func (h *RestRecordHandler) success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{Code: 0, Message: message, Data: data})
}

func (h *RestRecordHandler) error(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{Code: errorCode, Message: message, Data: nil})
}

// CreateRestRecordRequest 创建休息记录请求
type CreateRestRecordRequest struct {
	RestType  *model.RestType `json:"rest_type" binding:"omitempty,oneof=0 1"` // 不传则根据上一条记录自动交替
	WifiName  *string         `json:"wifi_name"`
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	City      *string         `json:"city"`
}

// CreateRestRecord 创建休息记录。
// 未指定类型时按上一条记录交替（上一条是睡眠则这条是起床），首条默认睡眠。
func (h *RestRecordHandler) CreateRestRecord(c *gin.Context) {
	var req CreateRestRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.error(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		h.error(c, http.StatusUnauthorized, 401, "用户未认证")
		return
	}
	uid := userID.(string)
	db := database.GetDB()

	// 确定休息类型
	var restType model.RestType
	if req.RestType != nil {
		restType = *req.RestType
	} else {
		var last model.RestRecord
		err := db.Where("user_id = ?", uid).Order("rest_time DESC").First(&last).Error
		switch {
		case err == nil:
			restType = 1 - last.RestType
		case err == gorm.ErrRecordNotFound:
			restType = model.RestTypeSleep
		default:
			h.error(c, http.StatusInternalServerError, 500, "查询历史记录失败")
			return
		}
	}

	// 打卡时间与月份统一基于北京时间
	cnNow := time.Now().In(cnLocation)

	record := model.RestRecord{
		ID:        uuid.NewString(),
		UserID:    uid,
		RestType:  restType,
		RestTime:  cnNow.Unix(),
		MonthStr:  cnNow.Format("01月"),
		WifiName:  req.WifiName,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		City:      req.City,
	}
	if err := db.Create(&record).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "创建休息记录失败")
		return
	}

	// 后台同步到 Notion，失败重试3次，仍失败时走 Bark 告警
	if h.notion != nil && h.notion.Enabled() {
		go h.syncToNotion(record)
	}

	h.success(c, &record, "创建休息记录成功")
}

// syncToNotion 后台 Notion 同步，带固定间隔重试
func (h *RestRecordHandler) syncToNotion(record model.RestRecord) {
	ctx := context.Background()

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if _, err = h.notion.AddRestRecord(ctx, &record); err == nil {
			return
		}
		time.Sleep(time.Second)
	}

	if h.bark != nil {
		h.bark.SendQuietly(ctx, "Notion同步失败", "休息记录同步失败（重试3次）: "+err.Error())
	}
}

// GetRestRecords 获取休息记录列表，支持按月份和类型过滤
func (h *RestRecordHandler) GetRestRecords(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		h.error(c, http.StatusUnauthorized, 401, "用户未认证")
		return
	}

	query := database.GetDB().Model(&model.RestRecord{}).Where("user_id = ?", userID.(string))

	// 分页参数
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	offset := (page - 1) * pageSize

	if month := c.Query("month"); month != "" {
		query = query.Where("month_str = ?", month)
	}
	if restType := c.Query("rest_type"); restType != "" {
		query = query.Where("rest_type = ?", restType)
	}

	var total int64
	query.Count(&total)

	var records []model.RestRecord
	if err := query.Order("rest_time DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&records).Error; err != nil {
		h.error(c, http.StatusInternalServerError, 500, "获取休息记录失败")
		return
	}

	h.success(c, gin.H{
		"list":     records,
		"total":    total,
		"current":  page,
		"pageSize": pageSize,
	}, "获取休息记录成功")
}

// GetLatestRestRecord 获取最近一条休息记录
func (h *RestRecordHandler) GetLatestRestRecord(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		h.error(c, http.StatusUnauthorized, 401, "用户未认证")
		return
	}

	var record model.RestRecord
	err := database.GetDB().Where("user_id = ?", userID.(string)).
		Order("rest_time DESC").First(&record).Error
	if err == gorm.ErrRecordNotFound {
		h.error(c, http.StatusNotFound, 404, "暂无休息记录")
		return
	}
	if err != nil {
		h.error(c, http.StatusInternalServerError, 500, "查询休息记录失败")
		return
	}

	h.success(c, &record, "获取最近记录成功")
}
