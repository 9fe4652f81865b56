package handler

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"lifetrace/app/database"
	"lifetrace/app/model"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// setupTestDB 把全局数据库指向临时库，测试结束后还原
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.RestRecord{}, &model.GtdTask{}, &model.VideoTask{}); err != nil {
		t.Fatalf("迁移测试数据库失败: %v", err)
	}

	old := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = old })
	return db
}

// authAs 测试路由中间件，模拟已认证用户
func authAs(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Set("username", "tester")
		c.Next()
	}
}

// decodeResponse 解析统一响应结构
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) ApiResponse {
	t.Helper()
	var resp ApiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v, body=%s", err, w.Body.String())
	}
	return resp
}

// dataField 从响应 data 中取字段
func dataField(t *testing.T, resp ApiResponse, key string) any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("data 不是对象: %#v", resp.Data)
	}
	return data[key]
}
