package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newGtdTaskRouter(userID string) *gin.Engine {
	h := NewGtdTaskHandler()
	r := gin.New()
	group := r.Group("/api/gtd-tasks", authAs(userID))
	group.POST("", h.CreateGtdTask)
	group.GET("", h.GetGtdTasks)
	group.PUT("/:id", h.UpdateGtdTask)
	group.DELETE("/:id", h.DeleteGtdTask)
	return r
}

func createGtdTask(t *testing.T, r *gin.Engine, body string) ApiResponse {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/gtd-tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("创建状态码 = %d, body=%s", w.Code, w.Body.String())
	}
	return decodeResponse(t, w)
}

func TestCreateGtdTask(t *testing.T) {
	setupTestDB(t)
	r := newGtdTaskRouter("user-1")

	resp := createGtdTask(t, r, `{
		"name": "写周报",
		"start_time": 1756400000,
		"end_time": 1756403600,
		"priority": 2,
		"category": "工作"
	}`)
	if got, _ := dataField(t, resp, "name").(string); got != "写周报" {
		t.Fatalf("name = %v", dataField(t, resp, "name"))
	}
	// 新任务默认待办
	if got, _ := dataField(t, resp, "status").(float64); got != 0 {
		t.Fatalf("status = %v, want 0", dataField(t, resp, "status"))
	}
}

func TestCreateGtdTaskValidatesTimeRange(t *testing.T) {
	setupTestDB(t)
	r := newGtdTaskRouter("user-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/gtd-tasks", strings.NewReader(`{
		"name": "时间倒置",
		"start_time": 1756403600,
		"end_time": 1756400000,
		"category": "工作"
	}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("状态码 = %d, want 400", w.Code)
	}
}

func TestUpdateGtdTaskPartialFields(t *testing.T) {
	setupTestDB(t)
	r := newGtdTaskRouter("user-1")

	created := createGtdTask(t, r, `{
		"name": "写周报",
		"start_time": 1756400000,
		"end_time": 1756403600,
		"category": "工作"
	}`)
	id, _ := dataField(t, created, "id").(string)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/gtd-tasks/"+id, strings.NewReader(`{"status": 2}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("更新状态码 = %d, body=%s", w.Code, w.Body.String())
	}

	// 只改了状态，名称保持不变
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/gtd-tasks?status=2", nil)
	r.ServeHTTP(w, req)
	resp := decodeResponse(t, w)
	list, _ := dataField(t, resp, "list").([]any)
	if len(list) != 1 {
		t.Fatalf("按状态过滤任务数 = %d, want 1", len(list))
	}
	task, _ := list[0].(map[string]any)
	if task["name"] != "写周报" {
		t.Fatalf("name = %v", task["name"])
	}
}

func TestUpdateGtdTaskOtherUserNotFound(t *testing.T) {
	setupTestDB(t)
	owner := newGtdTaskRouter("user-1")
	created := createGtdTask(t, owner, `{
		"name": "私人任务",
		"start_time": 1756400000,
		"end_time": 1756403600,
		"category": "生活"
	}`)
	id, _ := dataField(t, created, "id").(string)

	other := newGtdTaskRouter("user-2")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/gtd-tasks/"+id, strings.NewReader(`{"status": 1}`))
	req.Header.Set("Content-Type", "application/json")
	other.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("状态码 = %d, want 404", w.Code)
	}
}

func TestDeleteGtdTask(t *testing.T) {
	setupTestDB(t)
	r := newGtdTaskRouter("user-1")
	created := createGtdTask(t, r, `{
		"name": "临时任务",
		"start_time": 1756400000,
		"end_time": 1756403600,
		"category": "生活"
	}`)
	id, _ := dataField(t, created, "id").(string)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/gtd-tasks/"+id, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("删除状态码 = %d", w.Code)
	}

	// 重复删除返回404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/gtd-tasks/"+id, nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("重复删除状态码 = %d, want 404", w.Code)
	}
}
