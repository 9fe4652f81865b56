package mediaparser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lifetrace/app/config"
	"lifetrace/app/logger"
	"lifetrace/app/model"
	"lifetrace/app/utils/retry"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := &config.Config{
		Video: config.VideoConfig{
			ParserAPIURL:     serverURL,
			ParserTimeout:    5 * time.Second,
			ParseCacheExpire: time.Minute,
		},
	}
	log := logger.New(config.LogConfig{Level: "error", Output: "stdout"})
	return New(cfg, log)
}

func TestExtractShareURL(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "分享口令中混有文字",
			input: "7.43 复制打开抖音 https://v.douyin.com/abc123/ 看看这个视频",
			want:  "https://v.douyin.com/abc123/",
		},
		{
			name:  "纯链接",
			input: "https://www.douyin.com/video/7123456789",
			want:  "https://www.douyin.com/video/7123456789",
		},
		{
			name:    "不支持的域名",
			input:   "https://example.com/video/1",
			wantErr: true,
		},
		{
			name:    "没有链接",
			input:   "随便一段文字",
			wantErr: true,
		},
		{
			name:    "空输入",
			input:   "",
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractShareURL(tc.input)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidShareURL) {
					t.Fatalf("ExtractShareURL(%q) error = %v, want ErrInvalidShareURL", tc.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractShareURL(%q) error = %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("ExtractShareURL(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestResolveVideoPicksQualityOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://v.douyin.com/abc/" {
			t.Errorf("query url = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"code": 200,
			"data": {
				"aweme_id": "7100000001",
				"desc": "测试视频",
				"author": {"nickname": "作者"},
				"video": {
					"play_addr": {"url_list": ["https://cdn.example.com/default.mp4"]},
					"bit_rate": [
						{"play_addr": {"url_list": ["https://cdn.example.com/1080p.mp4"]}},
						{"play_addr": {"url_list": ["https://cdn.example.com/720p.mp4"]}}
					]
				}
			}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	media, err := c.Resolve(context.Background(), "https://v.douyin.com/abc/")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if media.ContentID != "7100000001" {
		t.Fatalf("ContentID = %q", media.ContentID)
	}
	if media.MediaType != model.MediaTypeVideo {
		t.Fatalf("MediaType = %q, want video", media.MediaType)
	}
	if media.Author != "作者" || media.Description != "测试视频" {
		t.Fatalf("元数据不匹配: author=%q desc=%q", media.Author, media.Description)
	}
	if len(media.DownloadURLs) != 2 {
		t.Fatalf("下载链接数 = %d, want 2", len(media.DownloadURLs))
	}
	// 首位必须是最高清晰度
	if media.DownloadURLs[0] != "https://cdn.example.com/1080p.mp4" {
		t.Fatalf("DownloadURLs[0] = %q, want 1080p", media.DownloadURLs[0])
	}
}

func TestResolveVideoFallsBackToPlayAddr(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"code": 200,
			"data": {
				"aweme_id": "7100000002",
				"video": {"play_addr": {"url_list": ["https://cdn.example.com/only.mp4"]}}
			}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	media, err := c.Resolve(context.Background(), "https://v.douyin.com/abc/")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(media.DownloadURLs) != 1 || media.DownloadURLs[0] != "https://cdn.example.com/only.mp4" {
		t.Fatalf("DownloadURLs = %v", media.DownloadURLs)
	}
}

func TestResolveImageGallery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"code": 200,
			"data": {
				"aweme_id": "7100000003",
				"images": [
					{"url_list": ["https://cdn.example.com/1.jpg"]},
					{"url_list": ["https://cdn.example.com/2.jpg"]}
				]
			}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	media, err := c.Resolve(context.Background(), "https://v.douyin.com/img/")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if media.MediaType != model.MediaTypeImage {
		t.Fatalf("MediaType = %q, want image", media.MediaType)
	}
	if len(media.DownloadURLs) != 2 {
		t.Fatalf("下载链接数 = %d, want 2", len(media.DownloadURLs))
	}
}

func TestResolveLivePhoto(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"code": 200,
			"data": {
				"aweme_id": "7100000004",
				"images": [
					{"url_list": ["https://cdn.example.com/1.jpg"]},
					{
						"url_list": ["https://cdn.example.com/2.jpg"],
						"video": {"play_addr": {"url_list": ["https://cdn.example.com/2.mp4"]}}
					}
				]
			}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	media, err := c.Resolve(context.Background(), "https://v.douyin.com/live/")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if media.MediaType != model.MediaTypeLivePhoto {
		t.Fatalf("MediaType = %q, want live_photo", media.MediaType)
	}
}

func TestResolveUpstreamErrorCodeNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code": 400, "msg": "视频不存在"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Resolve(context.Background(), "https://v.douyin.com/gone/")

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Resolve() error = %v, want *ParseError", err)
	}
	if retry.IsRetryable(err) {
		t.Fatal("上游明确拒绝的解析错误不应重试")
	}
}

func TestResolveServerErrorRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Resolve(context.Background(), "https://v.douyin.com/5xx/")

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Resolve() error = %v, want *ParseError", err)
	}
	if !retry.IsRetryable(err) {
		t.Fatal("解析API 5xx 应可重试")
	}
}

func TestResolveMissingContentID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code": 200, "data": {"desc": "没有aweme_id"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Resolve(context.Background(), "https://v.douyin.com/bad/")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Resolve() error = %v, want *ParseError", err)
	}
}

func TestResolveCachesResult(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"code": 200,
			"data": {
				"aweme_id": "7100000005",
				"video": {"play_addr": {"url_list": ["https://cdn.example.com/v.mp4"]}}
			}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	first, err := c.Resolve(context.Background(), "https://v.douyin.com/cache/")
	if err != nil {
		t.Fatalf("第一次 Resolve() error = %v", err)
	}
	second, err := c.Resolve(context.Background(), "https://v.douyin.com/cache/")
	if err != nil {
		t.Fatalf("第二次 Resolve() error = %v", err)
	}
	if hits != 1 {
		t.Fatalf("上游请求次数 = %d, want 1", hits)
	}
	if first.ContentID != second.ContentID {
		t.Fatalf("缓存结果不一致: %q vs %q", first.ContentID, second.ContentID)
	}
}
