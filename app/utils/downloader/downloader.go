package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DownloadError 下载失败错误
type DownloadError struct {
	Message   string
	Cause     error
	Transient bool
}

func (e *DownloadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("下载失败: %s: %v", e.Message, e.Cause)
	}
	return "下载失败: " + e.Message
}

func (e *DownloadError) Unwrap() error {
	return e.Cause
}

// Retryable 实现重试判定接口
func (e *DownloadError) Retryable() bool {
	return e.Transient
}

// Config 下载配置
type Config struct {
	UserAgent string        // User-Agent
	Referer   string        // 部分CDN校验Referer
	Timeout   time.Duration // 超时时间
}

// DefaultConfig 默认下载配置
func DefaultConfig() *Config {
	return &Config{
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Referer:   "https://www.douyin.com/",
		Timeout:   time.Minute * 10,
	}
}

// Fetcher 携带固定配置的下载器
type Fetcher struct {
	cfg *Config
}

// NewFetcher 创建下载器，cfg 为 nil 时使用默认配置
func NewFetcher(cfg *Config) *Fetcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Fetcher{cfg: cfg}
}

// Download 使用固定配置下载
func (f *Fetcher) Download(ctx context.Context, url, savePath string) (int64, error) {
	return Download(ctx, url, savePath, f.cfg)
}

// Download 将远端资源流式写入 savePath。
// 先写临时文件再改名，失败时不留下半成品；同一路径重复下载直接覆盖。
// 返回写入的字节数。
func Download(ctx context.Context, url, savePath string, cfg *Config) (written int64, err error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &DownloadError{Message: "创建HTTP请求失败", Cause: err}
	}

	// 设置请求头以绕过访问限制
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "identity") // 禁用压缩，避免 Content-Length 不匹配
	if cfg.Referer != "" {
		req.Header.Set("Referer", cfg.Referer)
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// 允许最多 10 次重定向
			if len(via) >= 10 {
				return fmt.Errorf("重定向次数过多")
			}
			req.Header.Set("User-Agent", cfg.UserAgent)
			return nil
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, &DownloadError{Message: "HTTP请求失败", Cause: err, Transient: true}
	}
	defer resp.Body.Close()

	// 非2xx不落盘
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		transient := resp.StatusCode >= 500
		return 0, &DownloadError{
			Message:   fmt.Sprintf("HTTP请求失败，状态码: %d", resp.StatusCode),
			Transient: transient,
		}
	}

	// 确保保存目录存在
	if err := os.MkdirAll(filepath.Dir(savePath), 0755); err != nil {
		return 0, &DownloadError{Message: "创建保存目录失败", Cause: err}
	}

	// 先写临时文件
	tmpPath := savePath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return 0, &DownloadError{Message: "创建文件失败", Cause: err}
	}
	defer func() {
		file.Close()
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	written, copyErr := io.Copy(file, resp.Body)
	if copyErr != nil {
		err = &DownloadError{Message: "写入文件内容失败", Cause: copyErr, Transient: true}
		return 0, err
	}

	if syncErr := file.Sync(); syncErr != nil {
		err = &DownloadError{Message: "刷新文件到磁盘失败", Cause: syncErr}
		return 0, err
	}
	if closeErr := file.Close(); closeErr != nil {
		err = &DownloadError{Message: "关闭文件失败", Cause: closeErr}
		return 0, err
	}

	// 验证文件大小（如果服务器提供了Content-Length）
	if resp.ContentLength > 0 && written != resp.ContentLength {
		err = &DownloadError{
			Message:   fmt.Sprintf("下载不完整: 期望 %d bytes, 实际 %d bytes", resp.ContentLength, written),
			Transient: true,
		}
		return 0, err
	}

	// 覆盖式改名，保证同一内容ID的重复下载不产生重复文件
	if renameErr := os.Rename(tmpPath, savePath); renameErr != nil {
		err = &DownloadError{Message: "重命名文件失败", Cause: renameErr}
		return 0, err
	}

	return written, nil
}
