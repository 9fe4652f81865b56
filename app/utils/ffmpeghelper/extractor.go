package ffmpeghelper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ExtractionError 音频提取失败错误
type ExtractionError struct {
	Message   string
	Stderr    string
	Cause     error
	Transient bool
}

func (e *ExtractionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("音频提取失败: %s: %s", e.Message, strings.TrimSpace(e.Stderr))
	}
	if e.Cause != nil {
		return fmt.Sprintf("音频提取失败: %s: %v", e.Message, e.Cause)
	}
	return "音频提取失败: " + e.Message
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Retryable 实现重试判定接口
func (e *ExtractionError) Retryable() bool {
	return e.Transient
}

// commandRunner 抽象子进程执行，便于测试注入
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stderr string, err error)
}

// execRunner 通过 os/exec 执行命令
type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// Extractor 使用 ffmpeg 从视频中提取音频
type Extractor struct {
	ffmpegPath string
	timeout    time.Duration
	runner     commandRunner
	stat       func(name string) (os.FileInfo, error)
}

// New 创建音频提取器
func New(ffmpegPath string, timeout time.Duration) *Extractor {
	return &Extractor{
		ffmpegPath: ffmpegPath,
		timeout:    timeout,
		runner:     &execRunner{},
		stat:       os.Stat,
	}
}

// NewForTests 创建可注入依赖的提取器，仅测试使用
func NewForTests(ffmpegPath string, timeout time.Duration, runner commandRunner, stat func(string) (os.FileInfo, error)) *Extractor {
	return &Extractor{ffmpegPath: ffmpegPath, timeout: timeout, runner: runner, stat: stat}
}

// Extract 从视频文件提取MP3音轨，输出到同目录同名的 .mp3 文件。
// 不修改也不删除源视频。
func (e *Extractor) Extract(ctx context.Context, videoPath string) (string, error) {
	if _, err := e.stat(videoPath); err != nil {
		return "", &ExtractionError{Message: fmt.Sprintf("无法访问视频文件: %s", videoPath), Cause: err}
	}

	ext := filepath.Ext(videoPath)
	audioPath := strings.TrimSuffix(videoPath, ext) + ".mp3"

	args := []string{
		"-i", videoPath, // 输入视频
		"-vn",            // 不包含视频
		"-acodec", "mp3", // 使用MP3编码
		"-ab", "192k", // 音频比特率
		"-y", // 覆盖输出文件
		audioPath,
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	stderr, err := e.runner.Run(ctx, e.ffmpegPath, args...)
	if err != nil {
		// 超时或被杀属于瞬时失败，可以重试一次
		transient := errors.Is(ctx.Err(), context.DeadlineExceeded)
		return "", &ExtractionError{Message: "ffmpeg执行失败", Stderr: stderr, Cause: err, Transient: transient}
	}

	// 检查输出文件
	if _, err := e.stat(audioPath); err != nil {
		return "", &ExtractionError{Message: "ffmpeg未生成音频文件", Cause: err}
	}

	return audioPath, nil
}
