package model

import "testing"

func TestVideoTaskStatusOnlyAdvancesForward(t *testing.T) {
	order := []VideoTaskStatus{
		VideoTaskStatusPending,
		VideoTaskStatusDownloading,
		VideoTaskStatusExtractingAudio,
		VideoTaskStatusTranscribing,
		VideoTaskStatusSummarizing,
		VideoTaskStatusCompleted,
	}

	for i, cur := range order[:len(order)-1] {
		task := &VideoTask{Status: cur}
		// 向前推进都合法
		for _, next := range order[i+1:] {
			if !task.CanAdvanceTo(next) {
				t.Errorf("%s -> %s 应被允许", cur, next)
			}
		}
		// 回退都非法
		for _, prev := range order[:i] {
			if task.CanAdvanceTo(prev) {
				t.Errorf("%s -> %s 应被拒绝", cur, prev)
			}
		}
		// 任何非终态都可以直接失败
		if !task.CanAdvanceTo(VideoTaskStatusFailed) {
			t.Errorf("%s -> failed 应被允许", cur)
		}
	}
}

func TestVideoTaskTerminalStatesAreImmutable(t *testing.T) {
	for _, terminal := range []VideoTaskStatus{VideoTaskStatusCompleted, VideoTaskStatusFailed} {
		task := &VideoTask{Status: terminal}
		if !task.IsTerminal() {
			t.Errorf("%s 应为终态", terminal)
		}
		for _, next := range []VideoTaskStatus{
			VideoTaskStatusPending,
			VideoTaskStatusDownloading,
			VideoTaskStatusCompleted,
			VideoTaskStatusFailed,
		} {
			if task.CanAdvanceTo(next) {
				t.Errorf("终态 %s 不应允许推进到 %s", terminal, next)
			}
		}
	}
}

func TestVideoTaskUnknownStatusRejected(t *testing.T) {
	task := &VideoTask{Status: VideoTaskStatus("bogus")}
	if task.CanAdvanceTo(VideoTaskStatusDownloading) {
		t.Error("未知状态不应允许推进")
	}
}

func TestDownloadURLRoundTrip(t *testing.T) {
	task := &VideoTask{}
	urls := []string{"https://cdn.example.com/1080p.mp4", "https://cdn.example.com/720p.mp4"}
	if err := task.SetDownloadURLs(urls); err != nil {
		t.Fatalf("SetDownloadURLs() error = %v", err)
	}

	got := task.DownloadURLList()
	if len(got) != 2 || got[0] != urls[0] || got[1] != urls[1] {
		t.Fatalf("DownloadURLList() = %v", got)
	}

	empty := &VideoTask{}
	if empty.DownloadURLList() != nil {
		t.Fatal("空字段应返回 nil")
	}
}
