package retry

import (
	"context"
	"errors"
	"time"
)

// Policy 重试策略
type Policy struct {
	MaxAttempts int           // 最大尝试次数（含首次）
	Delay       time.Duration // 首次重试前的等待时间
	Backoff     float64       // 每次重试后等待时间的倍数，<=1 时为固定间隔
}

// NetworkPolicy 网络调用的默认策略：3次尝试，指数退避
func NetworkPolicy() Policy {
	return Policy{MaxAttempts: 3, Delay: time.Second, Backoff: 2}
}

// SubprocessPolicy 本地子进程调用的默认策略：失败后只重试一次
func SubprocessPolicy() Policy {
	return Policy{MaxAttempts: 2, Delay: time.Second, Backoff: 1}
}

// terminalError 标记为不可重试的错误
type terminalError interface {
	Retryable() bool
}

// IsRetryable 判断错误是否值得重试。
// 未实现 Retryable() 的错误默认可重试（网络抖动等未分类错误）。
func IsRetryable(err error) bool {
	var te terminalError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return true
}

// Do 按策略执行 fn，直到成功、错误不可重试或次数耗尽。
// 返回最后一次的错误。
func Do(ctx context.Context, policy Policy, fn func() error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	delay := policy.Delay
	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if policy.Backoff > 1 {
			delay = time.Duration(float64(delay) * policy.Backoff)
		}
	}
	return err
}
