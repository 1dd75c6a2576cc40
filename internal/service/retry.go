package service

import (
	"time"
)

// retryPolicy 有界重试策略，退避时长由 backoff 按尝试序号给出。
type retryPolicy struct {
	maxAttempts int
	backoff     func(attempt int) time.Duration
	sleep       func(d time.Duration)
}

// newExponentialRetryPolicy 创建指数退避重试策略。
// 第 n 次失败后等待 base * 2^(n-1)。
func newExponentialRetryPolicy(maxAttempts int, base time.Duration) retryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return retryPolicy{
		maxAttempts: maxAttempts,
		backoff: func(attempt int) time.Duration {
			return base << (attempt - 1)
		},
		sleep: time.Sleep,
	}
}

// run 执行 fn，失败则按策略重试，返回最后一次错误。
func (p retryPolicy) run(fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt < p.maxAttempts && p.backoff != nil {
			wait := p.backoff(attempt)
			if wait > 0 && p.sleep != nil {
				p.sleep(wait)
			}
		}
	}
	return lastErr
}
