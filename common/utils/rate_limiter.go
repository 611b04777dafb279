package utils

import (
	"sync"
	"time"
)

// RateLimiter 令牌桶限流器，用于限制新建长连接的速率
type RateLimiter struct {
	rate       float64
	capacity   float64
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建一个新的限流器
// rate: 每秒补充的令牌数，<= 0 表示不限流
// burst: 突发倍数，桶的容量 = burst * rate
func NewRateLimiter(rate int, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	rl := &RateLimiter{
		rate:     float64(rate),
		capacity: float64(burst * rate),
		tokens:   float64(burst * rate),
		now:      time.Now,
	}
	rl.lastRefill = rl.now()
	return rl
}

// Allow 判断当前请求是否允许通过
func (rl *RateLimiter) Allow() bool {
	if rl == nil || rl.rate <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now

	// 补充令牌，不超过桶的容量
	rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.rate)

	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}
