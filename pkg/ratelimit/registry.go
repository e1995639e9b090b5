package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Registry 按提供方名称限流，每个名称一个 rate.Limiter，首次使用时创建。
// QPM <= 0 或未配置的名称不限流
type Registry struct {
	mu       sync.Mutex
	qpm      map[string]int
	limiters map[string]*rate.Limiter
}

// NewRegistry qpm 为名称到每分钟请求数的映射。实际使用配置值的 90% 作为安全值
func NewRegistry(qpm map[string]int) *Registry {
	r := &Registry{qpm: make(map[string]int, len(qpm)), limiters: map[string]*rate.Limiter{}}
	for name, v := range qpm {
		if v <= 0 {
			continue
		}
		r.qpm[name] = max(int(float64(v)*0.9), 1)
	}
	return r
}

// Wait 等待名称对应的配额，只负责排队，不做重试
func (r *Registry) Wait(ctx context.Context, name string) error {
	if r == nil {
		return ctx.Err()
	}
	l := r.limiter(name)
	if l == nil {
		return ctx.Err()
	}
	return l.Wait(ctx)
}

func (r *Registry) limiter(name string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[name]; ok {
		return l
	}
	qpm, ok := r.qpm[name]
	if !ok {
		return nil
	}
	// 突发上限为安全 QPM 的一半
	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(qpm)), max(qpm/2, 1))
	r.limiters[name] = l
	return l
}
