// Package eventbus 进程内通知总线实现
package eventbus

import "sync"

// InProcessBus 进程内通知总线
//
// Publish 在调用方 goroutine 内同步逐个调用处理器；处理器内禁止再
// Publish 造成深递归之外没有其他限制。
type InProcessBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

var _ Bus = (*InProcessBus)(nil)

// New 创建进程内通知总线
func New() *InProcessBus {
	return &InProcessBus{handlers: make(map[string][]Handler)}
}

// Subscribe 订阅事件
func (b *InProcessBus) Subscribe(event string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Publish 发布事件；无订阅者时为空操作
func (b *InProcessBus) Publish(event string, payload any) {
	b.mu.RLock()
	hs := make([]Handler, len(b.handlers[event]))
	copy(hs, b.handlers[event])
	b.mu.RUnlock()

	for _, h := range hs {
		h(payload)
	}
}
