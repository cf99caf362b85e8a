// Package registry 内存注册表实现
package registry

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
)

// watchBuffer 单个订阅通道的缓冲大小；写满时丢弃并记日志，写方不阻塞
const watchBuffer = 64

// Hub 进程内共享存储，等价于同一浏览器的 localStorage。
// 多个 Context 挂接到同一个 Hub 上模拟多标签页。
type Hub struct {
	mu       sync.RWMutex
	data     map[string]string
	watchers map[*MemoryContext][]chan Change
}

// NewHub 创建内存存储 Hub
func NewHub() *Hub {
	return &Hub{
		data:     make(map[string]string),
		watchers: make(map[*MemoryContext][]chan Change),
	}
}

// Attach 挂接一个执行上下文；origin 为空时自动生成
func (h *Hub) Attach(origin string) *MemoryContext {
	if origin == "" {
		origin = uuid.NewString()
	}
	mc := &MemoryContext{hub: h, origin: origin}
	h.mu.Lock()
	h.watchers[mc] = nil
	h.mu.Unlock()
	return mc
}

// notify 向除 writer 外的所有上下文投递变更
func (h *Hub) notify(writer *MemoryContext, ch Change) {
	for mc, chans := range h.watchers {
		if mc == writer {
			continue
		}
		for _, c := range chans {
			select {
			case c <- ch:
			default:
				log.Printf("[registry/memory] watcher buffer full, dropping change for %s", ch.Key)
			}
		}
	}
}

// MemoryContext Hub 上的单个执行上下文，实现 Registry 接口
type MemoryContext struct {
	hub    *Hub
	origin string
	closed bool
}

var _ Registry = (*MemoryContext)(nil)

func (m *MemoryContext) Origin() string {
	return m.origin
}

func (m *MemoryContext) Get(ctx context.Context, key string) (string, error) {
	m.hub.mu.RLock()
	defer m.hub.mu.RUnlock()
	v, ok := m.hub.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (m *MemoryContext) Set(ctx context.Context, key, value string) error {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	m.hub.data[key] = value
	m.hub.notify(m, Change{Key: key, NewValue: value})
	return nil
}

func (m *MemoryContext) Remove(ctx context.Context, key string) error {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	if _, ok := m.hub.data[key]; !ok {
		return nil
	}
	delete(m.hub.data, key)
	m.hub.notify(m, Change{Key: key, Removed: true})
	return nil
}

func (m *MemoryContext) Watch(ctx context.Context) (<-chan Change, error) {
	c := make(chan Change, watchBuffer)

	m.hub.mu.Lock()
	m.hub.watchers[m] = append(m.hub.watchers[m], c)
	m.hub.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.hub.mu.Lock()
		chans := m.hub.watchers[m]
		for i, cc := range chans {
			if cc == c {
				m.hub.watchers[m] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		m.hub.mu.Unlock()
		close(c)
	}()

	return c, nil
}

// Close 从 Hub 摘除本上下文；已注册的 Watch 通道由各自的 ctx 负责关闭
func (m *MemoryContext) Close() error {
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	delete(m.hub.watchers, m)
	return nil
}
