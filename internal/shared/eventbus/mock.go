// Package eventbus 通知总线 mock 实现
package eventbus

// NoOpBus 不做任何操作的 Bus 实现（用于测试）
type NoOpBus struct{}

// NewNoOpBus 创建 NoOpBus 实例
func NewNoOpBus() *NoOpBus {
	return &NoOpBus{}
}

func (b *NoOpBus) Subscribe(event string, h Handler) {}

func (b *NoOpBus) Publish(event string, payload any) {}

// 确保 NoOpBus 实现了 Bus 接口
var _ Bus = (*NoOpBus)(nil)
