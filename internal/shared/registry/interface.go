// Package registry 共享状态注册表抽象接口
//
// 提供持久化字符串 KV 的存取能力与跨执行上下文的变更通知。
// 设计原则：依赖倒置 (DIP)
//   - 调用方只依赖接口，不知道具体实现
//   - 具体实现在子包中：sqlite/, redis/, etcd/, postgres/
//   - memory 实现在本包内，同时充当契约的参考实现与测试替身
//
// 契约要点：
//   - 同一上下文内写后读立即可见
//   - Watch 只投递"其他"上下文的写入，自写不回环
//   - 跨 Key 无原子性保证（复合更新非事务，接受 last-write-wins）
package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/containerd/errdefs"
)

// Change 跨上下文变更通知
type Change struct {
	Key      string `json:"key"`
	NewValue string `json:"newValue"`
	Removed  bool   `json:"removed,omitempty"`
}

// Registry 共享状态注册表接口
type Registry interface {
	// Get 读取 key 的原始字符串值；不存在时返回 errdefs.ErrNotFound 类错误
	Get(ctx context.Context, key string) (string, error)
	// Set 写入 key；对本上下文立即可见，对其他上下文经 Watch 通知
	Set(ctx context.Context, key, value string) error
	// Remove 删除 key；删除不存在的 key 不报错
	Remove(ctx context.Context, key string) error
	// Watch 订阅其他上下文的变更；通道在 ctx 取消后关闭
	Watch(ctx context.Context) (<-chan Change, error)
	// Origin 本上下文标识（写入打标，用于过滤自写通知）
	Origin() string
	Close() error
}

// ErrKeyNotFound key 不存在
var ErrKeyNotFound = fmt.Errorf("registry key: %w", errdefs.ErrNotFound)

// ============================================================================
// JSON 编解码辅助
// ============================================================================

// GetJSON 读取 key 并解码 JSON 到 v
//
// key 不存在返回 errdefs.ErrNotFound 类错误；JSON 损坏返回解码错误。
// 按损坏数据替换为空默认值的恢复策略由调用方执行。
func GetJSON(ctx context.Context, r Registry, key string, v any) error {
	raw, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON 编码 v 为 JSON 并写入 key
func SetJSON(ctx context.Context, r Registry, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.Set(ctx, key, string(data))
}
