// Package etcd 基于 etcd 的注册表实现
//
// 变更通知用 etcd 原生 Watch。etcd 的 Watch 会回放包括自己在内的所有
// 写入，因此 Set/Remove 记录自己每个 key 的 ModRevision，Watch 按
// revision 过滤掉本上下文的写入。
package etcd

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	clientv3 "go.etcd.io/etcd/client/v3"

	"unlock-admin/internal/shared/registry"
)

// Config etcd 注册表配置
type Config struct {
	Endpoints   []string
	DialTimeout time.Duration
	// Prefix key 前缀，默认 /panel
	Prefix string
	// Origin 上下文标识；为空时自动生成
	Origin string
}

// Store etcd 注册表
type Store struct {
	client *clientv3.Client
	prefix string
	origin string

	mu      sync.Mutex
	ownRevs map[string]int64 // key -> 本上下文最后一次写入的 revision
}

var _ registry.Registry = (*Store)(nil)

// NewStore 创建 etcd 注册表
func NewStore(cfg Config) (*Store, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "/panel"
	}
	if cfg.Origin == "" {
		cfg.Origin = uuid.NewString()
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := client.Status(ctx, cfg.Endpoints[0]); err != nil {
		client.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	log.Printf("[registry/etcd] Connected to %v", cfg.Endpoints)
	return &Store{
		client:  client,
		prefix:  cfg.Prefix,
		origin:  cfg.Origin,
		ownRevs: make(map[string]int64),
	}, nil
}

// NewStoreFromClient 从现有客户端创建 etcd 注册表
func NewStoreFromClient(client *clientv3.Client, prefix, origin string) *Store {
	if prefix == "" {
		prefix = "/panel"
	}
	if origin == "" {
		origin = uuid.NewString()
	}
	return &Store{client: client, prefix: prefix, origin: origin, ownRevs: make(map[string]int64)}
}

func (s *Store) key(k string) string {
	return s.prefix + "/" + k
}

func (s *Store) Origin() string {
	return s.origin
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	resp, err := s.client.Get(ctx, s.key(key))
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return "", registry.ErrKeyNotFound
	}
	return string(resp.Kvs[0].Value), nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	resp, err := s.client.Put(ctx, s.key(key), value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	s.mu.Lock()
	s.ownRevs[key] = resp.Header.Revision
	s.mu.Unlock()
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	resp, err := s.client.Delete(ctx, s.key(key))
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	if resp.Deleted > 0 {
		s.mu.Lock()
		s.ownRevs[key] = resp.Header.Revision
		s.mu.Unlock()
	}
	return nil
}

// isOwnWrite 判断 watch 事件是否来自本上下文的写入
func (s *Store) isOwnWrite(key string, modRevision int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownRevs[key] == modRevision
}

// Watch 监听前缀下的变更，过滤掉本上下文的写入
func (s *Store) Watch(ctx context.Context) (<-chan registry.Change, error) {
	changes := make(chan registry.Change, 64)

	go func() {
		defer close(changes)

		watchCh := s.client.Watch(ctx, s.prefix+"/", clientv3.WithPrefix())
		for watchResp := range watchCh {
			if err := watchResp.Err(); err != nil {
				log.Printf("[registry/etcd] watch error: %v", err)
				continue
			}
			for _, ev := range watchResp.Events {
				key := strings.TrimPrefix(string(ev.Kv.Key), s.prefix+"/")
				if s.isOwnWrite(key, ev.Kv.ModRevision) {
					continue
				}
				ch := registry.Change{Key: key}
				if ev.Type == clientv3.EventTypeDelete {
					ch.Removed = true
				} else {
					ch.NewValue = string(ev.Kv.Value)
				}
				select {
				case changes <- ch:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return changes, nil
}
