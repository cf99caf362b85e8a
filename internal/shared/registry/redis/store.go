// Package redis 基于 Redis 的注册表实现
//
// KV 用普通 GET/SET/DEL，变更通知走 Pub/Sub：每次写入在变更频道发布
// 一条带 origin 的消息，订阅方过滤掉本上下文发布的消息。
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"unlock-admin/internal/shared/registry"
)

const defaultPrefix = "panel"

// changeMessage 变更频道消息
type changeMessage struct {
	registry.Change
	Origin string `json:"origin"`
}

// Store Redis 注册表
type Store struct {
	client *redis.Client
	prefix string
	origin string
}

var _ registry.Registry = (*Store)(nil)

// NewStore 创建 Redis 注册表
func NewStore(addr, password string, db int, origin string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return newStore(client, origin)
}

// NewStoreFromURL 从 URL 创建 Redis 注册表
func NewStoreFromURL(redisURL, origin string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return newStore(redis.NewClient(opts), origin)
}

// NewStoreFromClient 从现有客户端创建 Redis 注册表
func NewStoreFromClient(client *redis.Client, origin string) *Store {
	if origin == "" {
		origin = uuid.NewString()
	}
	return &Store{client: client, prefix: defaultPrefix, origin: origin}
}

func newStore(client *redis.Client, origin string) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[registry/redis] Connected to %s", client.Options().Addr)
	return NewStoreFromClient(client, origin), nil
}

func (s *Store) key(k string) string {
	return s.prefix + ":" + k
}

func (s *Store) channel() string {
	return s.prefix + ":changes"
}

func (s *Store) Origin() string {
	return s.origin
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", registry.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return s.publish(ctx, changeMessage{
		Change: registry.Change{Key: key, NewValue: value},
		Origin: s.origin,
	})
}

func (s *Store) Remove(ctx context.Context, key string) error {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	if n == 0 {
		return nil
	}
	return s.publish(ctx, changeMessage{
		Change: registry.Change{Key: key, Removed: true},
		Origin: s.origin,
	})
}

func (s *Store) publish(ctx context.Context, msg changeMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel(), data).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Watch 订阅变更频道，过滤掉本上下文发布的消息
func (s *Store) Watch(ctx context.Context) (<-chan registry.Change, error) {
	pubsub := s.client.Subscribe(ctx, s.channel())

	// 确认订阅建立，保证 Watch 返回后不丢后续消息
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe changes: %w", err)
	}

	changes := make(chan registry.Change, 64)

	go func() {
		defer close(changes)
		defer pubsub.Close()

		msgCh := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgCh:
				if !ok {
					return
				}
				var msg changeMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					log.Printf("[registry/redis] bad change payload: %v", err)
					continue
				}
				if msg.Origin == s.origin {
					continue
				}
				select {
				case changes <- msg.Change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return changes, nil
}
