// Package postgres 基于 PostgreSQL 的注册表实现
//
// KV 存一张表，变更通知走 LISTEN/NOTIFY：写入事务内 pg_notify 一条
// 带 origin 的消息，监听方过滤掉本上下文的写入。
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"unlock-admin/internal/shared/registry"
)

const notifyChannel = "registry_changes"

const schema = `
CREATE TABLE IF NOT EXISTS registry (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// changeMessage NOTIFY 负载
type changeMessage struct {
	registry.Change
	Origin string `json:"origin"`
}

// Store PostgreSQL 注册表
type Store struct {
	pool   *pgxpool.Pool
	origin string
}

var _ registry.Registry = (*Store)(nil)

// NewStore 创建 PostgreSQL 注册表
func NewStore(ctx context.Context, databaseURL, origin string) (*Store, error) {
	if origin == "" {
		origin = uuid.NewString()
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate registry schema: %w", err)
	}

	log.Printf("[registry/postgres] Connected")
	return &Store{pool: pool, origin: origin}, nil
}

func (s *Store) Origin() string {
	return s.origin
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM registry WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", registry.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	payload, err := json.Marshal(changeMessage{
		Change: registry.Change{Key: key, NewValue: value},
		Origin: s.origin,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO registry (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify change: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) Remove(ctx context.Context, key string) error {
	payload, err := json.Marshal(changeMessage{
		Change: registry.Change{Key: key, Removed: true},
		Origin: s.origin,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM registry WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	if tag.RowsAffected() > 0 {
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(payload)); err != nil {
			return fmt.Errorf("failed to notify removal: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Watch 用专用连接 LISTEN，过滤掉本上下文的写入
func (s *Store) Watch(ctx context.Context) (<-chan registry.Change, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(ctx, `LISTEN `+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	changes := make(chan registry.Change, 64)

	go func() {
		defer close(changes)
		defer conn.Release()

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("[registry/postgres] listen error: %v", err)
				}
				return
			}
			var msg changeMessage
			if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
				log.Printf("[registry/postgres] bad change payload: %v", err)
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
	}()

	return changes, nil
}
