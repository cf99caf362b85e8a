// Package sqlite 基于 SQLite 的注册表实现
//
// 提供单机持久化的字符串 KV，最贴近浏览器 localStorage 的语义。
// 变更通知通过追加式变更日志 + 轮询实现：每次写入在 registry_log
// 记一条带 origin 的日志，Watch 轮询日志并过滤掉本上下文的写入。
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"unlock-admin/internal/shared/registry"
)

const schema = `
CREATE TABLE IF NOT EXISTS registry (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE TABLE IF NOT EXISTS registry_log (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL DEFAULT '',
	removed    INTEGER NOT NULL DEFAULT 0,
	origin     TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// Config SQLite 注册表配置
type Config struct {
	// DSN 示例: "file:panel.db?cache=shared&mode=rwc" 或 ":memory:"
	DSN string
	// Origin 上下文标识；为空时自动生成
	Origin string
	// PollInterval 变更日志轮询间隔，默认 1s
	PollInterval time.Duration
}

// Store SQLite 注册表
type Store struct {
	db     *sql.DB
	origin string
	poll   time.Duration
}

var _ registry.Registry = (*Store)(nil)

// Open 创建 SQLite 注册表
func Open(cfg Config) (*Store, error) {
	if cfg.Origin == "" {
		cfg.Origin = uuid.NewString()
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate registry schema: %w", err)
	}

	return &Store{db: db, origin: cfg.Origin, poll: cfg.PollInterval}, nil
}

func (s *Store) Origin() string {
	return s.origin
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM registry WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", registry.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO registry (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO registry_log (key, value, removed, origin) VALUES (?, ?, 0, ?)`,
		key, value, s.origin)
	if err != nil {
		return fmt.Errorf("failed to log change for %s: %w", key, err)
	}

	return tx.Commit()
}

func (s *Store) Remove(ctx context.Context, key string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM registry WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tx.Commit()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO registry_log (key, removed, origin) VALUES (?, 1, ?)`,
		key, s.origin)
	if err != nil {
		return fmt.Errorf("failed to log removal of %s: %w", key, err)
	}

	return tx.Commit()
}

// Watch 轮询变更日志，投递其他上下文的写入
func (s *Store) Watch(ctx context.Context) (<-chan registry.Change, error) {
	var lastSeq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM registry_log`).Scan(&lastSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to read log position: %w", err)
	}

	changes := make(chan registry.Change, 64)

	go func() {
		defer close(changes)
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			rows, err := s.db.QueryContext(ctx,
				`SELECT seq, key, value, removed, origin FROM registry_log
				 WHERE seq > ? ORDER BY seq`,
				lastSeq)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("[registry/sqlite] poll failed: %v", err)
				}
				continue
			}

			// 游标对所有写入推进，但只投递其他上下文的写入
			var pending []registry.Change
			for rows.Next() {
				var seq int64
				var ch registry.Change
				var removed int
				var origin string
				if err := rows.Scan(&seq, &ch.Key, &ch.NewValue, &removed, &origin); err != nil {
					log.Printf("[registry/sqlite] scan failed: %v", err)
					continue
				}
				if seq > lastSeq {
					lastSeq = seq
				}
				if origin == s.origin {
					continue
				}
				ch.Removed = removed != 0
				pending = append(pending, ch)
			}
			rows.Close()

			for _, ch := range pending {
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
