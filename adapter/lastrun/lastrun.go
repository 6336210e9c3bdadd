// Package lastrun 在 Stockpile 之上记录任务的最后运行时间。
// 时间以 UTC RFC3339 字符串保存在哈希 last_run_time 中，字段为任务键。
package lastrun

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/stockpile"
	"github.com/BaSui01/stockpile/connection"
)

// DefaultHashKey 默认哈希键
const DefaultHashKey = "last_run_time"

// ErrNotAttached Tracker 尚未挂载到 Stockpile
var ErrNotAttached = errors.New("lastrun: tracker is not attached")

// Option 配置 Tracker
type Option func(*Tracker)

// WithClient 使用命名客户端的连接，默认使用主连接
func WithClient(name string) Option {
	return func(t *Tracker) { t.client = name }
}

// WithHashKey 覆盖哈希键
func WithHashKey(key string) Option {
	return func(t *Tracker) { t.hashKey = key }
}

// Tracker 最后运行时间适配器
type Tracker struct {
	client  string
	hashKey string

	mu sync.RWMutex
	sp *stockpile.Stockpile
}

var _ stockpile.Adapter = (*Tracker)(nil)

// New 创建 Tracker
func New(opts ...Option) *Tracker {
	t := &Tracker{hashKey: DefaultHashKey}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Attach 实现 stockpile.Adapter
func (t *Tracker) Attach(s *stockpile.Stockpile) error {
	if s == nil {
		return fmt.Errorf("%w: nil stockpile", connection.ErrConfiguration)
	}
	t.mu.Lock()
	t.sp = s
	t.mu.Unlock()
	return nil
}

// LastRunTime 读取 key 的最后运行时间，未记录时 ok 为 false
func (t *Tracker) LastRunTime(ctx context.Context, key string) (time.Time, bool, error) {
	conn, err := t.conn(ctx)
	if err != nil {
		return time.Time{}, false, err
	}

	raw, err := conn.HGet(ctx, t.hashKey, key)
	if connection.IsNil(err) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read last run time %q: %w", key, err)
	}

	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid last run time %q for %q: %w", raw, key, err)
	}
	return ts, true, nil
}

// SetLastRunTime 记录 key 的最后运行时间，精度为秒
func (t *Tracker) SetLastRunTime(ctx context.Context, key string, at time.Time) error {
	conn, err := t.conn(ctx)
	if err != nil {
		return err
	}
	if err := conn.HSet(ctx, t.hashKey, key, at.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to write last run time %q: %w", key, err)
	}
	return nil
}

// Touch 以当前时间记录 key
func (t *Tracker) Touch(ctx context.Context, key string) error {
	return t.SetLastRunTime(ctx, key, time.Now())
}

func (t *Tracker) conn(ctx context.Context) (connection.Conn, error) {
	t.mu.RLock()
	s := t.sp
	t.mu.RUnlock()

	if s == nil {
		return nil, ErrNotAttached
	}
	if t.client == "" {
		if c := s.Connection(); c != nil {
			return c, nil
		}
		return s.Connect(ctx)
	}
	return s.ConnectionFor(ctx, t.client, nil)
}
