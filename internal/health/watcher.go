package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/BaSui01/stockpile/connection"
	"github.com/BaSui01/stockpile/internal/metrics"
)

// PrimarySlot 主连接在 Status.Client 中的名称
const PrimarySlot = ""

// ErrHealThrottled 距上次重连未满 HealBackoff
var ErrHealThrottled = errors.New("heal throttled")

// =============================================================================
// 🎯 类型定义
// =============================================================================

// Target 被检查的连接集合
type Target interface {
	Connection() connection.Conn
	Clients() []string
	Lookup(name string) (connection.Conn, bool)
	Reconnect(ctx context.Context, specs ...connection.ClientSpec) (connection.Conn, error)
}

// Config 健康检查配置
type Config struct {
	// 检查间隔
	Interval time.Duration `yaml:"interval" json:"interval"`

	// 单次 Ping 超时
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// 失败时是否重连
	Reconnect bool `yaml:"reconnect" json:"reconnect"`

	// 两次重连之间的最小间隔，0 表示不限制
	HealBackoff time.Duration `yaml:"heal_backoff" json:"heal_backoff"`

	// 并发 Ping 的句柄数上限
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// DefaultConfig 返回默认健康检查配置
func DefaultConfig() Config {
	return Config{
		Interval:    30 * time.Second,
		Timeout:     5 * time.Second,
		Reconnect:   true,
		HealBackoff: 10 * time.Second,
		Concurrency: 4,
	}
}

// Status 单个槽位的检查结果
type Status struct {
	Client  string        `json:"client"`
	ConnID  string        `json:"conn_id"`
	Healthy bool          `json:"healthy"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency"`
}

// Report 一轮检查结果
type Report struct {
	CheckedAt time.Time `json:"checked_at"`
	Statuses  []Status  `json:"statuses"`
}

// Healthy 所有槽位均健康；没有任何槽位时为 true
func (r Report) Healthy() bool {
	for _, s := range r.Statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// Failed 失败的槽位名
func (r Report) Failed() []string {
	var out []string
	for _, s := range r.Statuses {
		if !s.Healthy {
			out = append(out, s.Client)
		}
	}
	return out
}

// =============================================================================
// 🏥 Watcher
// =============================================================================

// Watcher 健康检查器
type Watcher struct {
	target    Target
	config    Config
	collector *metrics.Collector
	limiter   *rate.Limiter
	logger    *zap.Logger

	mu      sync.RWMutex
	running bool
	last    Report
}

// NewWatcher 创建健康检查器，collector 可以为 nil
func NewWatcher(target Target, config Config, collector *metrics.Collector, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}

	limit := rate.Inf
	if config.HealBackoff > 0 {
		limit = rate.Every(config.HealBackoff)
	}

	return &Watcher{
		target:    target,
		config:    config,
		collector: collector,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.With(zap.String("component", "health")),
	}
}

// Check Ping 主连接与所有已注册客户端
func (w *Watcher) Check(ctx context.Context) Report {
	report := Report{CheckedAt: time.Now()}

	type slot struct {
		name string
		conn connection.Conn
	}

	slots := []slot{{name: PrimarySlot, conn: w.target.Connection()}}
	for _, name := range w.target.Clients() {
		if conn, ok := w.target.Lookup(name); ok {
			slots = append(slots, slot{name: name, conn: conn})
		}
	}

	// 同一句柄只 Ping 一次
	index := make(map[string]int)
	var unique []slot
	for _, s := range slots {
		if s.conn == nil {
			continue
		}
		if _, ok := index[s.conn.ID()]; !ok {
			index[s.conn.ID()] = len(unique)
			unique = append(unique, s)
		}
	}

	results := make([]Status, len(unique))
	var g errgroup.Group
	g.SetLimit(w.config.Concurrency)
	for i, s := range unique {
		g.Go(func() error {
			results[i] = w.ping(ctx, s.name, s.conn)
			return nil
		})
	}
	_ = g.Wait()

	for _, s := range slots {
		if s.conn == nil {
			continue
		}
		st := results[index[s.conn.ID()]]
		st.Client = s.name
		report.Statuses = append(report.Statuses, st)
	}

	w.mu.Lock()
	w.last = report
	w.mu.Unlock()

	return report
}

func (w *Watcher) ping(ctx context.Context, slot string, conn connection.Conn) Status {
	ctx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	start := time.Now()
	err := conn.Ping(ctx)
	latency := time.Since(start)

	if w.collector != nil {
		w.collector.RecordPing(slot, err, latency)
	}

	st := Status{ConnID: conn.ID(), Healthy: err == nil, Latency: latency}
	if err != nil {
		st.Error = err.Error()
		w.logger.Warn("connection health check failed",
			zap.String("client", slot),
			zap.String("conn_id", conn.ID()),
			zap.Error(err))
	} else {
		w.logger.Debug("connection health check passed",
			zap.String("client", slot),
			zap.Duration("latency", latency))
	}
	return st
}

// Heal 重连报告中失败的槽位。主连接总是随命名客户端一起重连。
func (w *Watcher) Heal(ctx context.Context, report Report) error {
	failed := report.Failed()
	if len(failed) == 0 {
		return nil
	}

	if !w.limiter.Allow() {
		w.logger.Debug("reconnect skipped", zap.Duration("backoff", w.config.HealBackoff))
		return ErrHealThrottled
	}

	var names []string
	for _, name := range failed {
		if name != PrimarySlot {
			names = append(names, name)
		}
	}

	if _, err := w.target.Reconnect(ctx, connection.Names(names...)...); err != nil {
		w.logger.Error("reconnect failed", zap.Strings("clients", names), zap.Error(err))
		return fmt.Errorf("failed to reconnect unhealthy connections: %w", err)
	}

	w.logger.Info("unhealthy connections reconnected", zap.Strings("clients", failed))
	return nil
}

// Last 最近一轮检查结果
func (w *Watcher) Last() Report {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// Run 按间隔检查直到 ctx 取消；返回 ctx.Err()
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("health watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.logger.Info("health watcher started", zap.Duration("interval", w.config.Interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("health watcher stopped")
			return ctx.Err()
		case <-ticker.C:
			report := w.Check(ctx)
			if w.config.Reconnect && !report.Healthy() {
				// 失败已记录，下一轮继续尝试
				_ = w.Heal(ctx, report)
			}
		}
	}
}
