// 配置文件变更监听器实现。
//
// 轮询配置文件的修改时间，变更后经过防抖重新加载配置并回调。
package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// --- 文件监听器类型定义 ---

// FileWatcher 监听单个配置文件，变更时通过 Loader 重新加载
type FileWatcher struct {
	mu sync.RWMutex

	// 配置
	path          string
	loader        *Loader
	pollInterval  time.Duration
	debounceDelay time.Duration

	// 状态
	running bool
	lastMod time.Time
	cancel  context.CancelFunc
	done    chan struct{}

	// 回调
	callbacks []func(*Config)

	logger *zap.Logger
}

// --- 文件监听器选项 ---

// WatcherOption 配置 FileWatcher
type WatcherOption func(*FileWatcher)

// WithPollInterval 设置轮询间隔
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *FileWatcher) {
		w.pollInterval = d
	}
}

// WithDebounceDelay 设置防抖延迟
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *FileWatcher) {
		w.debounceDelay = d
	}
}

// WithWatcherLogger 设置日志记录器
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *FileWatcher) {
		w.logger = logger
	}
}

// --- 文件监听器实现 ---

// NewFileWatcher 创建配置文件监听器；loader 为 nil 时使用 NewLoader()
func NewFileWatcher(path string, loader *Loader, opts ...WatcherOption) (*FileWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}
	if loader == nil {
		loader = NewLoader()
	}

	w := &FileWatcher{
		path:          path,
		loader:        loader.WithConfigPath(path),
		pollInterval:  time.Second,
		debounceDelay: 100 * time.Millisecond,
		logger:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "config_watcher"))

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat path %s: %w", path, err)
		}
		w.logger.Warn("config file does not exist, will watch for creation", zap.String("path", path))
	}

	return w, nil
}

// OnReload 注册重新加载成功后的回调
func (w *FileWatcher) OnReload(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start 开始监听
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	w.running = true

	if info, err := os.Stat(w.path); err == nil {
		w.lastMod = info.ModTime()
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.pollLoop(ctx, w.done)

	w.logger.Info("config watcher started",
		zap.String("path", w.path),
		zap.Duration("poll_interval", w.pollInterval),
		zap.Duration("debounce_delay", w.debounceDelay))

	return nil
}

// Stop 停止监听并等待轮询协程退出
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	w.logger.Info("config watcher stopped")
}

// IsRunning 是否正在监听
func (w *FileWatcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *FileWatcher) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.changed() {
				pending = time.After(w.debounceDelay)
			}
		case <-pending:
			pending = nil
			w.reload()
		}
	}
}

// changed 检查修改时间是否前进
func (w *FileWatcher) changed() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !info.ModTime().After(w.lastMod) {
		return false
	}
	w.lastMod = info.ModTime()
	return true
}

func (w *FileWatcher) reload() {
	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous config", zap.Error(err))
		return
	}

	w.mu.RLock()
	callbacks := make([]func(*Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	w.logger.Info("config reloaded", zap.String("path", w.path))
	for _, cb := range callbacks {
		cb(cfg)
	}
}
