package stockpile

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Holder 惰性持有一个 Stockpile。
// 首次 Cache 成功时创建实例，并一次性挂载此前通过 Adapt 排队的适配器；
// 创建失败不缓存结果，下次 Cache 会重试，排队的适配器保留。
type Holder struct {
	factory func(ctx context.Context) (*Stockpile, error)
	logger  *zap.Logger

	mu      sync.Mutex
	cache   *Stockpile
	pending []Adapter
}

// NewHolder 以自定义工厂创建 Holder
func NewHolder(factory func(ctx context.Context) (*Stockpile, error), logger *zap.Logger) *Holder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Holder{
		factory: factory,
		logger:  logger.With(zap.String("component", "stockpile_holder")),
	}
}

// NewHolderFromOptions 以 New(ctx, opts, init...) 作为工厂创建 Holder
func NewHolderFromOptions(opts Options, init ...func(*Stockpile) error) *Holder {
	return NewHolder(func(ctx context.Context) (*Stockpile, error) {
		return New(ctx, opts, init...)
	}, opts.Logger)
}

// Cache 返回持有的 Stockpile，必要时创建
func (h *Holder) Cache(ctx context.Context) (*Stockpile, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cache != nil {
		return h.cache, nil
	}

	s, err := h.factory(ctx)
	if err != nil {
		return nil, err
	}
	h.cache = s

	pending := h.pending
	h.pending = nil
	for _, a := range pending {
		if err := s.Adapt(a); err != nil {
			h.logger.Warn("queued adapter failed to attach", zap.Error(err))
		}
	}

	h.logger.Debug("stockpile realised", zap.Int("queued_adapters", len(pending)))
	return s, nil
}

// Adapt 已创建时立即挂载，否则排队等待首次 Cache
func (h *Holder) Adapt(a Adapter) error {
	if a == nil {
		return fmt.Errorf("adapter must not be nil")
	}

	h.mu.Lock()
	s := h.cache
	if s == nil {
		h.pending = append(h.pending, a)
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	return s.Adapt(a)
}

// Realised 是否已创建 Stockpile
func (h *Holder) Realised() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cache != nil
}

// Pending 排队中的适配器数量
func (h *Holder) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}
