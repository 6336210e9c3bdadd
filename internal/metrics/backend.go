package metrics

import (
	"context"
	"time"

	"github.com/BaSui01/stockpile/connection"
)

// instrumentedBackend 为 connection.Backend 记录指标，行为与错误保持不变
type instrumentedBackend struct {
	next      connection.Backend
	collector *Collector
}

// InstrumentBackend 返回带指标采集的 Backend
func InstrumentBackend(next connection.Backend, collector *Collector) connection.Backend {
	if collector == nil {
		return next
	}
	return &instrumentedBackend{next: next, collector: collector}
}

func (b *instrumentedBackend) CreatePrimary(ctx context.Context, opts connection.Options) (connection.Conn, error) {
	start := time.Now()
	conn, err := b.next.CreatePrimary(ctx, opts)
	b.collector.RecordOperation(OpCreatePrimary, err, time.Since(start))
	if err == nil {
		b.collector.RecordConnectionCreated("")
	}
	return conn, err
}

func (b *instrumentedBackend) CreateNamed(ctx context.Context, name string, opts connection.Options) (connection.Conn, error) {
	start := time.Now()
	conn, err := b.next.CreateNamed(ctx, name, opts)
	b.collector.RecordOperation(OpCreateNamed, err, time.Since(start))
	if err == nil {
		b.collector.RecordConnectionCreated(name)
	}
	return conn, err
}

func (b *instrumentedBackend) Reconnect(ctx context.Context, conn connection.Conn) error {
	start := time.Now()
	err := b.next.Reconnect(ctx, conn)
	b.collector.RecordOperation(OpReconnect, err, time.Since(start))
	return err
}

func (b *instrumentedBackend) Disconnect(ctx context.Context, conn connection.Conn) error {
	start := time.Now()
	err := b.next.Disconnect(ctx, conn)
	b.collector.RecordOperation(OpDisconnect, err, time.Since(start))
	return err
}
