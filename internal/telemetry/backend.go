package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/BaSui01/stockpile/connection"
)

// span 属性键
const (
	attrClient = attribute.Key("stockpile.client")
	attrConnID = attribute.Key("stockpile.conn_id")
)

// tracedBackend 为每个生命周期操作创建一个 span
type tracedBackend struct {
	next   connection.Backend
	tracer trace.Tracer
}

// TraceBackend 返回带追踪的 Backend，tracer 为 nil 时原样返回 next
func TraceBackend(next connection.Backend, tracer trace.Tracer) connection.Backend {
	if tracer == nil {
		return next
	}
	return &tracedBackend{next: next, tracer: tracer}
}

func (b *tracedBackend) CreatePrimary(ctx context.Context, opts connection.Options) (connection.Conn, error) {
	ctx, span := b.tracer.Start(ctx, "stockpile.create_primary", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	conn, err := b.next.CreatePrimary(ctx, opts)
	finish(span, conn, err)
	return conn, err
}

func (b *tracedBackend) CreateNamed(ctx context.Context, name string, opts connection.Options) (connection.Conn, error) {
	ctx, span := b.tracer.Start(ctx, "stockpile.create_named",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrClient.String(name)),
	)
	defer span.End()

	conn, err := b.next.CreateNamed(ctx, name, opts)
	finish(span, conn, err)
	return conn, err
}

func (b *tracedBackend) Reconnect(ctx context.Context, conn connection.Conn) error {
	ctx, span := b.tracer.Start(ctx, "stockpile.reconnect", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	err := b.next.Reconnect(ctx, conn)
	finish(span, conn, err)
	return err
}

func (b *tracedBackend) Disconnect(ctx context.Context, conn connection.Conn) error {
	ctx, span := b.tracer.Start(ctx, "stockpile.disconnect", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	err := b.next.Disconnect(ctx, conn)
	finish(span, conn, err)
	return err
}

func finish(span trace.Span, conn connection.Conn, err error) {
	if conn != nil {
		span.SetAttributes(attrConnID.String(conn.ID()))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
