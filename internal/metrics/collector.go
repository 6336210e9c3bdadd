// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// 生命周期操作名
const (
	OpCreatePrimary = "create_primary"
	OpCreateNamed   = "create_named"
	OpReconnect     = "reconnect"
	OpDisconnect    = "disconnect"
)

// PrimaryClient 主连接在 client 标签中的取值
const PrimaryClient = "<primary>"

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器
type Collector struct {
	// 生命周期指标
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	// 连接指标
	connectionsCreated *prometheus.CounterVec

	// 健康指标
	connectionHealthy *prometheus.GaugeVec
	pingDuration      *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 生命周期指标
	c.operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_operations_total",
			Help:      "Total number of connection lifecycle operations",
		},
		[]string{"operation", "status"},
	)

	c.operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lifecycle_operation_duration_seconds",
			Help:      "Connection lifecycle operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)

	// 连接指标
	c.connectionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_created_total",
			Help:      "Total number of physical connections created",
		},
		[]string{"client"},
	)

	// 健康指标
	c.connectionHealthy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_healthy",
			Help:      "Whether the last health check of a client connection succeeded (1) or failed (0)",
		},
		[]string{"client"},
	)

	c.pingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ping_duration_seconds",
			Help:      "Health check ping duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"client"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🔁 生命周期指标记录
// =============================================================================

// RecordOperation 记录一次生命周期操作
func (c *Collector) RecordOperation(operation string, err error, duration time.Duration) {
	c.operationsTotal.WithLabelValues(operation, status(err)).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordConnectionCreated 记录一条新的物理连接
func (c *Collector) RecordConnectionCreated(client string) {
	c.connectionsCreated.WithLabelValues(clientLabel(client)).Inc()
}

// =============================================================================
// 🏥 健康指标记录
// =============================================================================

// RecordPing 记录健康检查结果
func (c *Collector) RecordPing(client string, err error, duration time.Duration) {
	client = clientLabel(client)
	healthy := 1.0
	if err != nil {
		healthy = 0
	}
	c.connectionHealthy.WithLabelValues(client).Set(healthy)
	c.pingDuration.WithLabelValues(client).Observe(duration.Seconds())
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func clientLabel(client string) string {
	if client == "" {
		return PrimaryClient
	}
	return client
}
