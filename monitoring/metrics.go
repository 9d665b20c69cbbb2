package monitoring

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "exohabit"

// Prediction results recorded by MetricsCollector.
const (
	ResultOK         = "ok"
	ResultInvalid    = "invalid"
	ResultUpstream   = "upstream_error"
	ResultSuperseded = "superseded"
	ResultAbandoned  = "abandoned"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	registry    *prometheus.Registry
	predictions *prometheus.CounterVec
	latency     prometheus.Histogram
	startTime   time.Time
}

// NewMetricsCollector 创建指标收集器；hub可以为nil
func NewMetricsCollector(hub *Hub) *MetricsCollector {
	mc := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction submissions by result.",
		}, []string{"result"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time from submission to a rendered prediction.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
		startTime: time.Now(),
	}

	mc.registry.MustRegister(
		mc.predictions,
		mc.latency,
		collectors.NewGoCollector(),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the collector was created.",
		}, func() float64 { return mc.GetUptime().Seconds() }),
	)
	if hub != nil {
		mc.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dashboard_clients",
			Help:      "Connected dashboard websocket clients.",
		}, func() float64 { return float64(hub.ClientCount()) }))
	}
	return mc
}

// RecordPrediction 记录一次提交结果，成功时同时记录耗时
func (mc *MetricsCollector) RecordPrediction(result string, elapsed time.Duration) {
	mc.predictions.WithLabelValues(result).Inc()
	if result == ResultOK {
		mc.latency.Observe(elapsed.Seconds())
	}
}

// Handler 导出Prometheus格式
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}

// Registry 返回指标注册表
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// GetUptime 获取运行时间
func (mc *MetricsCollector) GetUptime() time.Duration {
	return time.Since(mc.startTime)
}

// GetSystemStats 获取系统统计
func (mc *MetricsCollector) GetSystemStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"uptime":     mc.GetUptime().Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]interface{}{
			"heap_alloc": m.HeapAlloc,
			"heap_sys":   m.HeapSys,
			"gc_count":   m.NumGC,
		},
	}
}
