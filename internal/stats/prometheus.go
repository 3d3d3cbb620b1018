package stats

import (
	"net/http"
	"sync"

	"github.com/RecoveryAshes/depthcrawl/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsNamespace = "depthcrawl"
	metricsSubsystem = "stats"
)

// PrometheusCollector 在内存收集器之上把每个统计值同步到Prometheus
//
// 统计键是动态的(例如 request_depth_count/3),因此导出为一个带
// stat 和 spider 标签的 Gauge,值与内存中的值保持一致。
type PrometheusCollector struct {
	*MemoryCollector

	// mu 保证内存更新与Gauge写入的顺序一致
	mu       sync.Mutex
	values   *prometheus.GaugeVec
	registry *prometheus.Registry
}

// NewPrometheusCollector 创建收集器并注册到独立的registry
func NewPrometheusCollector() (*PrometheusCollector, error) {
	values := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "value",
		Help:      "Crawl session statistics keyed by stat name.",
	}, []string{"stat", "spider"})

	registry := prometheus.NewRegistry()
	if err := registry.Register(values); err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		MemoryCollector: NewMemoryCollector(),
		values:          values,
		registry:        registry,
	}, nil
}

// Inc 实现Collector
func (c *PrometheusCollector) Inc(key string, spider *models.Spider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.MemoryCollector.incr(key, 1)
	c.values.WithLabelValues(key, spiderLabel(spider)).Set(float64(v))
}

// Add 计数器加n
func (c *PrometheusCollector) Add(key string, n int, spider *models.Spider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.MemoryCollector.incr(key, n)
	c.values.WithLabelValues(key, spiderLabel(spider)).Set(float64(v))
}

// Max 实现Collector
func (c *PrometheusCollector) Max(key string, value int, spider *models.Spider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.MemoryCollector.max(key, value)
	c.values.WithLabelValues(key, spiderLabel(spider)).Set(float64(v))
}

// Registry 返回内部registry,测试和自定义导出使用
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 /metrics 的HTTP处理器
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func spiderLabel(spider *models.Spider) string {
	if spider == nil {
		return ""
	}
	return spider.Name
}
