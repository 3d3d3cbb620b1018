// Package stats 提供爬取会话的统计收集器
//
// 统计键是字符串,值是整数。收集器在整个会话内共享,
// 会被多个并发处理的响应同时更新,所有实现都必须是并发安全的。
package stats

import (
	"sync"

	"github.com/RecoveryAshes/depthcrawl/internal/models"
	"github.com/RecoveryAshes/depthcrawl/internal/utils"
)

// Collector 统计收集器
type Collector interface {
	// Inc 计数器加1
	Inc(key string, spider *models.Spider)

	// Max 仅当value大于当前值(或键不存在)时更新
	Max(key string, value int, spider *models.Spider)

	// Get 读取统计值
	Get(key string) (int, bool)

	// Snapshot 返回所有统计值的副本
	Snapshot() map[string]int
}

// MemoryCollector 基于互斥锁保护的map实现的收集器
type MemoryCollector struct {
	mu     sync.Mutex
	values map[string]int
}

// NewMemoryCollector 创建内存收集器
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{values: make(map[string]int)}
}

// Inc 实现Collector
func (c *MemoryCollector) Inc(key string, spider *models.Spider) {
	c.incr(key, 1)
}

// Add 计数器加n
func (c *MemoryCollector) Add(key string, n int, spider *models.Spider) {
	c.incr(key, n)
}

func (c *MemoryCollector) incr(key string, n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] += n
	return c.values[key]
}

// Max 实现Collector
func (c *MemoryCollector) Max(key string, value int, spider *models.Spider) {
	c.max(key, value)
}

func (c *MemoryCollector) max(key string, value int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.values[key]; !ok || value > cur {
		c.values[key] = value
	}
	return c.values[key]
}

// Get 实现Collector
func (c *MemoryCollector) Get(key string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// Snapshot 实现Collector
func (c *MemoryCollector) Snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Close 会话结束时输出统计
func (c *MemoryCollector) Close(spider *models.Spider) {
	snapshot := c.Snapshot()
	event := utils.Logger.Info().Str("spider", spider.String())
	for k, v := range snapshot {
		event = event.Int(k, v)
	}
	event.Msg("统计信息汇总")
}
