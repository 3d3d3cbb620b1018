package middleware

import (
	"fmt"

	"github.com/RecoveryAshes/depthcrawl/internal/config"
	"github.com/RecoveryAshes/depthcrawl/internal/models"
	"github.com/RecoveryAshes/depthcrawl/internal/stats"
	"github.com/RecoveryAshes/depthcrawl/internal/utils"
)

// 错误恢复统计键
const (
	StatExceptionCount  = "spider_exceptions/count"
	StatExceptionPrefix = "spider_exceptions/"
)

// Pipeline 按顺序持有中间件并把它们串成单向链
type Pipeline struct {
	stages []Handler
	stats  stats.Collector
}

// NewPipeline 创建处理链,stages 按处理顺序排列
// 每个中间件的错误恢复入口默认为 Pipeline 的恢复逻辑。
func NewPipeline(collector stats.Collector, stages ...Handler) *Pipeline {
	p := &Pipeline{
		stages: stages,
		stats:  collector,
	}
	for i, stage := range stages {
		if i+1 < len(stages) {
			stage.SetNext(stages[i+1])
		} else {
			stage.SetNext(nil)
		}
		stage.SetScrapeFunc(p.recoverFault)
	}
	return p
}

// FromConfig 根据配置创建默认处理链
func FromConfig(cfg config.DepthConfig, collector stats.Collector) *Pipeline {
	return NewPipeline(collector, DepthFromConfig(cfg, collector))
}

// SetScrapeFunc 替换所有中间件的错误恢复入口
func (p *Pipeline) SetScrapeFunc(fn ScrapeFunc) {
	for _, stage := range p.stages {
		stage.SetScrapeFunc(fn)
	}
}

// Len 中间件数量
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Handle 从链头开始处理数据包
func (p *Pipeline) Handle(packet models.Packet, spider *models.Spider, result models.Result) models.Result {
	if len(p.stages) == 0 {
		return result
	}
	return p.stages[0].Handle(packet, spider, result)
}

// recoverFault 默认错误恢复: 记录日志和统计,不产生替代结果
func (p *Pipeline) recoverFault(fault *models.Fault) models.Result {
	utils.Logger.Error().
		Err(fault.Err).
		Str("spider", fault.Spider.String()).
		Str("packet", fmt.Sprint(fault.Packet)).
		Msg("处理抓取结果时出错")

	if p.stats != nil {
		p.stats.Inc(StatExceptionCount, fault.Spider)
		p.stats.Inc(StatExceptionPrefix+fault.Kind(), fault.Spider)
	}
	return models.Empty()
}
