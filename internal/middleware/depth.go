package middleware

import (
	"fmt"

	"github.com/RecoveryAshes/depthcrawl/internal/config"
	"github.com/RecoveryAshes/depthcrawl/internal/models"
	"github.com/RecoveryAshes/depthcrawl/internal/stats"
	"github.com/RecoveryAshes/depthcrawl/internal/utils"
	"github.com/rs/zerolog"
)

// 统计键
const (
	StatDepthCountPrefix = "request_depth_count/"
	StatDepthMax         = "request_depth_max"
)

// Depth 深度限制中间件
//
// 为响应补齐深度(入口响应为0),为新请求写入 父响应深度+1,
// 按深度降低请求优先级,丢弃超过最大深度的请求,并记录深度分布。
// 构造后只读,可以被多个并发处理的响应共享;唯一共享的可变状态是统计收集器。
type Depth struct {
	Base

	maxDepth     int
	verboseStats bool
	prio         int
	stats        stats.Collector
	logger       *zerolog.Logger
}

// NewDepth 创建深度中间件
//   - maxDepth: 最大深度,0表示不限制
//   - verboseStats: 是否记录每层深度的请求数
//   - prio: 每层深度的优先级惩罚,0表示不调整,结果不做下限截断
func NewDepth(maxDepth int, collector stats.Collector, verboseStats bool, prio int) *Depth {
	return &Depth{
		maxDepth:     maxDepth,
		verboseStats: verboseStats,
		prio:         prio,
		stats:        collector,
		logger:       &utils.Logger,
	}
}

// DepthFromConfig 根据配置创建深度中间件
func DepthFromConfig(cfg config.DepthConfig, collector stats.Collector) *Depth {
	return NewDepth(cfg.Limit, collector, cfg.StatsVerbose, cfg.Priority)
}

// SetLogger 替换日志器,默认使用全局日志器
func (d *Depth) SetLogger(logger zerolog.Logger) {
	d.logger = &logger
}

// Handle 实现Handler
func (d *Depth) Handle(packet models.Packet, spider *models.Spider, result models.Result) models.Result {
	switch p := packet.(type) {
	case *models.Response:
		if err := capture(func() { d.initDepth(p, spider) }); err != nil {
			if isContractViolation(err) {
				return models.Fail(err)
			}
			return d.Scrape(models.NewFault(err, packet, spider))
		}
		result = d.filterResult(p, spider, result)
	}

	return d.Forward(packet, spider, result)
}

// initDepth 入口响应没有深度,补为0
func (d *Depth) initDepth(resp *models.Response, spider *models.Spider) {
	if resp.Meta.HasDepth() {
		return
	}
	resp.Meta.SetDepth(0)
	if d.verboseStats {
		d.stats.Inc(StatDepthCountPrefix+"0", spider)
	}
}

// filterResult 惰性包装候选结果序列
//
// 上游产出错误或在拉取/过滤时panic:
//   - 约定违规原样交给调用方,序列结束
//   - 其他错误包装为错误信号交给恢复入口,输出恢复入口的结果后序列结束
//
// 下游在循环体中的panic不属于本中间件的错误,原样继续传播。
func (d *Depth) filterResult(resp *models.Response, spider *models.Spider, result models.Result) models.Result {
	return func(yield func(models.Output, error) bool) {
		if result == nil {
			return
		}

		inYield := false
		emit := func(o models.Output, err error) bool {
			inYield = true
			ok := yield(o, err)
			inYield = false
			return ok
		}

		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if inYield {
				panic(r)
			}
			d.fail(emit, panicToError(r), resp, spider)
		}()

		for out, err := range result {
			if err == nil {
				err = models.CheckOutput(out)
			}
			if err != nil {
				d.fail(emit, err, resp, spider)
				return
			}
			if !d.filter(out, resp, spider) {
				continue
			}
			if !emit(out, nil) {
				return
			}
		}
	}
}

func (d *Depth) fail(emit func(models.Output, error) bool, err error, resp *models.Response, spider *models.Spider) {
	if isContractViolation(err) {
		emit(nil, err)
		return
	}
	recovered := d.Scrape(models.NewFault(err, resp, spider))
	if recovered == nil {
		return
	}
	for o, e := range recovered {
		if !emit(o, e) {
			return
		}
	}
}

// filter 计算单个候选结果的深度和优先级,返回是否保留
// 非请求的候选结果直接保留,不产生任何副作用。
func (d *Depth) filter(out models.Output, resp *models.Response, spider *models.Spider) bool {
	switch req := out.(type) {
	case *models.Request:
		parent, _ := resp.Meta.Depth()
		depth := parent + 1
		req.Meta.SetDepth(depth)

		if d.prio != 0 {
			req.Priority -= depth * d.prio
		}

		if d.maxDepth > 0 && depth > d.maxDepth {
			d.logger.Debug().
				Int("maxdepth", d.maxDepth).
				Str("url", req.URL).
				Str("spider", spider.String()).
				Msgf("忽略链接 (depth > %d): %s", d.maxDepth, req.URL)
			return false
		}

		if d.verboseStats {
			d.stats.Inc(fmt.Sprintf("%s%d", StatDepthCountPrefix, depth), spider)
		}
		d.stats.Max(StatDepthMax, depth, spider)
		return true
	default:
		return true
	}
}
