package crawler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/depthcrawl/internal/config"
	"github.com/RecoveryAshes/depthcrawl/internal/middleware"
	"github.com/RecoveryAshes/depthcrawl/internal/models"
	"github.com/RecoveryAshes/depthcrawl/internal/stats"
	"github.com/RecoveryAshes/depthcrawl/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// 抓取统计键
const (
	StatResponseCount     = "response_received_count"
	StatStatusCountPrefix = "downloader/response_status_count/"
	StatDownloadErrors    = "downloader/exception_count"
	StatDupeFiltered      = "dupefilter/filtered"
	StatHTTPErrorIgnored  = "httperror/response_ignored_count"
	StatEnqueued          = "scheduler/enqueued"
	StatItemScraped       = "item_scraped_count"
	StatInvalidOutput     = "spider_exceptions/invalid_output"
	StatUnrecoveredFaults = "spider_exceptions/unrecovered"
	StatPageLimitReached  = "finish_reason/max_pages"
)

// closer 支持在爬取结束时输出统计的收集器
type closer interface {
	Close(spider *models.Spider)
}

// Crawler 爬取协调器
// 职责: 从队列取出请求下载,把提取的候选结果交给处理链,
// 处理链放行的请求重新入队,数据项汇总到报告中。
type Crawler struct {
	config   config.CrawlConfig
	pipeline *middleware.Pipeline
	stats    stats.Collector

	// 是否显示进度条
	progress bool
}

// crawlState 单次爬取的可变状态
type crawlState struct {
	spider   *models.Spider
	fetcher  *Fetcher
	frontier *Frontier
	bar      *progressbar.ProgressBar

	// 已领取的下载名额(用于max_pages)
	reserved atomic.Int64

	mu     sync.Mutex
	pages  int
	failed int
	items  []models.Item
}

// NewCrawler 创建爬取协调器
func NewCrawler(cfg config.CrawlConfig, pipeline *middleware.Pipeline, collector stats.Collector) *Crawler {
	return &Crawler{
		config:   cfg,
		pipeline: pipeline,
		stats:    collector,
	}
}

// SetProgress 开启或关闭进度条
func (c *Crawler) SetProgress(enabled bool) {
	c.progress = enabled
}

// Crawl 从起始URL开始爬取,直到队列耗尽、达到max_pages或ctx取消
// 执行流程:
//  1. 向处理链发送会话开始事件
//  2. 起始请求入队,启动 MaxWorkers 个worker
//  3. 每个worker: 下载 → 提取 → 处理链 → 新请求入队
//  4. 发送会话结束事件,输出统计并生成报告
func (c *Crawler) Crawl(ctx context.Context, spider *models.Spider, startURLs ...string) (*models.CrawlReport, error) {
	if len(startURLs) == 0 {
		return nil, fmt.Errorf("没有起始URL")
	}
	normalized := make([]string, len(startURLs))
	for i, u := range startURLs {
		n, err := models.NormalizeURL(u)
		if err != nil {
			return nil, fmt.Errorf("起始URL无效 [%s]: %w", u, err)
		}
		normalized[i] = n
	}
	startURLs = normalized

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fetcher, err := NewFetcher(ctx, c.config)
	if err != nil {
		return nil, err
	}

	st := &crawlState{
		spider:   spider,
		fetcher:  fetcher,
		frontier: NewFrontier(),
		items:    []models.Item{},
	}
	for _, u := range startURLs {
		if err := st.frontier.Push(models.NewRequest(u)); err != nil {
			return nil, err
		}
		c.stats.Inc(StatEnqueued, spider)
	}
	stop := context.AfterFunc(ctx, st.frontier.Close)
	defer stop()

	if c.progress {
		total := -1
		if c.config.MaxPages > 0 {
			total = c.config.MaxPages
		}
		st.bar = utils.NewProgressBar(total, "抓取页面")
	}

	startTime := time.Now()
	utils.Infof("🚀 开始爬取: %s", spider)
	utils.Infof("起始URL数: %d", len(startURLs))
	utils.Infof("并发数: %d", c.workers())

	c.dispatch(models.EventSpiderOpened, spider)

	var wg sync.WaitGroup
	for i := 0; i < c.workers(); i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			c.worker(ctx, id, st)
		}(i)
	}
	wg.Wait()

	if st.bar != nil {
		_ = st.bar.Finish()
	}

	c.dispatch(models.EventSpiderClosed, spider)

	if cl, ok := c.stats.(closer); ok {
		cl.Close(spider)
	}

	endTime := time.Now()
	report := c.buildReport(st, startURLs, startTime, endTime)

	utils.Infof("✅ 爬取完成: 成功 %d 页, 失败 %d 页, 数据项 %d 个", report.Pages, report.FailedPages, len(report.Items))
	utils.Infof("总耗时: %.2f秒", report.Duration)

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return report, err
	}
	return report, nil
}

func (c *Crawler) workers() int {
	if c.config.MaxWorkers < 1 {
		return 1
	}
	return c.config.MaxWorkers
}

// worker 不断从队列取出请求处理,队列耗尽或关闭时退出
func (c *Crawler) worker(ctx context.Context, id int, st *crawlState) {
	for {
		req, ok := st.frontier.Pop(ctx)
		if !ok {
			utils.Debugf("worker %d 退出", id)
			return
		}
		c.process(ctx, req, st)
		st.frontier.Done()
	}
}

// process 处理单个请求
func (c *Crawler) process(ctx context.Context, req *models.Request, st *crawlState) {
	if limit := int64(c.config.MaxPages); limit > 0 {
		if n := st.reserved.Add(1); n > limit {
			if n == limit+1 {
				utils.Infof("已达到最大页面数 %d,停止抓取", limit)
				c.stats.Inc(StatPageLimitReached, st.spider)
			}
			st.frontier.Close()
			return
		}
	}

	resp, err := st.fetcher.Fetch(ctx, req)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			c.stats.Inc(StatDupeFiltered, st.spider)
			if c.config.MaxPages > 0 {
				st.reserved.Add(-1)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		utils.Warnf("%v", err)
		c.stats.Inc(StatDownloadErrors, st.spider)
		st.mu.Lock()
		st.failed++
		st.mu.Unlock()
		return
	}

	c.stats.Inc(StatResponseCount, st.spider)
	c.stats.Inc(fmt.Sprintf("%s%d", StatStatusCountPrefix, resp.Status), st.spider)

	st.mu.Lock()
	st.pages++
	st.mu.Unlock()
	if st.bar != nil {
		_ = st.bar.Add(1)
	}

	if resp.Status < 200 || resp.Status > 299 {
		utils.Debugf("忽略响应 %s", resp)
		c.stats.Inc(StatHTTPErrorIgnored, st.spider)
		return
	}

	for out, err := range c.pipeline.Handle(resp, st.spider, Extract(resp)) {
		if err != nil {
			c.handleOutputError(err, resp, st)
			return
		}
		switch o := out.(type) {
		case *models.Request:
			if err := st.frontier.Push(o); err != nil {
				utils.Debugf("请求未入队 [%s]: %v", o.URL, err)
				continue
			}
			c.stats.Inc(StatEnqueued, st.spider)
		case models.Item:
			st.mu.Lock()
			st.items = append(st.items, o)
			st.mu.Unlock()
			c.stats.Inc(StatItemScraped, st.spider)
		}
	}
}

// handleOutputError 处理链没有在本地恢复的错误
func (c *Crawler) handleOutputError(err error, resp *models.Response, st *crawlState) {
	if errors.Is(err, models.ErrInvalidOutput) {
		utils.Logger.Error().Err(err).Str("url", resp.URL).Msg("候选结果不符合约定")
		c.stats.Inc(StatInvalidOutput, st.spider)
		return
	}
	utils.Logger.Error().Err(err).Str("url", resp.URL).Msg("处理抓取结果失败")
	c.stats.Inc(StatUnrecoveredFaults, st.spider)
}

// dispatch 向处理链发送非响应事件并消费结果
func (c *Crawler) dispatch(event models.Event, spider *models.Spider) {
	if _, err := models.Collect(c.pipeline.Handle(event, spider, nil)); err != nil {
		utils.Warnf("处理事件 %s 失败: %v", event.Name, err)
	}
}

func (c *Crawler) buildReport(st *crawlState, startURLs []string, start, end time.Time) *models.CrawlReport {
	snapshot := c.stats.Snapshot()

	st.mu.Lock()
	defer st.mu.Unlock()

	items := make([]models.Item, len(st.items))
	copy(items, st.items)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Source != items[j].Source {
			return items[i].Source < items[j].Source
		}
		return items[i].Kind < items[j].Kind
	})

	report := &models.CrawlReport{
		SpiderID:       st.spider.ID,
		SpiderName:     st.spider.Name,
		StartURLs:      startURLs,
		StartTime:      start,
		EndTime:        end,
		Duration:       end.Sub(start).Seconds(),
		Pages:          st.pages,
		FailedPages:    st.failed,
		Stats:          snapshot,
		DepthHistogram: utils.DepthHistogram(snapshot),
		Items:          items,
	}
	if v, ok := snapshot[middleware.StatDepthMax]; ok {
		report.MaxDepth = v
	}
	return report
}
