// Package crawler 提供带深度限制的广度爬取
//
// # 概述
//
// crawler包把下载、链接提取和抓取结果处理链组合成一个完整的爬取流程。
// 深度计算、优先级调整和超深链接的丢弃都由处理链(middleware.Depth)完成,
// 本包只负责调度。
//
// # 核心组件
//
// ## Fetcher
//
// 基于Colly的同步下载器。相同URL只下载一次,重复请求返回 ErrDuplicate。
// 支持 gzip、deflate、br 三种内容编码。
//
//	fetcher, err := NewFetcher(ctx, cfg.Crawl)
//	resp, err := fetcher.Fetch(ctx, models.NewRequest("https://example.com"))
//
// ## Extract
//
// 基于 golang.org/x/net/html 分词器的惰性提取器,按文档顺序产出:
//   - a[href]: 新请求(绝对URL,Referer为当前页面)
//   - script[src]: script 数据项
//   - <title>: title 数据项
//
// ## Frontier
//
// 请求优先级队列。优先级高的先出队,相同优先级先进先出。
// 队列为空且没有请求在处理时,Pop 返回 false,爬取结束。
//
// ## Crawler
//
// 协调器,启动 MaxWorkers 个worker:
//
//	下载 → 提取 → 处理链 → 新请求入队 / 数据项汇总
//
// 使用示例:
//
//	pipeline := middleware.FromConfig(cfg.Depth, collector)
//	c := NewCrawler(cfg.Crawl, pipeline, collector)
//	report, err := c.Crawl(ctx, models.NewSpider("example", startURL), startURL)
//
// # 统计
//
// 除了处理链记录的深度统计,Crawler 还记录:
//   - response_received_count, downloader/response_status_count/<code>
//   - downloader/exception_count, dupefilter/filtered
//   - scheduler/enqueued, item_scraped_count
//   - spider_exceptions/invalid_output, spider_exceptions/unrecovered
package crawler
