package models

import (
	"encoding/json"
	"time"
)

// CrawlReport 爬取报告
type CrawlReport struct {
	// 会话信息
	SpiderID   string   `json:"spider_id"`
	SpiderName string   `json:"spider_name"`
	StartURLs  []string `json:"start_urls"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	// 统计信息
	Pages       int            `json:"pages"`        // 成功抓取的页面数
	FailedPages int            `json:"failed_pages"` // 抓取失败的页面数
	Stats       map[string]int `json:"stats"`        // 统计快照

	// 深度分布 (仅在 depth.stats_verbose 开启时有数据)
	DepthHistogram map[int]int `json:"depth_histogram,omitempty"`
	MaxDepth       int         `json:"max_depth"`

	// 抓取到的数据项
	Items []Item `json:"items"`
}

// ToJSON 序列化为JSON
func (r *CrawlReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *CrawlReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
