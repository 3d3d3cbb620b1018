package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/depthcrawl/internal/models"
	"github.com/schollz/progressbar/v3"
)

const depthCountPrefix = "request_depth_count/"

// Reporter 报告生成器
type Reporter struct {
	outputDir string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string) *Reporter {
	return &Reporter{outputDir: outputDir}
}

// GenerateReport 生成爬取报告
// 输出:
//   - reports/crawl_report.json: 完整报告
//   - reports/items.json: 抓取到的数据项
//
// 返回报告目录
func (r *Reporter) GenerateReport(report *models.CrawlReport) (string, error) {
	reportsDir := filepath.Join(r.outputDir, report.SpiderName, "reports")
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	if report.DepthHistogram == nil {
		report.DepthHistogram = DepthHistogram(report.Stats)
	}
	if v, ok := report.Stats["request_depth_max"]; ok {
		report.MaxDepth = v
	}

	if err := r.saveJSONReport(reportsDir, "crawl_report.json", report); err != nil {
		return "", err
	}

	if err := r.saveJSONReport(reportsDir, "items.json", report.Items); err != nil {
		return "", err
	}

	Infof("✅ 报告已生成: %s", reportsDir)
	return reportsDir, nil
}

// saveJSONReport 保存JSON报告
func (r *Reporter) saveJSONReport(dir string, filename string, data interface{}) error {
	filepath := filepath.Join(dir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(filepath, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", filepath)
	return nil
}

// DepthHistogram 从统计快照中提取每层深度的请求数
func DepthHistogram(stats map[string]int) map[int]int {
	hist := make(map[int]int)
	for key, value := range stats {
		if !strings.HasPrefix(key, depthCountPrefix) {
			continue
		}
		depth, err := strconv.Atoi(strings.TrimPrefix(key, depthCountPrefix))
		if err != nil {
			continue
		}
		hist[depth] = value
	}
	if len(hist) == 0 {
		return nil
	}
	return hist
}

// FormatStats 按键排序格式化统计快照,用于终端输出
func FormatStats(stats map[string]int) string {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %-40s %d\n", k, stats[k])
	}
	return b.String()
}

// NewProgressBar 创建进度条
// max 为 -1 时显示不定长进度(抓取总页数未知)
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
