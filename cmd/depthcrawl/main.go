package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RecoveryAshes/depthcrawl/internal/config"
	"github.com/RecoveryAshes/depthcrawl/internal/crawler"
	"github.com/RecoveryAshes/depthcrawl/internal/middleware"
	"github.com/RecoveryAshes/depthcrawl/internal/models"
	"github.com/RecoveryAshes/depthcrawl/internal/stats"
	"github.com/RecoveryAshes/depthcrawl/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// 爬取参数
	targetURL    string
	urlFile      string
	spiderName   string
	depthLimit   int
	depthPrio    int
	depthVerbose bool
	maxWorkers   int
	maxPages     int
	waitTime     int
	headers      []string
	outputDir    string
	metricsAddr  string
	noProgress   bool
)

// appConfig 在PersistentPreRunE中加载
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "depthcrawl",
	Short: "带深度限制的网页爬取工具",
	Long: `depthcrawl - 带深度限制的网页爬取工具

从起始URL开始按链接爬取,支持:
  • 最大深度限制,超过深度的链接直接丢弃
  • 按深度调整请求优先级(正数偏向广度优先,负数偏向深度优先)
  • 每层深度的请求数统计
  • Prometheus 指标导出
  • 自定义HTTP请求头

示例:
  # 最多爬取2层
  depthcrawl crawl -u https://example.com --depth-limit 2

  # 深度优先,记录每层请求数
  depthcrawl crawl -u https://example.com --depth-priority -1 --depth-stats-verbose

  # 自定义请求头并导出指标
  depthcrawl crawl -u https://example.com -H "Authorization: Bearer token" --metrics-addr :9090

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		appConfig = cfg

		// 命令行参数覆盖配置文件
		if err := appConfig.MergeCLIFlags(loggingFlags()); err != nil {
			return err
		}

		if err := utils.InitLogger(appConfig.Logging); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		return nil
	},
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "从起始URL开始爬取",
	RunE: func(cmd *cobra.Command, args []string) error {
		if targetURL == "" && urlFile == "" {
			return cmd.Help()
		}

		startURLs, err := collectStartURLs(targetURL, urlFile)
		if err != nil {
			return err
		}

		if err := appConfig.MergeCLIFlags(cliFlags(cmd)); err != nil {
			return err
		}

		// Ctrl+C 时停止派发新请求,已下载的页面仍然生成报告
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		collector, shutdown, err := newCollector(appConfig.Metrics)
		if err != nil {
			return err
		}
		defer shutdown()

		pipeline := middleware.FromConfig(appConfig.Depth, collector)
		c := crawler.NewCrawler(appConfig.Crawl, pipeline, collector)
		c.SetProgress(!noProgress)

		name := spiderName
		if name == "" {
			name = SpiderName(startURLs[0])
		}
		spider := models.NewSpider(name, startURLs[0])

		report, err := c.Crawl(ctx, spider, startURLs...)
		if err != nil && report == nil {
			return fmt.Errorf("爬取失败: %w", err)
		}
		if ctx.Err() != nil {
			utils.Warn("收到中断信号,爬取已提前结束")
		}

		fmt.Println("\n==================================================")
		fmt.Println("📊 爬取统计")
		fmt.Println("==================================================")
		fmt.Printf("✅ 成功页面: %d\n", report.Pages)
		fmt.Printf("❌ 失败页面: %d\n", report.FailedPages)
		fmt.Printf("📦 数据项: %d\n", len(report.Items))
		fmt.Printf("🔽 最大深度: %d\n", report.MaxDepth)
		fmt.Printf("⏱️  总耗时: %.2f秒\n", report.Duration)
		fmt.Print(utils.FormatStats(report.Stats))
		fmt.Println("==================================================")

		if appConfig.Output.Report {
			if _, err := utils.NewReporter(appConfig.Output.BaseDir).GenerateReport(report); err != nil {
				return fmt.Errorf("生成报告失败: %w", err)
			}
		}

		utils.Info("✨ 爬取任务完成!")
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("depthcrawl %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// loggingFlags 日志相关的全局参数,--verbose 等同于 --log-level debug
func loggingFlags() config.CLIFlags {
	if verbose {
		return config.CLIFlags{LogLevel: "debug"}
	}
	return config.CLIFlags{LogLevel: logLevel}
}

// cliFlags 只收集用户显式指定的爬取参数
func cliFlags(cmd *cobra.Command) config.CLIFlags {
	flags := cmd.Flags()
	f := config.CLIFlags{
		Headers:     headers,
		OutputDir:   outputDir,
		MetricsAddr: metricsAddr,
	}
	if flags.Changed("depth-limit") {
		f.DepthLimit = &depthLimit
	}
	if flags.Changed("depth-priority") {
		f.DepthPriority = &depthPrio
	}
	if flags.Changed("depth-stats-verbose") {
		f.DepthStatsVerbose = &depthVerbose
	}
	if flags.Changed("threads") {
		f.MaxWorkers = &maxWorkers
	}
	if flags.Changed("max-pages") {
		f.MaxPages = &maxPages
	}
	if flags.Changed("wait") {
		f.WaitTime = &waitTime
	}
	return f
}

// newCollector 配置了metrics地址时使用Prometheus收集器并启动 /metrics
func newCollector(cfg config.MetricsConfig) (stats.Collector, func(), error) {
	if cfg.Addr == "" {
		return stats.NewMemoryCollector(), func() {}, nil
	}

	collector, err := stats.NewPrometheusCollector()
	if err != nil {
		return nil, nil, fmt.Errorf("创建Prometheus收集器失败: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		utils.Infof("📈 指标地址: http://%s/metrics", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Errorf("指标服务启动失败: %v", err)
		}
	}()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			utils.Warnf("关闭指标服务失败: %v", err)
		}
	}
	return collector, shutdown, nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式(等同于 --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// 爬取参数
	crawlCmd.Flags().StringVarP(&targetURL, "url", "u", "", "起始URL (必需,除非使用 --url-file)")
	crawlCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "包含起始URL列表的文件路径")
	crawlCmd.Flags().StringVar(&spiderName, "name", "", "会话名称,默认为起始URL的主机名")
	crawlCmd.Flags().IntVarP(&depthLimit, "depth-limit", "d", 0, "最大深度,0表示不限制")
	crawlCmd.Flags().IntVar(&depthPrio, "depth-priority", 0, "每层深度的优先级惩罚,负数偏向深度优先")
	crawlCmd.Flags().BoolVar(&depthVerbose, "depth-stats-verbose", false, "记录每层深度的请求数")
	crawlCmd.Flags().IntVar(&maxWorkers, "threads", 2, "并发抓取数")
	crawlCmd.Flags().IntVar(&maxPages, "max-pages", 0, "最多抓取页面数,0表示不限制")
	crawlCmd.Flags().IntVarP(&waitTime, "wait", "w", 10, "单个请求超时(秒)")
	crawlCmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	crawlCmd.Flags().StringVarP(&outputDir, "output", "o", "", "输出目录")
	crawlCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus指标监听地址,例如 :9090")
	crawlCmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")

	// 添加子命令
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
