package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Depth   DepthConfig   `mapstructure:"depth"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DepthConfig 深度中间件配置
type DepthConfig struct {
	Limit        int  `mapstructure:"limit"`         // 最大深度,0表示不限制
	StatsVerbose bool `mapstructure:"stats_verbose"` // 记录每层深度的请求数
	Priority     int  `mapstructure:"priority"`      // 每层深度的优先级惩罚,0表示不调整
}

// CrawlConfig 爬取配置
type CrawlConfig struct {
	MaxWorkers int      `mapstructure:"max_workers"` // 并发抓取数
	MaxPages   int      `mapstructure:"max_pages"`   // 最多抓取页面数,0表示不限制
	WaitTime   int      `mapstructure:"wait_time"`   // 单个请求超时(秒)
	UserAgent  string   `mapstructure:"user_agent"`
	Headers    []string `mapstructure:"headers"` // 自定义头部,格式 "Name: Value"

	// 跳过TLS证书验证,用于内网/开发环境的自签名证书
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir string `mapstructure:"base_dir"`
	Report  bool   `mapstructure:"report"`
}

// MetricsConfig Prometheus导出配置
type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // 为空时不启动 /metrics
}

// Load 加载配置文件
// configPath 为空时按顺序搜索 ./configs, . 和 ~/.depthcrawl 下的 config.yaml;
// 文件不存在时使用默认值。环境变量 DEPTHCRAWL_<SECTION>_<KEY> 覆盖文件中的值。
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".depthcrawl"))
		}
	}

	v.SetEnvPrefix("DEPTHCRAWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 深度中间件默认值
	v.SetDefault("depth.limit", 0)
	v.SetDefault("depth.stats_verbose", false)
	v.SetDefault("depth.priority", 0)

	// 爬取配置默认值
	v.SetDefault("crawl.max_workers", 2)
	v.SetDefault("crawl.max_pages", 0)
	v.SetDefault("crawl.wait_time", 10)
	v.SetDefault("crawl.user_agent", "depthcrawl/1.0")
	v.SetDefault("crawl.headers", []string{})
	v.SetDefault("crawl.insecure_skip_verify", false)

	// 日志配置默认值
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	// 输出配置默认值
	v.SetDefault("output.base_dir", "output")
	v.SetDefault("output.report", true)

	v.SetDefault("metrics.addr", "")
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := c.Depth.Validate(); err != nil {
		return err
	}
	return c.Crawl.Validate()
}

// Validate 验证深度配置
func (d DepthConfig) Validate() error {
	if d.Limit < 0 {
		return fmt.Errorf("深度限制不能为负数,当前值: %d", d.Limit)
	}
	return nil
}

// Validate 验证爬取配置
func (c CrawlConfig) Validate() error {
	if c.MaxWorkers < 1 || c.MaxWorkers > 100 {
		return fmt.Errorf("并发数必须在1-100之间,当前值: %d", c.MaxWorkers)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("最大页面数不能为负数,当前值: %d", c.MaxPages)
	}
	if c.WaitTime < 0 || c.WaitTime > 300 {
		return fmt.Errorf("等待时间必须在0-300秒之间,当前值: %d", c.WaitTime)
	}
	return nil
}

// CLIFlags 命令行参数,nil表示未指定
type CLIFlags struct {
	DepthLimit        *int
	DepthPriority     *int
	DepthStatsVerbose *bool
	MaxWorkers        *int
	MaxPages          *int
	WaitTime          *int
	Headers           []string
	LogLevel          string
	OutputDir         string
	MetricsAddr       string
}

// MergeCLIFlags 合并命令行参数到配置
// 命令行参数优先于配置文件,合并后重新验证
func (c *Config) MergeCLIFlags(f CLIFlags) error {
	if f.DepthLimit != nil {
		c.Depth.Limit = *f.DepthLimit
	}
	if f.DepthPriority != nil {
		c.Depth.Priority = *f.DepthPriority
	}
	if f.DepthStatsVerbose != nil {
		c.Depth.StatsVerbose = *f.DepthStatsVerbose
	}
	if f.MaxWorkers != nil {
		c.Crawl.MaxWorkers = *f.MaxWorkers
	}
	if f.MaxPages != nil {
		c.Crawl.MaxPages = *f.MaxPages
	}
	if f.WaitTime != nil {
		c.Crawl.WaitTime = *f.WaitTime
	}
	if len(f.Headers) > 0 {
		c.Crawl.Headers = append(c.Crawl.Headers, f.Headers...)
	}
	if f.LogLevel != "" {
		c.Logging.Level = f.LogLevel
	}
	if f.OutputDir != "" {
		c.Output.BaseDir = f.OutputDir
	}
	if f.MetricsAddr != "" {
		c.Metrics.Addr = f.MetricsAddr
	}
	return c.Validate()
}
