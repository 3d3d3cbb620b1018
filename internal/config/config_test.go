package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.Depth.Limit != 0 {
		t.Errorf("默认深度限制应为0(不限制), got %d", config.Depth.Limit)
	}
	if config.Depth.Priority != 0 {
		t.Errorf("默认优先级惩罚应为0, got %d", config.Depth.Priority)
	}
	if config.Depth.StatsVerbose {
		t.Error("默认不应开启逐层统计")
	}
	if config.Crawl.MaxWorkers != 2 {
		t.Errorf("默认并发数 = %d, want 2", config.Crawl.MaxWorkers)
	}
	if config.Logging.Level != "info" {
		t.Errorf("默认日志级别 = %s, want info", config.Logging.Level)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
depth:
  limit: 3
  stats_verbose: true
  priority: 2
crawl:
  max_workers: 8
  headers:
    - "X-Token: abc"
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.Depth.Limit != 3 || !config.Depth.StatsVerbose || config.Depth.Priority != 2 {
		t.Errorf("深度配置解析错误: %+v", config.Depth)
	}
	if config.Crawl.MaxWorkers != 8 {
		t.Errorf("MaxWorkers = %d, want 8", config.Crawl.MaxWorkers)
	}
	if len(config.Crawl.Headers) != 1 || config.Crawl.Headers[0] != "X-Token: abc" {
		t.Errorf("Headers = %v", config.Crawl.Headers)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "depth:\n  limit: 3\n")
	t.Setenv("DEPTHCRAWL_DEPTH_LIMIT", "5")

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if config.Depth.Limit != 5 {
		t.Errorf("环境变量应覆盖配置文件, got %d", config.Depth.Limit)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"负数深度", "depth:\n  limit: -1\n"},
		{"并发数过大", "crawl:\n  max_workers: 1000\n"},
		{"YAML格式错误", "depth: [unclosed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("应返回错误")
			}
		})
	}
}

func TestMergeCLIFlags(t *testing.T) {
	config, err := Load(writeConfig(t, "depth:\n  limit: 3\n  priority: 1\n"))
	if err != nil {
		t.Fatal(err)
	}

	limit := 5
	verbose := true
	err = config.MergeCLIFlags(CLIFlags{
		DepthLimit:        &limit,
		DepthStatsVerbose: &verbose,
		Headers:           []string{"User-Agent: test"},
		LogLevel:          "debug",
	})
	if err != nil {
		t.Fatalf("MergeCLIFlags() error = %v", err)
	}

	if config.Depth.Limit != 5 {
		t.Errorf("命令行深度应覆盖配置文件, got %d", config.Depth.Limit)
	}
	if config.Depth.Priority != 1 {
		t.Errorf("未指定的参数不应覆盖配置文件, got %d", config.Depth.Priority)
	}
	if !config.Depth.StatsVerbose {
		t.Error("StatsVerbose 应为 true")
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Level = %s, want debug", config.Logging.Level)
	}

	bad := -2
	if err := config.MergeCLIFlags(CLIFlags{DepthLimit: &bad}); err == nil {
		t.Error("合并后的无效配置应返回错误")
	}
}
