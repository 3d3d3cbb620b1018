package main

import (
	"testing"

	"github.com/RecoveryAshes/depthcrawl/internal/config"
)

func TestLoggingFlags(t *testing.T) {
	t.Cleanup(func() {
		verbose = false
		logLevel = ""
	})

	tests := []struct {
		name     string
		verbose  bool
		logLevel string
		want     string
	}{
		{"未指定时保留配置文件", false, "", "info"},
		{"--log-level 覆盖配置文件", false, "warn", "warn"},
		{"--verbose 优先", true, "error", "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verbose = tt.verbose
			logLevel = tt.logLevel

			cfg := &config.Config{
				Logging: config.LoggingConfig{Level: "info"},
				Crawl:   config.CrawlConfig{MaxWorkers: 1},
			}
			if err := cfg.MergeCLIFlags(loggingFlags()); err != nil {
				t.Fatalf("MergeCLIFlags 失败: %v", err)
			}
			if cfg.Logging.Level != tt.want {
				t.Errorf("Logging.Level = %q, 期望 %q", cfg.Logging.Level, tt.want)
			}
		})
	}
}
