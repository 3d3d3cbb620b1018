package main

import (
	"fmt"
	"net/url"

	"github.com/RecoveryAshes/depthcrawl/internal/models"
	"github.com/RecoveryAshes/depthcrawl/internal/utils"
)

// collectStartURLs 合并 -u 和 --url-file 指定的起始URL,规范化后去重并保持顺序
func collectStartURLs(targetURL, urlFile string) ([]string, error) {
	var raw []string
	if targetURL != "" {
		raw = append(raw, targetURL)
	}
	if urlFile != "" {
		urls, err := utils.ReadURLsFromFile(urlFile)
		if err != nil {
			return nil, fmt.Errorf("读取URL文件失败: %w", err)
		}
		raw = append(raw, urls...)
	}

	seen := make(map[string]bool, len(raw))
	startURLs := make([]string, 0, len(raw))
	for _, u := range raw {
		normalized, err := models.NormalizeURL(u)
		if err != nil {
			return nil, fmt.Errorf("无效的起始URL [%s]: %w", u, err)
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		startURLs = append(startURLs, normalized)
	}

	if len(startURLs) == 0 {
		return nil, fmt.Errorf("没有有效的起始URL")
	}
	return startURLs, nil
}

// SpiderName 使用主机名作为默认会话名称
func SpiderName(startURL string) string {
	parsed, err := url.Parse(startURL)
	if err != nil || parsed.Hostname() == "" {
		return "default"
	}
	return parsed.Hostname()
}
