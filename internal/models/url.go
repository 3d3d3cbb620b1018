package models

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL 规范化入口URL
//   - 去除首尾空白,缺少协议时补为 https
//   - 只接受 http/https 且必须包含主机名
//   - 丢弃片段(#...),空路径补为 /
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("URL不能为空")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("无效的URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL必须是HTTP或HTTPS协议: %s", parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return "", fmt.Errorf("URL必须包含主机名")
	}

	parsed.Fragment = ""
	parsed.RawFragment = ""
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	return parsed.String(), nil
}
