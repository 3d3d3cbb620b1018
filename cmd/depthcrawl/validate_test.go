package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/RecoveryAshes/depthcrawl/internal/models"
)

func TestCollectStartURLs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "urls.txt")
	content := "# 入口\nhttps://example.com/\n\nhttps://example.org/start\nexample.com/#top\nnot a url\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := collectStartURLs("example.com", file)
	if err != nil {
		t.Fatalf("collectStartURLs 失败: %v", err)
	}

	want := []string{"https://example.com/", "https://example.org/start"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("collectStartURLs = %v, 期望 %v", got, want)
	}
}

func TestCollectStartURLsErrors(t *testing.T) {
	if _, err := collectStartURLs("ftp://example.com", ""); err == nil {
		t.Error("ftp协议应该返回错误")
	}
	if _, err := collectStartURLs("#section", ""); err == nil {
		t.Error("只有片段的URL应该返回错误")
	}
	if _, err := collectStartURLs("", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("URL文件不存在应该返回错误")
	}
	if _, err := collectStartURLs("", ""); err == nil {
		t.Error("没有起始URL应该返回错误")
	}
}

// TestHeaderFlagKeepsCommas 头部值中的逗号不能把一个 -H 拆成多项
func TestHeaderFlagKeepsCommas(t *testing.T) {
	t.Cleanup(func() { headers = []string{} })

	err := crawlCmd.Flags().Parse([]string{
		"-H", "Accept-Language: zh-CN,zh;q=0.9",
		"-H", "X-Tags: a, b, c",
	})
	if err != nil {
		t.Fatalf("解析参数失败: %v", err)
	}
	if len(headers) != 2 {
		t.Fatalf("期望2个头部, 得到 %d: %q", len(headers), headers)
	}

	parsed, err := models.CliHeaders(cliFlags(crawlCmd).Headers).Parse()
	if err != nil {
		t.Fatalf("解析头部失败: %v", err)
	}
	if got := parsed.Get("Accept-Language"); got != "zh-CN,zh;q=0.9" {
		t.Errorf("Accept-Language = %q", got)
	}
	if got := parsed.Get("X-Tags"); got != "a, b, c" {
		t.Errorf("X-Tags = %q", got)
	}
}

func TestSpiderName(t *testing.T) {
	if got := SpiderName("https://Example.com:8443/x"); got != "Example.com" {
		t.Errorf("SpiderName = %q", got)
	}
	if got := SpiderName("::bad"); got != "default" {
		t.Errorf("SpiderName = %q, 期望 default", got)
	}
}
