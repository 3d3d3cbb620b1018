package crawler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/RecoveryAshes/depthcrawl/internal/models"
	"golang.org/x/net/html"
)

// 提取结果类型
const (
	ItemKindTitle  = "title"
	ItemKindScript = "script"
)

// Extract 从响应中惰性提取候选结果
// 职责: 按文档顺序产出链接请求(a[href])、脚本条目(script[src])和标题条目(<title>)。
// 非HTML响应返回空序列;解析出错时错误作为序列元素产出,序列结束。
func Extract(resp *models.Response) models.Result {
	if resp == nil || !isHTML(resp.Header.Get("Content-Type"), resp.Body) {
		return models.Empty()
	}

	return func(yield func(models.Output, error) bool) {
		base, err := url.Parse(resp.URL)
		if err != nil {
			yield(nil, fmt.Errorf("解析响应URL失败: %w", err))
			return
		}

		z := html.NewTokenizer(bytes.NewReader(resp.Body))
		inTitle := false
		baseSet := false
		var title strings.Builder

		for {
			tt := z.Next()
			switch tt {
			case html.ErrorToken:
				if err := z.Err(); !errors.Is(err, io.EOF) {
					yield(nil, fmt.Errorf("解析HTML失败: %w", err))
				}
				return

			case html.StartTagToken, html.SelfClosingTagToken:
				name, hasAttr := z.TagName()
				tag := string(name)
				if tag == "title" && tt == html.StartTagToken {
					inTitle = true
					title.Reset()
					continue
				}
				if !hasAttr {
					continue
				}
				attrs := tagAttrs(z)

				switch tag {
				case "base":
					// 只有第一个<base>生效
					href, ok := attrs["href"]
					if !ok || baseSet {
						continue
					}
					baseSet = true
					if u, err := base.Parse(strings.TrimSpace(href)); err == nil {
						base = u
					}
				case "a":
					link, ok := resolveLink(base, attrs["href"])
					if !ok {
						continue
					}
					req := models.NewRequest(link)
					req.Referer = resp.URL
					if !yield(req, nil) {
						return
					}
				case "script":
					src, ok := resolveLink(base, attrs["src"])
					if !ok {
						continue
					}
					item := models.Item{Kind: ItemKindScript, Value: src, Source: resp.URL}
					if !yield(item, nil) {
						return
					}
				}

			case html.TextToken:
				if inTitle {
					title.Write(z.Text())
				}

			case html.EndTagToken:
				name, _ := z.TagName()
				if inTitle && string(name) == "title" {
					inTitle = false
					text := strings.Join(strings.Fields(title.String()), " ")
					if text == "" {
						continue
					}
					item := models.Item{Kind: ItemKindTitle, Value: text, Source: resp.URL}
					if !yield(item, nil) {
						return
					}
				}
			}
		}
	}
}

// tagAttrs 读取当前标签的全部属性,重复属性保留第一个
func tagAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		key, val, more := z.TagAttr()
		k := string(key)
		if _, seen := attrs[k]; !seen {
			attrs[k] = string(val)
		}
		if !more {
			return attrs
		}
	}
}

// resolveLink 转换为绝对URL,只接受http/https
func resolveLink(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return "", false
	}

	u, err := base.Parse(ref)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}

// isHTML 判断响应是否为HTML文档
// Content-Type优先;缺失时按内容嗅探(只检查前1KB)。
func isHTML(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if ct != "" {
		return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
	}

	sample := body
	if len(body) > 1024 {
		sample = body[:1024]
	}
	if len(sample) == 0 {
		return false
	}

	return strings.HasPrefix(http.DetectContentType(sample), "text/html")
}
