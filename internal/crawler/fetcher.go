package crawler

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/depthcrawl/internal/config"
	"github.com/RecoveryAshes/depthcrawl/internal/models"
	"github.com/RecoveryAshes/depthcrawl/internal/utils"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
)

// responseKey 在colly上下文中保存响应
const responseKey = "depthcrawl_response"

// ErrDuplicate 请求URL已经抓取过
var ErrDuplicate = errors.New("重复的请求")

// Fetcher 页面下载器(使用Colly)
// 职责: 同步下载单个请求,把colly响应转换为 models.Response。
// 同一个Fetcher内相同URL只会下载一次,可以被多个worker并发使用。
type Fetcher struct {
	collector *colly.Collector
	headers   http.Header
}

// NewFetcher 创建下载器,ctx取消时进行中的请求随之取消
func NewFetcher(ctx context.Context, cfg config.CrawlConfig) (*Fetcher, error) {
	custom, err := models.CliHeaders(cfg.Headers).Parse()
	if err != nil {
		return nil, fmt.Errorf("解析自定义头部失败: %w", err)
	}

	headers := http.Header{}
	headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	headers.Set("Accept-Encoding", "gzip, deflate, br")
	for name, values := range custom {
		headers[name] = values
	}

	timeout := time.Duration(cfg.WaitTime) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.StdlibContext(ctx),
		colly.ParseHTTPErrorResponse(),
	)
	c.SetRequestTimeout(timeout)

	if cfg.InsecureSkipVerify {
		c.WithTransport(&http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		})
		utils.Debugf("下载器: TLS证书验证已禁用")
	}

	c.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(responseKey, r)
	})

	utils.Debugf("下载器: 超时 %d 秒, User-Agent %q", int(timeout.Seconds()), cfg.UserAgent)

	return &Fetcher{
		collector: c,
		headers:   headers,
	}, nil
}

// Fetch 下载请求,返回的响应继承请求的元数据
// 非2xx响应同样返回,由调用方决定如何处理。
func (f *Fetcher) Fetch(ctx context.Context, req *models.Request) (*models.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hdr := f.headers.Clone()
	if req.Referer != "" {
		hdr.Set("Referer", req.Referer)
	}

	cctx := colly.NewContext()
	if err := f.collector.Request(http.MethodGet, req.URL, nil, cctx, hdr); err != nil {
		var visited *colly.AlreadyVisitedError
		if errors.As(err, &visited) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, req.URL)
		}
		return nil, fmt.Errorf("下载失败 [%s]: %w", req.URL, err)
	}

	r, ok := cctx.GetAny(responseKey).(*colly.Response)
	if !ok {
		return nil, fmt.Errorf("下载失败 [%s]: 没有收到响应", req.URL)
	}

	header := http.Header{}
	if r.Headers != nil {
		header = r.Headers.Clone()
	}

	body, err := decompressResponse(header.Get("Content-Encoding"), r.Body)
	if err != nil {
		utils.Warnf("解压响应失败 [%s]: %v", req.URL, err)
		body = r.Body
	}

	resp := models.NewResponse(req, r.StatusCode, body)
	resp.Header = header
	if r.Request != nil && r.Request.URL != nil {
		resp.URL = r.Request.URL.String()
	}
	return resp, nil
}

// decompressResponse 根据Content-Encoding解压响应体
// colly已经解压过gzip,只有内容仍带有gzip魔数时才再次解压。
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip", "x-gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
