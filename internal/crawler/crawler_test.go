package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RecoveryAshes/depthcrawl/internal/config"
	"github.com/RecoveryAshes/depthcrawl/internal/middleware"
	"github.com/RecoveryAshes/depthcrawl/internal/models"
	"github.com/RecoveryAshes/depthcrawl/internal/stats"
)

// testSite 记录服务端收到的请求顺序
type testSite struct {
	*httptest.Server

	mu   sync.Mutex
	hits []string
}

var sitePages = map[string]string{
	"/":      `<html><head><title>Home</title><script src="/app.js"></script></head><body><a href="/a">a</a><a href="/b">b</a></body></html>`,
	"/a":     `<html><head><title>A</title></head><body><a href="/a/1">1</a></body></html>`,
	"/a/1":   `<html><body><a href="/a/1/x">x</a></body></html>`,
	"/a/1/x": `<html><head><title>too deep</title></head></html>`,
	"/b":     `<html><head><title>B</title></head><body><a href="/">home</a><a href="/missing">missing</a></body></html>`,
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	site := &testSite{}
	site.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits = append(site.hits, r.URL.Path)
		site.mu.Unlock()

		if r.URL.Path == "/echo" {
			w.Header().Set("Content-Type", "text/plain")
			fmt.Fprintf(w, "%s|%s", r.Header.Get("X-Token"), r.Header.Get("Referer"))
			return
		}

		page, ok := sitePages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	t.Cleanup(site.Close)
	return site
}

func (s *testSite) requested() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.hits...)
}

func crawlConfig(workers int) config.CrawlConfig {
	return config.CrawlConfig{
		MaxWorkers: workers,
		WaitTime:   5,
		UserAgent:  "depthcrawl-test",
	}
}

func TestFetcher_HeadersAndStatus(t *testing.T) {
	site := newTestSite(t)
	cfg := crawlConfig(1)
	cfg.Headers = []string{"X-Token: secret"}

	f, err := NewFetcher(context.Background(), cfg)
	require.NoError(t, err)

	req := models.NewRequest(site.URL + "/echo")
	req.Referer = site.URL + "/"
	req.Meta.SetDepth(3)

	resp, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "secret|"+site.URL+"/", string(resp.Body))
	assert.Same(t, req, resp.Request)

	depth, ok := resp.Meta.Depth()
	require.True(t, ok)
	assert.Equal(t, 3, depth)

	_, err = f.Fetch(context.Background(), models.NewRequest(site.URL+"/echo"))
	assert.ErrorIs(t, err, ErrDuplicate)

	missing, err := f.Fetch(context.Background(), models.NewRequest(site.URL+"/nope"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, missing.Status)
}

func TestFetcher_InvalidHeader(t *testing.T) {
	cfg := crawlConfig(1)
	cfg.Headers = []string{"missing-colon"}

	_, err := NewFetcher(context.Background(), cfg)
	assert.Error(t, err)
}

func TestCrawler_DepthLimit(t *testing.T) {
	site := newTestSite(t)
	collector := stats.NewMemoryCollector()
	pipeline := middleware.FromConfig(config.DepthConfig{Limit: 2, StatsVerbose: true}, collector)

	c := NewCrawler(crawlConfig(3), pipeline, collector)
	spider := models.NewSpider("site", site.URL+"/")

	report, err := c.Crawl(context.Background(), spider, site.URL+"/")
	require.NoError(t, err)

	assert.NotContains(t, site.requested(), "/a/1/x")
	assert.NotContains(t, site.requested(), "/app.js")

	snapshot := collector.Snapshot()
	assert.Equal(t, 1, snapshot[middleware.StatDepthCountPrefix+"0"])
	assert.Equal(t, 2, snapshot[middleware.StatDepthCountPrefix+"1"])
	assert.Equal(t, 3, snapshot[middleware.StatDepthCountPrefix+"2"])
	assert.NotContains(t, snapshot, middleware.StatDepthCountPrefix+"3")
	assert.Equal(t, 2, snapshot[middleware.StatDepthMax])

	assert.Equal(t, 5, snapshot[StatResponseCount])
	assert.Equal(t, 1, snapshot[StatDupeFiltered])
	assert.Equal(t, 1, snapshot[StatHTTPErrorIgnored])
	assert.Equal(t, 1, snapshot[StatStatusCountPrefix+"404"])
	assert.Equal(t, 6, snapshot[StatEnqueued])
	assert.Equal(t, 4, snapshot[StatItemScraped])

	assert.Equal(t, 5, report.Pages)
	assert.Equal(t, 0, report.FailedPages)
	assert.Equal(t, 2, report.MaxDepth)
	assert.Equal(t, map[int]int{0: 1, 1: 2, 2: 3}, report.DepthHistogram)
	assert.Equal(t, spider.ID, report.SpiderID)
	require.Len(t, report.Items, 4)

	var titles []string
	for _, item := range report.Items {
		if item.Kind == ItemKindTitle {
			titles = append(titles, item.Value)
		}
	}
	assert.ElementsMatch(t, []string{"Home", "A", "B"}, titles)
}

func TestCrawler_NegativePriorityIsDepthFirst(t *testing.T) {
	site := newTestSite(t)
	collector := stats.NewMemoryCollector()
	pipeline := middleware.FromConfig(config.DepthConfig{Limit: 2, Priority: -1}, collector)

	c := NewCrawler(crawlConfig(1), pipeline, collector)
	_, err := c.Crawl(context.Background(), models.NewSpider("site", site.URL+"/"), site.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "/a", "/a/1", "/b", "/missing"}, site.requested())
}

func TestCrawler_PositivePriorityIsBreadthFirst(t *testing.T) {
	site := newTestSite(t)
	collector := stats.NewMemoryCollector()
	pipeline := middleware.FromConfig(config.DepthConfig{Limit: 2, Priority: 1}, collector)

	c := NewCrawler(crawlConfig(1), pipeline, collector)
	_, err := c.Crawl(context.Background(), models.NewSpider("site", site.URL+"/"), site.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "/a", "/b", "/a/1", "/missing"}, site.requested())
}

func TestCrawler_MaxPages(t *testing.T) {
	site := newTestSite(t)
	collector := stats.NewMemoryCollector()
	pipeline := middleware.FromConfig(config.DepthConfig{}, collector)

	cfg := crawlConfig(1)
	cfg.MaxPages = 2
	c := NewCrawler(cfg, pipeline, collector)

	report, err := c.Crawl(context.Background(), models.NewSpider("site", site.URL+"/"), site.URL+"/")
	require.NoError(t, err)

	assert.Len(t, site.requested(), 2)
	assert.Equal(t, 2, report.Pages)
	v, _ := collector.Get(StatPageLimitReached)
	assert.Equal(t, 1, v)
}

func TestCrawler_CancelledContext(t *testing.T) {
	site := newTestSite(t)
	collector := stats.NewMemoryCollector()
	pipeline := middleware.FromConfig(config.DepthConfig{}, collector)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCrawler(crawlConfig(2), pipeline, collector)
	report, err := c.Crawl(ctx, models.NewSpider("site", site.URL+"/"), site.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Pages)
	assert.Empty(t, site.requested())
}

func TestCrawler_RejectsInvalidStartURL(t *testing.T) {
	c := NewCrawler(crawlConfig(1), middleware.NewPipeline(stats.NewMemoryCollector()), stats.NewMemoryCollector())

	_, err := c.Crawl(context.Background(), models.NewSpider("site", ""))
	assert.Error(t, err)

	_, err = c.Crawl(context.Background(), models.NewSpider("site", ""), "ftp://example.com")
	assert.Error(t, err)
}
