package models

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

func generateID() string {
	return uuid.New().String()
}

// Spider 爬取会话上下文
type Spider struct {
	ID       string // 会话唯一ID (UUID)
	Name     string // 会话名称,用于日志和统计
	StartURL string // 入口URL
}

// NewSpider 创建爬取会话
func NewSpider(name, startURL string) *Spider {
	return &Spider{
		ID:       generateID(),
		Name:     name,
		StartURL: startURL,
	}
}

// String 实现fmt.Stringer
func (s *Spider) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.Name
}

// Request 待抓取的请求
type Request struct {
	ID       string // 请求唯一ID (UUID)
	URL      string // 目标URL
	Priority int    // 调度优先级,越大越先调度,可以为负
	Referer  string // 发现此请求的页面(可选)
	Meta     Meta   // 元数据,包含深度
}

// NewRequest 创建请求
func NewRequest(url string) *Request {
	return &Request{
		ID:  generateID(),
		URL: url,
	}
}

// String 实现fmt.Stringer
func (r *Request) String() string {
	return fmt.Sprintf("<GET %s>", r.URL)
}

// Response 抓取结果
type Response struct {
	URL     string
	Status  int
	Header  http.Header
	Body    []byte
	Meta    Meta     // 从产生它的请求复制
	Request *Request // 产生此响应的请求
}

// NewResponse 根据请求创建响应,元数据从请求复制
func NewResponse(req *Request, status int, body []byte) *Response {
	return &Response{
		URL:     req.URL,
		Status:  status,
		Header:  make(http.Header),
		Body:    body,
		Meta:    req.Meta.Clone(),
		Request: req,
	}
}

// String 实现fmt.Stringer
func (r *Response) String() string {
	return fmt.Sprintf("<%d %s>", r.Status, r.URL)
}
