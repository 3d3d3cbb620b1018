package crawler

import (
	"container/heap"
	"context"
	"fmt"
	"sync"

	"github.com/RecoveryAshes/depthcrawl/internal/models"
)

// Frontier 待抓取请求队列
// 职责: 按优先级出队(优先级高的先出,相同优先级先进先出),
// 并跟踪正在处理的请求数,队列为空且没有请求在处理时爬取结束。
type Frontier struct {
	mu   sync.Mutex
	cond *sync.Cond

	// 待处理请求
	pending requestHeap

	// 入队序号,保证相同优先级时先进先出
	seq uint64

	// 已出队但尚未调用Done的请求数
	inflight int

	// 队列是否已关闭
	closed bool
}

// NewFrontier 创建请求队列
func NewFrontier() *Frontier {
	f := &Frontier{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Push 添加请求
func (f *Frontier) Push(req *models.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("队列已关闭")
	}

	f.seq++
	heap.Push(&f.pending, &queuedRequest{req: req, seq: f.seq})
	f.cond.Signal()
	return nil
}

// Pop 取出优先级最高的请求
// 队列为空但仍有请求在处理时阻塞等待;队列关闭、context取消、
// 或队列为空且没有请求在处理时返回 false。
// 每次成功Pop之后必须调用Done。
func (f *Frontier) Pop(ctx context.Context) (*models.Request, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.pending) == 0 && f.inflight > 0 && !f.closed && ctx.Err() == nil {
		f.cond.Wait()
	}

	if f.closed || ctx.Err() != nil || len(f.pending) == 0 {
		return nil, false
	}

	item := heap.Pop(&f.pending).(*queuedRequest)
	f.inflight++
	return item.req, true
}

// Done 标记一个已出队的请求处理完成
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inflight--
	f.cond.Broadcast()
}

// Close 关闭队列,唤醒所有等待的Pop
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.cond.Broadcast()
}

// Len 返回待处理请求数
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

type queuedRequest struct {
	req *models.Request
	seq uint64
}

// requestHeap 实现heap.Interface
type requestHeap []*queuedRequest

func (h requestHeap) Len() int { return len(h) }

func (h requestHeap) Less(i, j int) bool {
	if h[i].req.Priority != h[j].req.Priority {
		return h[i].req.Priority > h[j].req.Priority
	}
	return h[i].seq < h[j].seq
}

func (h requestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *requestHeap) Push(x any) {
	*h = append(*h, x.(*queuedRequest))
}

func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
