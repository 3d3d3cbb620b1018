// Package middleware 实现抓取结果处理链
//
// 每个中间件实现 Handler:接收一个数据包(响应、错误信号或其他事件)、
// 会话以及与响应关联的候选结果序列,然后把(可能被过滤的)序列交给
// 下一个中间件;最后一个中间件直接返回序列,由调用方消费。
//
// 候选结果序列是惰性的:中间件只包装序列,不提前消费。
// 调用方提前停止拉取时,后续元素的过滤及其副作用都不会发生。
package middleware

import (
	"errors"

	"github.com/RecoveryAshes/depthcrawl/internal/models"
)

// ScrapeFunc 错误恢复入口
// 接收捕获的错误信号,返回替代的候选结果(可以为空)。
type ScrapeFunc func(fault *models.Fault) models.Result

// Handler 中间件接口
type Handler interface {
	// Handle 处理数据包;result 仅在数据包为响应时有意义
	Handle(packet models.Packet, spider *models.Spider, result models.Result) models.Result

	// SetNext 设置下一个中间件,nil表示当前为最后一个
	SetNext(next Handler)

	// SetScrapeFunc 设置错误恢复入口
	SetScrapeFunc(fn ScrapeFunc)
}

// Base 中间件公共部分,嵌入到具体中间件中
type Base struct {
	next   Handler
	scrape ScrapeFunc
}

// SetNext 实现Handler
func (b *Base) SetNext(next Handler) {
	b.next = next
}

// Next 返回下一个中间件
func (b *Base) Next() Handler {
	return b.next
}

// SetScrapeFunc 实现Handler
func (b *Base) SetScrapeFunc(fn ScrapeFunc) {
	b.scrape = fn
}

// Forward 交给下一个中间件,没有下一个时直接返回结果
func (b *Base) Forward(packet models.Packet, spider *models.Spider, result models.Result) models.Result {
	if b.next != nil {
		return b.next.Handle(packet, spider, result)
	}
	return result
}

// Scrape 把错误信号交给恢复入口
// 未设置恢复入口时,错误信号本身作为序列中的错误交给调用方。
func (b *Base) Scrape(fault *models.Fault) models.Result {
	if b.scrape == nil {
		return models.Fail(fault)
	}
	return b.scrape(fault)
}

// isContractViolation 输出约定违规永远不在本地恢复
func isContractViolation(err error) bool {
	return errors.Is(err, models.ErrInvalidOutput)
}

// capture 执行fn,把panic转换为错误返回
// panic值是约定违规错误时保持原样,便于调用方识别。
func capture(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicToError(r)
		}
	}()
	fn()
	return nil
}

func panicToError(r any) error {
	if err, ok := r.(error); ok && isContractViolation(err) {
		return err
	}
	return &models.PanicError{Value: r}
}
