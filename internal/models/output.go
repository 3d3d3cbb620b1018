package models

import "iter"

// Output 页面解析后产出的候选结果
// 封闭的和类型,只有两种变体:
//   - *Request: 新发现的请求,需要经过深度过滤
//   - Item: 其他抓取数据,原样透传
type Output interface {
	isOutput()
}

func (*Request) isOutput() {}

// Item 非请求的抓取数据
type Item struct {
	Kind   string            `json:"kind"`             // 数据类型: title, script 等
	Value  string            `json:"value"`            // 数据内容
	Source string            `json:"source,omitempty"` // 来源页面URL
	Fields map[string]string `json:"fields,omitempty"` // 附加字段
}

func (Item) isOutput() {}

// Result 候选结果的惰性序列
// 每个元素要么是一个Output,要么是一个错误;消费者可以随时停止拉取。
type Result = iter.Seq2[Output, error]

// Outputs 用给定的候选结果构造序列
func Outputs(outs ...Output) Result {
	return func(yield func(Output, error) bool) {
		for _, o := range outs {
			if !yield(o, nil) {
				return
			}
		}
	}
}

// Empty 空序列
func Empty() Result {
	return func(func(Output, error) bool) {}
}

// Fail 只包含一个错误的序列
func Fail(err error) Result {
	return func(yield func(Output, error) bool) {
		yield(nil, err)
	}
}

// Collect 消费整个序列,遇到第一个错误时停止
func Collect(r Result) ([]Output, error) {
	var outs []Output
	if r == nil {
		return outs, nil
	}
	for o, err := range r {
		if err != nil {
			return outs, err
		}
		outs = append(outs, o)
	}
	return outs, nil
}
