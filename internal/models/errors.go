package models

import (
	"errors"
	"fmt"
)

// ErrInvalidOutput 输出不符合约定
// 表示协作组件的bug,任何中间件都不能在本地恢复,必须原样交给调用方。
var ErrInvalidOutput = errors.New("无效的输出")

// InvalidOutputError 输出约定违规的详细信息
type InvalidOutputError struct {
	Stage  string // 产生违规输出的组件
	Reason string // 违规原因
}

// Error 实现error接口
func (e *InvalidOutputError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%v: %s", ErrInvalidOutput, e.Reason)
	}
	return fmt.Sprintf("%v [%s]: %s", ErrInvalidOutput, e.Stage, e.Reason)
}

// Is 与ErrInvalidOutput匹配
func (e *InvalidOutputError) Is(target error) bool {
	return target == ErrInvalidOutput
}

// CheckOutput 检查单个候选结果是否符合约定
func CheckOutput(o Output) error {
	switch v := o.(type) {
	case nil:
		return &InvalidOutputError{Reason: "候选结果为nil"}
	case *Request:
		if v == nil {
			return &InvalidOutputError{Reason: "请求为nil"}
		}
		if v.URL == "" {
			return &InvalidOutputError{Reason: "请求缺少URL"}
		}
	}
	return nil
}

// PanicError 从panic恢复出的错误
type PanicError struct {
	Value any
}

// Error 实现error接口
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap panic值本身是error时返回它
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
