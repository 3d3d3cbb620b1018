package models

import (
	"errors"
	"fmt"
	"path"
	"reflect"
)

// Packet 在中间件链中流动的数据包
// 变体: *Response, *Fault, Event
type Packet interface {
	isPacket()
}

func (*Response) isPacket() {}
func (*Fault) isPacket()    {}
func (Event) isPacket()     {}

// Event 其他管道事件,例如会话开始/结束
type Event struct {
	Name string
}

// 内置事件
var (
	EventSpiderOpened = Event{Name: "spider_opened"}
	EventSpiderClosed = Event{Name: "spider_closed"}
)

// Fault 捕获的错误,携带出错时正在处理的数据包和会话
type Fault struct {
	Err    error
	Packet Packet
	Spider *Spider
}

// NewFault 创建错误信号
func NewFault(err error, packet Packet, spider *Spider) *Fault {
	return &Fault{Err: err, Packet: packet, Spider: spider}
}

// Error 实现error接口
func (f *Fault) Error() string {
	return fmt.Sprintf("处理 %v 时出错: %v", f.Packet, f.Err)
}

// Unwrap 支持errors.Is/As
func (f *Fault) Unwrap() error {
	return f.Err
}

// Kind 返回错误种类,用于统计键
//   - 最内层错误的类型名,去掉指针和包路径,例如 "url.Error"、"InvalidOutputError"
//   - errors.New / fmt.Errorf 产生的普通错误为 "error"
//   - 由panic转换的错误带 "panic/" 前缀,例如 "panic/string"、"panic/error"
func (f *Fault) Kind() string {
	if f.Err == nil {
		return "unknown"
	}

	panicked := false
	err := f.Err
	for {
		if p, ok := err.(*PanicError); ok {
			panicked = true
			if _, isErr := p.Value.(error); !isErr {
				return "panic/" + typeName(p.Value)
			}
		}
		inner := errors.Unwrap(err)
		if inner == nil {
			break
		}
		err = inner
	}

	if panicked {
		return "panic/" + typeName(err)
	}
	return typeName(err)
}

var modelsPkg = reflect.TypeOf(Fault{}).PkgPath()

// typeName 去掉指针和包路径的类型名
// 标准库 errors/fmt 的内部错误类型统一为 "error"。
func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "unknown"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.Kind().String()
	}

	switch pkg := t.PkgPath(); pkg {
	case "errors", "fmt":
		return "error"
	case "", modelsPkg:
		return t.Name()
	default:
		return path.Base(pkg) + "." + t.Name()
	}
}
