package models

// Meta 请求/响应携带的元数据
//
// depth 是显式字段而不是 map 中的一个键:
//   - 入口响应在进入深度中间件之前没有深度
//   - 其余实体的深度由中间件写入
//
// Values 保存与深度无关的附加键值,供其他组件使用。
type Meta struct {
	depth    int
	hasDepth bool

	Values map[string]string
}

// Depth 返回深度以及是否已设置
func (m *Meta) Depth() (int, bool) {
	return m.depth, m.hasDepth
}

// HasDepth 是否已设置深度
func (m *Meta) HasDepth() bool {
	return m.hasDepth
}

// SetDepth 设置深度
func (m *Meta) SetDepth(depth int) {
	m.depth = depth
	m.hasDepth = true
}

// Get 读取附加值
func (m *Meta) Get(key string) (string, bool) {
	v, ok := m.Values[key]
	return v, ok
}

// Set 写入附加值
func (m *Meta) Set(key, value string) {
	if m.Values == nil {
		m.Values = make(map[string]string)
	}
	m.Values[key] = value
}

// Clone 深拷贝元数据,响应从请求继承元数据时使用
func (m Meta) Clone() Meta {
	out := Meta{depth: m.depth, hasDepth: m.hasDepth}
	if len(m.Values) > 0 {
		out.Values = make(map[string]string, len(m.Values))
		for k, v := range m.Values {
			out.Values[k] = v
		}
	}
	return out
}
