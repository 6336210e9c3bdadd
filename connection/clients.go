package connection

import "sort"

// All 通配客户端名，永远不能作为可创建的客户端
const All = "all"

// ClientSpec 一个客户端参数：客户端名到选项的映射。
// 裸名写作值为 nil 的单元素映射，见 Name。
type ClientSpec map[string]Options

// Name 以裸名构造 ClientSpec
func Name(name string) ClientSpec {
	return ClientSpec{name: nil}
}

// Names 以多个裸名构造 ClientSpec 列表
func Names(names ...string) []ClientSpec {
	specs := make([]ClientSpec, 0, len(names))
	for _, n := range names {
		specs = append(specs, Name(n))
	}
	return specs
}

// IsWildcard 判断参数是否恰好是单独的 All
func IsWildcard(specs []ClientSpec) bool {
	if len(specs) != 1 || len(specs[0]) != 1 {
		return false
	}
	_, ok := specs[0][All]
	return ok
}

// ClientSet 规范化后的客户端集合，保留首次出现的顺序
type ClientSet struct {
	order []string
	opts  map[string]Options
}

// Normalize 将混合参数规范化为 名称 → 选项 的映射。
//
//	Normalize(Name("a"), ClientSpec{"b": {"x": 1}}, ClientSpec{"a": {"y": 2}})
//	// => {a: {y: 2}, b: {x: 1}}
//
// 从左到右合并，键冲突时后者覆盖前者；nil 选项变为空 Options。
// 单个 ClientSpec 内的多个键按名称排序。Normalize 不特殊处理 All。
func Normalize(specs ...ClientSpec) ClientSet {
	set := ClientSet{opts: make(map[string]Options)}

	for _, spec := range specs {
		keys := make([]string, 0, len(spec))
		for name := range spec {
			keys = append(keys, name)
		}
		sort.Strings(keys)

		for _, name := range keys {
			opts := spec[name]
			if opts == nil {
				opts = Options{}
			}
			if _, seen := set.opts[name]; !seen {
				set.order = append(set.order, name)
			}
			set.opts[name] = opts
		}
	}

	return set
}

// Names 按首次出现顺序返回客户端名
func (s ClientSet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Options 返回客户端的选项，不存在时返回空 Options
func (s ClientSet) Options(name string) Options {
	if opts, ok := s.opts[name]; ok {
		return opts
	}
	return Options{}
}

// Has 是否包含客户端名
func (s ClientSet) Has(name string) bool {
	_, ok := s.opts[name]
	return ok
}

// Len 客户端数量
func (s ClientSet) Len() int {
	return len(s.order)
}

// Map 返回 名称 → 选项 的拷贝
func (s ClientSet) Map() map[string]Options {
	out := make(map[string]Options, len(s.opts))
	for k, v := range s.opts {
		out[k] = v
	}
	return out
}
