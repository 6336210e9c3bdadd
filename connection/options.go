package connection

import "strconv"

// OptionNarrow 选项包中由 Manager 自己消费的宽度键，值为 bool
const OptionNarrow = "narrow"

// Options 透传给 Backend 的开放选项包
type Options map[string]any

// Clone 返回浅拷贝，nil 返回空 Options
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Merge 返回 o 与 over 合并后的新选项包，over 覆盖 o
func (o Options) Merge(over Options) Options {
	out := o.Clone()
	for k, v := range over {
		out[k] = v
	}
	return out
}

// String 读取字符串选项
func (o Options) String(key string) (string, bool) {
	v, ok := o[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// Int 读取整数选项，支持数字字符串
func (o Options) Int(key string) (int, bool) {
	v, ok := o[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Bool 读取布尔选项
func (o Options) Bool(key string) (bool, bool) {
	v, ok := o[key]
	if !ok || v == nil {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, false
		}
		return parsed, true
	default:
		return false, false
	}
}
