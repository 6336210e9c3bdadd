package connection

import "os"

// WidthEnvKey 控制进程级默认连接宽度的环境变量
const WidthEnvKey = "STOCKPILE_CONNECTION_WIDTH"

// Width 连接宽度
type Width int

const (
	// WidthDefault 未显式指定，构造时从环境变量解析
	WidthDefault Width = iota
	// Wide 每个命名客户端独立连接
	Wide
	// Narrow 所有命名客户端共享主连接
	Narrow
)

// String 返回宽度名称
func (w Width) String() string {
	switch w {
	case Narrow:
		return "narrow"
	case Wide:
		return "wide"
	default:
		return "default"
	}
}

// ParseWidth 解析宽度字符串，"narrow" 为 Narrow，其它任何值均为 Wide
func ParseWidth(s string) Width {
	if s == "narrow" {
		return Narrow
	}
	return Wide
}

// DefaultWidth 读取 STOCKPILE_CONNECTION_WIDTH 得到默认宽度
func DefaultWidth() Width {
	return ParseWidth(os.Getenv(WidthEnvKey))
}

// resolve 将 WidthDefault 解析为具体宽度
func (w Width) resolve() Width {
	if w == WidthDefault {
		return DefaultWidth()
	}
	return w
}
