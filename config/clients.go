package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/stockpile/connection"
)

// ClientList 配置中的客户端列表。YAML 中每一项可以是客户端名，
// 也可以是 {name: options} 映射；顶层也可以直接写成映射。
//
//	clients:
//	  - rollout
//	  - stats: {db: 2}
type ClientList []connection.ClientSpec

// UnmarshalYAML 解析字符串、映射或二者混合的序列
func (l *ClientList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = ClientList{connection.Name(node.Value)}
		return nil

	case yaml.MappingNode:
		spec, err := decodeClientSpec(node)
		if err != nil {
			return err
		}
		*l = ClientList{spec}
		return nil

	case yaml.SequenceNode:
		out := make(ClientList, 0, len(node.Content))
		for _, item := range node.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				out = append(out, connection.Name(item.Value))
			case yaml.MappingNode:
				spec, err := decodeClientSpec(item)
				if err != nil {
					return err
				}
				out = append(out, spec)
			default:
				return fmt.Errorf("line %d: client entry must be a name or a mapping", item.Line)
			}
		}
		*l = out
		return nil
	}

	return fmt.Errorf("line %d: clients must be a list or a mapping", node.Line)
}

// DecodeEnv 解析逗号分隔的客户端名
func (l *ClientList) DecodeEnv(value string) error {
	*l = ClientList(connection.Names(splitList(value)...))
	return nil
}

// Names 返回归一化后的客户端名
func (l ClientList) Names() []string {
	return connection.Normalize(l...).Names()
}

func decodeClientSpec(node *yaml.Node) (connection.ClientSpec, error) {
	var raw map[string]map[string]any
	if err := node.Decode(&raw); err != nil {
		return nil, fmt.Errorf("line %d: invalid client options: %w", node.Line, err)
	}
	spec := make(connection.ClientSpec, len(raw))
	for name, opts := range raw {
		spec[name] = connection.Options(opts)
	}
	return spec, nil
}
