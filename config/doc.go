// Package config 提供 stockpile 的配置管理功能。
//
// 包含配置加载、默认值、客户端列表解析和配置文件变更监听。
// 支持从 YAML 文件和环境变量加载配置，
// 并在文件变更时重新加载。
package config
