// config.go - 寄存器分配上下文的可调参数
//
// 和 internal/pkg 里其余工具链组件一样，配置以 TOML 文件的形式
// 加载，用 github.com/pelletier/go-toml/v2 解析成一个普通结构体。

package regalloc

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config 收纳了 Context 的全部可调参数。
type Config struct {
	Regalloc regallocConfig `toml:"regalloc"`
}

type regallocConfig struct {
	// ZoneChunkSize 是区域分配器每块的字节数，<=0 使用内置默认值。
	ZoneChunkSize int `toml:"zone_chunk_size"`
	// MaxZoneBytes 是一次 compile() 调用允许分配的总字节上限，
	// 0 表示不限制。
	MaxZoneBytes int `toml:"max_zone_bytes"`
	// AnnotateByDefault 控制未显式传入 logger 时是否仍然生成
	// 内联注释（供离线工具复用 FormatInlineComment）。
	AnnotateByDefault bool `toml:"annotate_by_default"`
}

// DefaultConfig 返回开箱即用的默认配置。
func DefaultConfig() *Config {
	return &Config{
		Regalloc: regallocConfig{
			ZoneChunkSize:     defaultZoneChunkSize,
			MaxZoneBytes:      0,
			AnnotateByDefault: false,
		},
	}
}

// LoadConfig 从 path 读取并解析一个 `[regalloc]` TOML 配置表，
// 缺省字段保留 DefaultConfig 的取值。
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regalloc config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse regalloc config file: %w", err)
	}
	return cfg, nil
}
