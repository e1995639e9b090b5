package logger

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
)

// DefaultNoisePatterns 已知无害的告警，只用于减少日志噪音。
// 过滤只作用于日志输出，不影响任何流程控制或返回给用户的错误。
var DefaultNoisePatterns = []string{
	"*Warning: TT: undefined function*",
	"*Warning: Indexing all PDF objects*",
	"*Warning: Setting up fake worker*",
	"*Syntax Warning: Invalid Font Weight*",
	"*Syntax Warning: Unknown character collection*",
	"*Config Error: No display font for*",
}

// NoiseFilter 丢弃 message 字段匹配任一模式的日志事件
type NoiseFilter struct {
	out      zerolog.LevelWriter
	patterns []glob.Glob
}

// NewNoiseFilter 编译模式列表，out 为最终输出
func NewNoiseFilter(out io.Writer, patterns []string) (*NoiseFilter, error) {
	f := &NoiseFilter{out: levelWriter(out)}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("编译日志过滤模式 %q 失败: %w", p, err)
		}
		f.patterns = append(f.patterns, g)
	}
	return f, nil
}

// IsNoise 判断一段文本是否属于已知噪音
func (f *NoiseFilter) IsNoise(msg string) bool {
	if msg == "" {
		return false
	}
	for _, g := range f.patterns {
		if g.Match(msg) {
			return true
		}
	}
	return false
}

func (f *NoiseFilter) Write(p []byte) (int, error) {
	if f.IsNoise(messageOf(p)) {
		return len(p), nil
	}
	return f.out.Write(p)
}

// WriteLevel 实现 zerolog.LevelWriter，保留下游按级别分流的能力
func (f *NoiseFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if f.IsNoise(messageOf(p)) {
		return len(p), nil
	}
	return f.out.WriteLevel(level, p)
}

func messageOf(p []byte) string {
	var event struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(p, &event); err != nil {
		return string(p)
	}
	return event.Message
}

type levelAdapter struct {
	io.Writer
}

func (l levelAdapter) WriteLevel(_ zerolog.Level, p []byte) (int, error) {
	return l.Write(p)
}

func levelWriter(w io.Writer) zerolog.LevelWriter {
	if lw, ok := w.(zerolog.LevelWriter); ok {
		return lw
	}
	return levelAdapter{w}
}
