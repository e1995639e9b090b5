package parser

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Runner 执行外部命令，测试中可替换
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner 基于 os/exec 的默认实现
type ExecRunner struct {
	Log zerolog.Logger
}

// Run stderr 按行写入 warn 日志，已知噪音由日志层过滤
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	r.Log.Debug().Str("cmd_line", strings.Join(append([]string{name}, args...), " ")).Msg("running command")

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	sc := bufio.NewScanner(bytes.NewReader(errb.Bytes()))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			r.Log.Warn().Str("cmd", name).Msg(line)
		}
	}

	if err != nil {
		r.Log.Error().
			Err(err).
			Str("cmd", name).
			Int64("duration_ms", dur.Milliseconds()).
			Str("stderr", truncate(errb.String(), 8<<10)).
			Msg("exec failed")
	} else {
		r.Log.Debug().
			Str("cmd", name).
			Int64("duration_ms", dur.Milliseconds()).
			Int("stdout_bytes", out.Len()).
			Msg("exec ok")
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
