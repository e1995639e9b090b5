package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/render"
	"resume-enhancer/internal/types"
)

// staticRenderConfig 命令行渲染只使用模板配置，不读客户端状态
type staticRenderConfig types.ResumeRenderConfig

func (c staticRenderConfig) LoadRenderConfig(context.Context) (types.ResumeRenderConfig, error) {
	return types.ResumeRenderConfig(c), nil
}

// 把规范化 JSON 渲染为 PDF 或 HTML
func handleRenderCommand() {
	cfg := loadConfig()
	if *outputFile == "" && !strings.EqualFold(*format, "html") {
		fmt.Println("错误: PDF 输出需要 --out 参数")
		os.Exit(1)
	}
	if *inputFile == "" {
		fmt.Println("错误: 必须提供规范化简历 JSON 路径。使用 --file 参数。")
		os.Exit(1)
	}
	raw, err := os.ReadFile(*inputFile)
	if err != nil {
		fmt.Printf("读取文件失败: %v\n", err)
		os.Exit(1)
	}
	data, err := render.DecodeResume(raw)
	if err != nil {
		fmt.Printf("简历数据无效: %v\n", err)
		os.Exit(1)
	}
	renderCfg, err := render.LoadDefaults(cfg.Render.DefaultsFile)
	if err != nil {
		fmt.Printf("加载简历展示配置模板失败: %v\n", err)
		os.Exit(1)
	}

	timeout := config.GetDuration(cfg.Render.Timeout, 0)
	r := render.NewRenderer(staticRenderConfig(renderCfg), render.NewChromedpPrinter(cfg.Render.ChromePath, timeout))

	ctx := context.Background()
	var out []byte
	if strings.EqualFold(*format, "html") {
		out, err = r.HTML(ctx, data)
	} else {
		out, err = r.PDF(ctx, data)
	}
	if err != nil {
		fmt.Printf("渲染失败: %v\n", err)
		os.Exit(1)
	}
	writeOutput(*outputFile, out)
}
