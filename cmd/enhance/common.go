package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/logger"
	"resume-enhancer/internal/parser"
	"resume-enhancer/internal/types"
	"resume-enhancer/internal/validator"
)

// loadConfig 命令行工具默认输出 pretty 日志
func loadConfig() *config.Config {
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if cfg.Logger.Format == "json" {
		cfg.Logger.Format = "pretty"
	}
	if _, err := logger.Init(cfg.Logger); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// readUpload 读取本地文件，MIME 由内容嗅探得到
func readUpload(path string) *types.UploadedFile {
	if path == "" {
		fmt.Println("错误: 必须提供简历文件路径。使用 --file 参数。")
		os.Exit(1)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		fmt.Printf("无法获取文件的绝对路径: %v\n", err)
		os.Exit(1)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		fmt.Printf("无法读取文件 %s: %v\n", absPath, err)
		os.Exit(1)
	}
	return &types.UploadedFile{
		Data:         data,
		DeclaredType: validator.SniffType(data),
		Filename:     filepath.Base(absPath),
		Size:         int64(len(data)),
	}
}

func newExtractor(ctx context.Context, cfg *config.Config) *parser.Extractor {
	pdfText, err := parser.NewEinoPDFTextExtractor(ctx)
	if err != nil {
		fmt.Printf("创建PDF提取器失败: %v\n", err)
		os.Exit(1)
	}
	return parser.NewExtractor(pdfText, parser.DocxTextExtractor{}, parser.NewRasterizer(
		parser.WithPdftoppm(cfg.Rasterizer.PdftoppmPath),
		parser.WithTempDir(cfg.Rasterizer.TempDir),
		parser.WithRasterTimeout(config.GetDuration(cfg.Rasterizer.Timeout, time.Minute)),
	))
}

func clip(s string) string {
	if *maxLen >= 0 && len([]rune(s)) > *maxLen {
		return string([]rune(s)[:*maxLen]) + "...(已截断，使用 --maxlen 参数显示更多)"
	}
	return s
}

func writeOutput(path string, data []byte) {
	if path == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Printf("保存到文件失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("已保存到: %s\n", path)
}
