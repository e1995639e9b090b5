package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"resume-enhancer/internal/capability"
	"resume-enhancer/internal/validator"
)

// 只做校验与提取，不调用模型
func handleExtractCommand() {
	cfg := loadConfig()
	file := readUpload(*inputFile)

	res := validator.Validate(validator.FileMeta{Size: file.Size, DeclaredType: file.DeclaredType, Filename: file.Filename})
	if !res.Valid {
		fmt.Printf("文件校验失败: %s\n", res.Error)
		os.Exit(1)
	}

	prov := *provider
	if prov == "" {
		prov = cfg.Providers.Default
	}
	// 按提供方与模型的能力决定文本或视觉模式
	verdict := capability.Classify(prov, *model)
	fmt.Printf("文件: %s (%s)，视觉模式: %t，缩放: %.1f，最多页数: %d\n",
		file.Filename, res.FileType, verdict.SupportsVision, verdict.Scale, verdict.MaxPages)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	doc, err := newExtractor(ctx, cfg).Extract(ctx, file, res.FileType, verdict)
	if err != nil {
		fmt.Printf("提取失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("提取完成! 耗时: %v\n", time.Since(start))

	if doc.IsVisionMode {
		fmt.Printf("\n===== 页面图片 (共 %d 张) =====\n", len(doc.Images))
		for i := range doc.Images {
			fmt.Printf("  第 %d 页: %s, %d 字节 (base64)\n", i+1, doc.MediaTypeAt(i), len(doc.Images[i]))
		}
		return
	}
	fmt.Printf("\n===== 提取的文本 (总计 %d 字符) =====\n", len([]rune(doc.Text)))
	fmt.Println(clip(doc.Text))
}
