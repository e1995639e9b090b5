package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/enhancer"
	"resume-enhancer/internal/processor"
	"resume-enhancer/internal/render"
	"resume-enhancer/internal/storage"
)

// overrideState 命令行指定的提供方与模型只在本次运行生效，不写回状态
type overrideState struct {
	config.Repository
	provider string
	model    string
}

func (s overrideState) LoadProviderConfig(ctx context.Context) (config.AIProviderConfig, error) {
	cfg, err := s.Repository.LoadProviderConfig(ctx)
	if err != nil {
		return cfg, err
	}
	if s.provider != "" {
		p, ok := config.ParseProvider(s.provider)
		if !ok {
			return cfg, fmt.Errorf("%w: %q", config.ErrUnknownProvider, s.provider)
		}
		cfg.Provider = p
	}
	if s.model != "" {
		if cfg.Models == nil {
			cfg.Models = map[config.Provider]string{}
		}
		cfg.Models[cfg.Provider] = s.model
	}
	return cfg, nil
}

// 执行完整流水线并输出规范化 JSON
func handleEnhanceCommand() {
	cfg := loadConfig()
	file := readUpload(*inputFile)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	st, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		fmt.Printf("初始化存储失败: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	renderDefaults, err := render.LoadDefaults(cfg.Render.DefaultsFile)
	if err != nil {
		fmt.Printf("加载简历展示配置模板失败: %v\n", err)
		os.Exit(1)
	}
	state := overrideState{
		Repository: config.NewStateRepository(st.State, cfg.DefaultProviderConfig(), renderDefaults),
		provider:   *provider,
		model:      *model,
	}

	proc := processor.NewResumeProcessor(newExtractor(ctx, cfg), enhancer.NewFromConfig(cfg.Providers), state)

	start := time.Now()
	status, err := proc.Process(ctx, file, *jobTitle)
	if err != nil {
		fmt.Printf("处理失败 [%s]: %v\n", processor.KindOf(err), err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "处理完成! 提供方: %s，模型: %s，视觉模式: %t，耗时: %v\n",
		status.Provider, status.Model, status.VisionMode, time.Since(start))

	out, err := json.MarshalIndent(status.Result, "", "  ")
	if err != nil {
		fmt.Printf("序列化结果失败: %v\n", err)
		os.Exit(1)
	}
	writeOutput(*outputFile, out)

	if *snapshot != "" {
		name, err := st.Snapshots.Save(ctx, *snapshot, out)
		if err != nil {
			fmt.Printf("保存快照失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "快照已保存为 %s\n", name)
	}
}
