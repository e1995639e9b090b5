package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"resume-enhancer/internal/api/handler"
	"resume-enhancer/internal/api/router"
	"resume-enhancer/internal/config"
	"resume-enhancer/internal/enhancer"
	"resume-enhancer/internal/logger"
	"resume-enhancer/internal/parser"
	"resume-enhancer/internal/processor"
	"resume-enhancer/internal/render"
	"resume-enhancer/internal/storage"
	"resume-enhancer/internal/tracing"
)

var (
	version     = "1.0.0"           //nolint:gochecknoglobals
	serviceName = "resume-enhancer" //nolint:gochecknoglobals
)

func main() {
	var (
		configPath  string
		writeSample string
	)
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.StringVar(&writeSample, "write-sample-config", "", "Write a sample config to the given path and exit")
	pflag.Parse()

	if writeSample != "" {
		if err := config.CreateSampleConfig(writeSample); err != nil {
			glog.Fatalf("生成示例配置失败: %v", err)
		}
		glog.Infof("示例配置已写入 %s", writeSample)
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	logCloser, err := logger.Init(cfg.Logger)
	if err != nil {
		glog.Fatalf("初始化日志失败: %v", err)
	}
	defer logCloser.Close()
	logger.Info().Str("service", serviceName).Str("version", version).Msg("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracer, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		glog.Fatalf("初始化链路追踪失败: %v", err)
	}

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()

	renderDefaults, err := render.LoadDefaults(cfg.Render.DefaultsFile)
	if err != nil {
		glog.Fatalf("加载简历展示配置模板失败: %v", err)
	}
	state := config.NewStateRepository(storageManager.State, cfg.DefaultProviderConfig(), renderDefaults)

	pdfText, err := parser.NewEinoPDFTextExtractor(ctx)
	if err != nil {
		glog.Fatalf("创建PDF文本提取器失败: %v", err)
	}
	extractor := parser.NewExtractor(pdfText, parser.DocxTextExtractor{}, parser.NewRasterizer(
		parser.WithPdftoppm(cfg.Rasterizer.PdftoppmPath),
		parser.WithTempDir(cfg.Rasterizer.TempDir),
		parser.WithRasterTimeout(config.GetDuration(cfg.Rasterizer.Timeout, time.Minute)),
	))

	orchestrator := enhancer.NewFromConfig(cfg.Providers)
	resumeProcessor := processor.NewResumeProcessor(extractor, orchestrator, state)
	renderer := render.NewRenderer(state, render.NewChromedpPrinter(cfg.Render.ChromePath, config.GetDuration(cfg.Render.Timeout, 0)))

	checks := map[string]handler.HealthCheck{
		"snapshots": func(ctx context.Context) error {
			_, err := storageManager.Snapshots.List(ctx)
			return err
		},
	}
	if p, ok := storageManager.State.(interface{ Ping(context.Context) error }); ok {
		checks["state"] = p.Ping
	}

	serverTracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(cfg.Server.MaxRequestBodyMB*1024*1024),
		serverTracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		logger.Ctx(c).Info().
			Str("method", string(ctx.Method())).
			Str("path", string(ctx.Path())).
			Int("status", ctx.Response.StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("请求完成")
	})

	router.RegisterRoutes(h, router.Handlers{
		Resume:   handler.NewResumeHandler(resumeProcessor, renderer, orchestrator, state),
		Snapshot: handler.NewSnapshotHandler(storageManager.Snapshots),
		Settings: handler.NewSettingsHandler(state),
		Health:   handler.NewHealthHandler(checks),
	})
	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	// 先取消进行中的运行
	resumeProcessor.Cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		glog.Warnf("关闭链路追踪失败: %v", err)
	}
	glog.Info("优雅退出完成")
}
