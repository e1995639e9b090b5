package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"resume-enhancer/internal/api/handler"
)

// Handlers 路由依赖的全部处理器
type Handlers struct {
	Resume   *handler.ResumeHandler
	Snapshot *handler.SnapshotHandler
	Settings *handler.SettingsHandler
	Health   *handler.HealthHandler
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, hs Handlers) {
	// 快照接口沿用前端已有的路径
	files := h.Group("/api/json-files")
	files.GET("", hs.Snapshot.HandleList)
	files.GET("/:name", hs.Snapshot.HandleGet)
	files.POST("", hs.Snapshot.HandleSave)

	api := h.Group("/api/v1")
	api.GET("/health", hs.Health.Handle)

	resume := api.Group("/resume")
	resume.POST("/enhance", hs.Resume.HandleEnhance)
	resume.GET("/status", hs.Resume.HandleStatus)
	resume.POST("/render", hs.Resume.HandleRender)

	api.GET("/providers/ollama/models", hs.Resume.HandleOllamaModels)

	settings := api.Group("/settings")
	settings.GET("/provider", hs.Settings.GetProvider)
	settings.PUT("/provider", hs.Settings.PutProvider)
	settings.GET("/resume-config", hs.Settings.GetRenderConfig)
	settings.PUT("/resume-config", hs.Settings.PutRenderConfig)
	settings.GET("/job-title", hs.Settings.GetJobTitle)
	settings.PUT("/job-title", hs.Settings.PutJobTitle)
	settings.GET("/selected-file", hs.Settings.GetSelectedFile)
	settings.PUT("/selected-file", hs.Settings.PutSelectedFile)
}
