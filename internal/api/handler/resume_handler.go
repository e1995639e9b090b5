package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/constants"
	"resume-enhancer/internal/enhancer"
	"resume-enhancer/internal/logger"
	"resume-enhancer/internal/processor"
	"resume-enhancer/internal/render"
	"resume-enhancer/internal/types"
	"resume-enhancer/internal/validator"
)

// Pipeline 简历处理流水线
type Pipeline interface {
	Process(ctx context.Context, file *types.UploadedFile, jobTitle string) (processor.Status, error)
	Status() processor.Status
}

// ResumeRenderer 预览与导出
type ResumeRenderer interface {
	HTML(ctx context.Context, data *types.CanonicalResumeData) ([]byte, error)
	PDF(ctx context.Context, data *types.CanonicalResumeData) ([]byte, error)
}

// ModelLister 列出本地 Ollama 模型
type ModelLister interface {
	ListOllamaModels(ctx context.Context, endpoint string) ([]enhancer.ModelInfo, error)
}

// ResumeHandler 简历增强与渲染接口
type ResumeHandler struct {
	pipeline Pipeline
	renderer ResumeRenderer
	models   ModelLister
	state    config.Repository
}

// NewResumeHandler 创建一个新的简历处理器
func NewResumeHandler(pipeline Pipeline, renderer ResumeRenderer, models ModelLister, state config.Repository) *ResumeHandler {
	return &ResumeHandler{
		pipeline: pipeline,
		renderer: renderer,
		models:   models,
		state:    state,
	}
}

// HandleEnhance 接收 multipart 上传并同步执行流水线
func (h *ResumeHandler) HandleEnhance(ctx context.Context, c *app.RequestContext) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到", "kind": processor.KindValidation})
		return
	}
	if fileHeader.Size > constants.MaxUploadBytes {
		c.JSON(consts.StatusBadRequest, utils.H{
			"error": fmt.Sprintf("file size %d bytes exceeds the %d MB limit", fileHeader.Size, constants.MaxUploadBytes/(1024*1024)),
			"kind":  processor.KindValidation,
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, constants.MaxUploadBytes+1))
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "读取文件失败"})
		return
	}

	declared := fileHeader.Header.Get("Content-Type")
	if validator.IsGenericType(declared) {
		declared = validator.SniffType(data)
	}
	upload := &types.UploadedFile{
		Data:         data,
		DeclaredType: declared,
		Filename:     filepath.Base(fileHeader.Filename),
		Size:         int64(len(data)),
	}

	jobTitle := strings.TrimSpace(c.PostForm("job_title"))
	if jobTitle != "" {
		if err := h.state.SaveJobTitle(ctx, jobTitle); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("保存职位名称失败")
		}
	}

	status, err := h.pipeline.Process(ctx, upload, jobTitle)
	if err != nil {
		msg := status.Error
		if errors.Is(err, processor.ErrSuperseded) || msg == "" {
			msg = err.Error()
		}
		c.JSON(processor.HTTPStatus(err), utils.H{
			"error":  msg,
			"kind":   processor.KindOf(err),
			"status": status,
		})
		return
	}
	c.JSON(consts.StatusOK, status)
}

// HandleStatus 返回当前运行状态
func (h *ResumeHandler) HandleStatus(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, h.pipeline.Status())
}

// HandleRender 把规范化简历渲染为 PDF，format=html 时返回预览
func (h *ResumeHandler) HandleRender(ctx context.Context, c *app.RequestContext) {
	data, err := render.DecodeResume(c.Request.Body())
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}

	if strings.EqualFold(c.Query("format"), "html") {
		html, err := h.renderer.HTML(ctx, data)
		if err != nil {
			c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		c.Data(consts.StatusOK, "text/html; charset=utf-8", html)
		return
	}

	pdf, err := h.renderer.PDF(ctx, data)
	if errors.Is(err, render.ErrPDFUnavailable) {
		c.JSON(consts.StatusServiceUnavailable, utils.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, pdfFilename(data.PersonalInfo.Name)))
	c.Data(consts.StatusOK, "application/pdf", pdf)
}

// HandleOllamaModels 未指定 endpoint 时使用已保存的地址
func (h *ResumeHandler) HandleOllamaModels(ctx context.Context, c *app.RequestContext) {
	endpoint := strings.TrimSpace(c.Query("endpoint"))
	if endpoint == "" {
		cfg, err := h.state.LoadProviderConfig(ctx)
		if err != nil {
			c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		endpoint = cfg.Endpoint()
	}

	models, err := h.models.ListOllamaModels(ctx, endpoint)
	if err != nil {
		c.JSON(consts.StatusBadGateway, utils.H{"error": err.Error(), "endpoint": endpoint})
		return
	}
	c.JSON(consts.StatusOK, utils.H{"endpoint": endpoint, "models": models})
}

func pdfFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20, strings.ContainsRune(`"\/:*?<>|`, r):
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(name))
	if name == "" {
		name = "resume"
	}
	return name + ".pdf"
}
