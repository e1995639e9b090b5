package handler

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-enhancer/internal/config"
	"resume-enhancer/internal/render"
	"resume-enhancer/internal/storage"
	"resume-enhancer/internal/types"
)

// SettingsHandler 客户端状态的读写，只通过显式的保存操作修改
type SettingsHandler struct {
	state config.Repository
}

func NewSettingsHandler(state config.Repository) *SettingsHandler {
	return &SettingsHandler{state: state}
}

// GetProvider 返回当前提供方配置，密钥只显示是否已设置
func (h *SettingsHandler) GetProvider(ctx context.Context, c *app.RequestContext) {
	cfg, err := h.state.LoadProviderConfig(ctx)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, providerView(cfg))
}

// PutProvider 接受新旧两种格式，保存时统一写为新格式
func (h *SettingsHandler) PutProvider(ctx context.Context, c *app.RequestContext) {
	incoming, err := config.DecodeProviderConfig(c.Request.Body())
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}
	current, err := h.state.LoadProviderConfig(ctx)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	// 未提交的密钥沿用已保存的值，前端拿到的是掩码；显式提交空字符串表示删除
	cleared := clearedAPIKeys(c.Request.Body())
	for p, key := range current.APIKeys {
		if _, ok := incoming.APIKeys[p]; ok || cleared[p] {
			continue
		}
		incoming.APIKeys[p] = key
	}
	if err := h.state.SaveProviderConfig(ctx, incoming); err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, providerView(incoming))
}

// clearedAPIKeys 找出 apiKeys 中出现但值为空的提供方。
// DecodeProviderConfig 会丢弃空值，这里需要回到原始请求体区分“未提交”与“清空”
func clearedAPIKeys(body []byte) map[config.Provider]bool {
	var raw struct {
		APIKeys map[string]string `json:"apiKeys"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	out := map[config.Provider]bool{}
	for k, v := range raw.APIKeys {
		if p, ok := config.ParseProvider(k); ok && strings.TrimSpace(v) == "" {
			out[p] = true
		}
	}
	return out
}

func providerView(cfg config.AIProviderConfig) utils.H {
	keys := make(map[config.Provider]bool, len(cfg.APIKeys))
	for p, k := range cfg.APIKeys {
		keys[p] = strings.TrimSpace(k) != ""
	}
	return utils.H{
		"provider":       cfg.Provider,
		"models":         cfg.Models,
		"ollamaEndpoint": cfg.Endpoint(),
		"apiKeysSet":     keys,
	}
}

// GetRenderConfig 返回展示配置
func (h *SettingsHandler) GetRenderConfig(ctx context.Context, c *app.RequestContext) {
	cfg, err := h.state.LoadRenderConfig(ctx)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, cfg)
}

// PutRenderConfig 校验后整体覆盖
func (h *SettingsHandler) PutRenderConfig(ctx context.Context, c *app.RequestContext) {
	var cfg types.ResumeRenderConfig
	if err := json.Unmarshal(c.Request.Body(), &cfg); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}
	if err := render.ValidateRenderConfig(cfg); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}
	if err := h.state.SaveRenderConfig(ctx, cfg); err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, cfg)
}

type jobTitleBody struct {
	JobTitle string `json:"jobTitle"`
}

func (h *SettingsHandler) GetJobTitle(ctx context.Context, c *app.RequestContext) {
	title, err := h.state.LoadJobTitle(ctx)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, jobTitleBody{JobTitle: title})
}

func (h *SettingsHandler) PutJobTitle(ctx context.Context, c *app.RequestContext) {
	var body jobTitleBody
	if err := json.Unmarshal(c.Request.Body(), &body); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}
	if err := h.state.SaveJobTitle(ctx, body.JobTitle); err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, jobTitleBody{JobTitle: strings.TrimSpace(body.JobTitle)})
}

type selectedFileBody struct {
	Filename string `json:"filename"`
}

func (h *SettingsHandler) GetSelectedFile(ctx context.Context, c *app.RequestContext) {
	name, err := h.state.LoadSelectedSnapshot(ctx)
	if err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, selectedFileBody{Filename: name})
}

// PutSelectedFile 空文件名表示清除选择
func (h *SettingsHandler) PutSelectedFile(ctx context.Context, c *app.RequestContext) {
	var body selectedFileBody
	if err := json.Unmarshal(c.Request.Body(), &body); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(body.Filename)
	if name != "" {
		normalized, err := storage.NormalizeSnapshotName(name)
		if err != nil {
			c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}
		name = normalized
	}
	if err := h.state.SaveSelectedSnapshot(ctx, name); err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, selectedFileBody{Filename: name})
}
