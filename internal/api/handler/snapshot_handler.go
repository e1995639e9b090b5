package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"resume-enhancer/internal/logger"
	"resume-enhancer/internal/storage"
)

// SnapshotHandler 已保存简历 JSON 的读写
type SnapshotHandler struct {
	store storage.SnapshotStore
}

func NewSnapshotHandler(store storage.SnapshotStore) *SnapshotHandler {
	return &SnapshotHandler{store: store}
}

type saveSnapshotRequest struct {
	Filename string          `json:"filename"`
	Data     json.RawMessage `json:"data"`
}

// HandleList GET /api/json-files
func (h *SnapshotHandler) HandleList(ctx context.Context, c *app.RequestContext) {
	list, err := h.store.List(ctx)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("列出快照失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, list)
}

// HandleGet GET /api/json-files/:name，原样返回文件内容
func (h *SnapshotHandler) HandleGet(ctx context.Context, c *app.RequestContext) {
	data, err := h.store.Get(ctx, c.Param("name"))
	switch {
	case errors.Is(err, storage.ErrSnapshotNotFound):
		c.JSON(consts.StatusNotFound, utils.H{"error": "File not found"})
	case errors.Is(err, storage.ErrInvalidSnapshotName):
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
	case err != nil:
		logger.Ctx(ctx).Error().Err(err).Str("name", c.Param("name")).Msg("读取快照失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
	default:
		c.Data(consts.StatusOK, "application/json; charset=utf-8", data)
	}
}

// HandleSave POST /api/json-files，文件名缺少扩展名时自动补全
func (h *SnapshotHandler) HandleSave(ctx context.Context, c *app.RequestContext) {
	var req saveSnapshotRequest
	if err := json.Unmarshal(c.Request.Body(), &req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "Invalid JSON body"})
		return
	}
	data := strings.TrimSpace(string(req.Data))
	if strings.TrimSpace(req.Filename) == "" || data == "" || data == "null" {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "Missing filename or data"})
		return
	}

	body, err := json.MarshalIndent(req.Data, "", "  ")
	if err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}
	name, err := h.store.Save(ctx, req.Filename, body)
	if errors.Is(err, storage.ErrInvalidSnapshotName) {
		c.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("name", req.Filename).Msg("保存快照失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"success":  true,
		"filename": name,
		"message":  "File saved successfully as " + name,
	})
}
