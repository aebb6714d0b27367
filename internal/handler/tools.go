package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/tools"
)

// ToolsHandler 直接调用 eino 工具，不经过向导状态
type ToolsHandler struct {
	registry *tools.Registry
}

func NewToolsHandler(registry *tools.Registry) *ToolsHandler {
	return &ToolsHandler{registry: registry}
}

// List 返回所有工具描述
func (h *ToolsHandler) List(c *gin.Context) {
	infos, err := h.registry.Infos(c.Request.Context())
	if err != nil {
		fail(c, apperr.Wrap(err, apperr.CodeInternalError, "读取工具信息失败"), nil)
		return
	}
	success(c, http.StatusOK, infos)
}

// Invoke 请求体原样作为工具参数，返回工具输出的 JSON
func (h *ToolsHandler) Invoke(c *gin.Context) {
	t, ok := h.registry.Get(c.Param("name"))
	if !ok {
		fail(c, apperr.ErrNotFound.WithDetail("tool "+c.Param("name")), nil)
		return
	}
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		fail(c, apperr.ErrInvalidParam.WithDetail("无效的请求格式"), nil)
		return
	}
	result, err := t.InvokableRun(generationContext(c), string(body))
	if err != nil {
		fail(c, err, nil)
		return
	}
	c.Data(http.StatusOK, "application/json", []byte(result))
}
