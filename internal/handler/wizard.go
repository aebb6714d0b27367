package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/model"
	"scriptwizard/internal/wizard"
)

const (
	headerDownloadSucceeded = "X-Download-Succeeded"
	headerDownloadFailed    = "X-Download-Failed"
)

// WizardHandler 向导会话接口
type WizardHandler struct {
	sessions    *wizard.Manager
	downloadDir string
}

func NewWizardHandler(sessions *wizard.Manager, downloadDir string) *WizardHandler {
	return &WizardHandler{sessions: sessions, downloadDir: downloadDir}
}

// session 取出路径中的会话，不存在时直接写错误响应
func (h *WizardHandler) session(c *gin.Context) (*wizard.Controller, bool) {
	ctrl, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		fail(c, err, nil)
		return nil, false
	}
	return ctrl, true
}

// respond 无论成功与否都带上最新快照
func respond(c *gin.Context, ctrl *wizard.Controller, err error) {
	if err != nil {
		fail(c, err, ctrl.Snapshot())
		return
	}
	success(c, http.StatusOK, ctrl.Snapshot())
}

// generationContext 客户端断开不取消生成请求，超时由控制器负责
func generationContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

// Info 步骤与选项目录
func (h *WizardHandler) Info(c *gin.Context) {
	success(c, http.StatusOK, gin.H{
		"steps":         model.Steps(),
		"video_types":   model.VideoTypes,
		"visual_styles": model.VisualStyles,
		"aspect_ratios": model.AspectRatios,
		"fields":        model.Fields(),
		"defaults":      model.NewFormData(),
	})
}

func (h *WizardHandler) Create(c *gin.Context) {
	ctrl := h.sessions.Create()
	success(c, http.StatusCreated, ctrl.Snapshot())
}

func (h *WizardHandler) Get(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	success(c, http.StatusOK, ctrl.Snapshot())
}

func (h *WizardHandler) Delete(c *gin.Context) {
	if !h.sessions.Delete(c.Param("id")) {
		fail(c, apperr.ErrNotFound.WithDetail("session "+c.Param("id")), nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WizardHandler) Advance(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	respond(c, ctrl, ctrl.Advance())
}

func (h *WizardHandler) Retreat(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	ctrl.Retreat()
	respond(c, ctrl, nil)
}

// Jump 只能跳回已到达的步骤，其它目标忽略
func (h *WizardHandler) Jump(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Step int `json:"step" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.ErrInvalidParam.WithError(err), ctrl.Snapshot())
		return
	}
	ctrl.JumpTo(model.Step(req.Step))
	respond(c, ctrl, nil)
}

func (h *WizardHandler) UpdateField(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Value any `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.ErrInvalidParam.WithError(err), ctrl.Snapshot())
		return
	}
	respond(c, ctrl, ctrl.UpdateField(c.Param("key"), req.Value))
}

func (h *WizardHandler) UpdateFields(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var partial map[string]any
	if err := c.ShouldBindJSON(&partial); err != nil {
		fail(c, apperr.ErrInvalidParam.WithError(err), ctrl.Snapshot())
		return
	}
	respond(c, ctrl, ctrl.UpdateFields(partial))
}

func (h *WizardHandler) GenerateScript(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	respond(c, ctrl, ctrl.GenerateScript(generationContext(c)))
}

func (h *WizardHandler) RegenerateScript(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	respond(c, ctrl, ctrl.RegenerateScript(generationContext(c)))
}

func (h *WizardHandler) EditScript(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req struct {
		Script string `json:"script"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.ErrInvalidParam.WithError(err), ctrl.Snapshot())
		return
	}
	respond(c, ctrl, ctrl.EditScript(req.Script))
}

// DownloadScript 以纯文本附件返回脚本
func (h *WizardHandler) DownloadScript(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	script, err := ctrl.ScriptDownload()
	if err != nil {
		fail(c, err, ctrl.Snapshot())
		return
	}
	c.Header("Content-Disposition", attachment(scriptFileName(ctrl.Form().Brand)))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(script))
}

func (h *WizardHandler) GenerateImages(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	respond(c, ctrl, ctrl.GenerateImages(generationContext(c)))
}

func (h *WizardHandler) UpdateImagePrompt(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		fail(c, apperr.ErrInvalidParam.WithDetail("index"), ctrl.Snapshot())
		return
	}
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.ErrInvalidParam.WithError(err), ctrl.Snapshot())
		return
	}
	respond(c, ctrl, ctrl.SetImagePrompt(index, req.Prompt))
}

// RegenerateImage 请求体中的 prompt 为空时沿用当前提示词
func (h *WizardHandler) RegenerateImage(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		fail(c, apperr.ErrInvalidParam.WithDetail("index"), ctrl.Snapshot())
		return
	}
	var req struct {
		Prompt string `json:"prompt"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, apperr.ErrInvalidParam.WithError(err), ctrl.Snapshot())
			return
		}
	}
	respond(c, ctrl, ctrl.RegenerateImage(generationContext(c), index, req.Prompt))
}

// DownloadImages 打包所有图片为 zip，成功与失败数量放在响应头
func (h *WizardHandler) DownloadImages(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	sink := wizard.NewZipSink(&buf)
	report, err := ctrl.DownloadAllImages(c.Request.Context(), sink)
	if err != nil {
		fail(c, err, ctrl.Snapshot())
		return
	}
	if err := sink.Close(); err != nil {
		fail(c, apperr.Wrap(err, apperr.CodeInternalError, "打包失败"), ctrl.Snapshot())
		return
	}
	c.Header(headerDownloadSucceeded, strconv.Itoa(report.Succeeded))
	c.Header(headerDownloadFailed, strconv.Itoa(report.Failed))
	c.Header("Content-Disposition", attachment("scenes.zip"))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// SaveImages 将所有图片保存到服务端下载目录下以会话 id 命名的子目录
func (h *WizardHandler) SaveImages(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	sink, err := wizard.NewDirSink(filepath.Join(h.downloadDir, ctrl.ID()))
	if err != nil {
		fail(c, apperr.Wrap(err, apperr.CodeInternalError, "创建下载目录失败"), ctrl.Snapshot())
		return
	}
	report, err := ctrl.DownloadAllImages(c.Request.Context(), sink)
	if err != nil {
		fail(c, err, ctrl.Snapshot())
		return
	}
	success(c, http.StatusOK, gin.H{
		"report":   report,
		"dir":      sink.Dir,
		"snapshot": ctrl.Snapshot(),
	})
}

func (h *WizardHandler) GenerateVideo(c *gin.Context) {
	ctrl, ok := h.session(c)
	if !ok {
		return
	}
	respond(c, ctrl, ctrl.GenerateVideo(generationContext(c)))
}

func scriptFileName(brand string) string {
	if brand == "" {
		return "script.txt"
	}
	return brand + "_script.txt"
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(name))
}
