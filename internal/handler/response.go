// Package handler 提供向导的 HTTP 接口
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"scriptwizard/internal/apperr"
)

// CodeOK 成功响应码
const CodeOK = "0"

// Response 统一响应结构
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func success(c *gin.Context, status int, data any) {
	c.JSON(status, Response{
		Code:      CodeOK,
		Message:   "success",
		Data:      data,
		RequestID: c.GetString(requestIDKey),
	})
}

// fail 返回错误响应；data 通常是会话快照，客户端据此继续渲染
func fail(c *gin.Context, err error, data any) {
	appErr := apperr.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	entry := logrus.WithFields(logrus.Fields{
		"request_id": c.GetString(requestIDKey),
		"path":       c.FullPath(),
		"code":       appErr.Code,
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Debug("request rejected")
	}
	c.JSON(status, Response{
		Code:      string(appErr.Code),
		Message:   appErr.Message,
		Detail:    appErr.Display(),
		Data:      data,
		RequestID: c.GetString(requestIDKey),
	})
}
