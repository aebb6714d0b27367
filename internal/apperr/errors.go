// Package apperr 提供统一的错误定义
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

const (
	CodeUnknown        ErrorCode = "1000"
	CodeInvalidParam   ErrorCode = "1001"
	CodeNotFound       ErrorCode = "1004"
	CodeConflict       ErrorCode = "1005"
	CodeInternalError  ErrorCode = "1007"
	CodeStepIncomplete ErrorCode = "4001"
	CodeValidation     ErrorCode = "4002"
	CodeLimitReached   ErrorCode = "4003"
	CodeStale          ErrorCode = "4004"

	// 外部生成服务错误
	CodeUpstreamFailed  ErrorCode = "5001"
	CodeUpstreamShape   ErrorCode = "5002"
	CodeUpstreamTimeout ErrorCode = "5003"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，便于 errors.Is(err, apperr.ErrBusy)
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail 返回带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// Display 返回给用户展示的文本
func (e *AppError) Display() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeStale:
		return http.StatusConflict
	case CodeStepIncomplete, CodeValidation:
		return http.StatusUnprocessableEntity
	case CodeLimitReached:
		return http.StatusTooManyRequests
	case CodeUpstreamFailed, CodeUpstreamShape:
		return http.StatusBadGateway
	case CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam    = New(CodeInvalidParam, "参数无效")
	ErrNotFound        = New(CodeNotFound, "资源不存在")
	ErrBusy            = New(CodeConflict, "操作正在进行中，请稍候")
	ErrStepIncomplete  = New(CodeStepIncomplete, "当前步骤尚未完成")
	ErrValidation      = New(CodeValidation, "必填字段缺失")
	ErrLimitReached    = New(CodeLimitReached, "已达到重新生成次数上限")
	ErrStale           = New(CodeStale, "图片组已重新生成，本次结果已丢弃")
	ErrUpstream        = New(CodeUpstreamFailed, "生成服务调用失败")
	ErrUpstreamShape   = New(CodeUpstreamShape, "生成服务响应格式错误")
	ErrUpstreamTimeout = New(CodeUpstreamTimeout, "生成服务响应超时")
)

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "未知错误")
}

// Display 将任意错误转换为展示文本
func Display(err error) string {
	if err == nil {
		return ""
	}
	return AsAppError(err).Display()
}
