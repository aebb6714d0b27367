package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsComparesCode(t *testing.T) {
	err := ErrUpstream.WithDetail("http 500: boom")
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.False(t, errors.Is(err, ErrUpstreamShape))

	wrapped := fmt.Errorf("generate: %w", err)
	assert.True(t, errors.Is(wrapped, ErrUpstream))
}

func TestAppError_CopiesDoNotMutateSentinels(t *testing.T) {
	_ = ErrValidation.WithDetail("brand")
	_ = ErrValidation.WithError(errors.New("x"))
	assert.Empty(t, ErrValidation.Detail)
	assert.Nil(t, ErrValidation.Err)
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ErrUpstream.WithError(cause)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	cases := map[*AppError]int{
		ErrInvalidParam:    http.StatusBadRequest,
		ErrNotFound:        http.StatusNotFound,
		ErrBusy:            http.StatusConflict,
		ErrStale:           http.StatusConflict,
		ErrValidation:      http.StatusUnprocessableEntity,
		ErrStepIncomplete:  http.StatusUnprocessableEntity,
		ErrLimitReached:    http.StatusTooManyRequests,
		ErrUpstream:        http.StatusBadGateway,
		ErrUpstreamShape:   http.StatusBadGateway,
		ErrUpstreamTimeout: http.StatusGatewayTimeout,
	}
	for e, status := range cases {
		assert.Equal(t, status, e.HTTPStatus, string(e.Code))
	}
}

func TestAsAppError(t *testing.T) {
	plain := errors.New("plain")
	app := AsAppError(plain)
	assert.Equal(t, CodeUnknown, app.Code)
	assert.Equal(t, http.StatusInternalServerError, app.HTTPStatus)
	assert.True(t, errors.Is(app, plain))

	assert.Same(t, ErrBusy, AsAppError(ErrBusy))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "", Display(nil))
	assert.Equal(t, "必填字段缺失: brand, topic", Display(ErrValidation.WithDetail("brand, topic")))
	assert.Equal(t, "生成服务调用失败: eof", Display(ErrUpstream.WithError(errors.New("eof"))))
	assert.Equal(t, "操作正在进行中，请稍候", Display(ErrBusy))
}
