// Package genclient 封装外部脚本、图片、影片生成服务的 HTTP 调用
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/metrics"
)

// Client 外部生成服务客户端，三个服务共享同一个 http.Client
type Client struct {
	ScriptBase string
	ImageBase  string
	VideoBase  string
	HTTPClient *http.Client
	Mock       bool

	// now 用于生成缓存参数，测试中可替换
	now func() time.Time
}

// Options 构造参数
type Options struct {
	ScriptBase string
	ImageBase  string
	VideoBase  string
	Timeout    time.Duration
	Mock       bool
}

func NewClient(opts Options) *Client {
	return &Client{
		ScriptBase: strings.TrimRight(opts.ScriptBase, "/"),
		ImageBase:  strings.TrimRight(opts.ImageBase, "/"),
		VideoBase:  strings.TrimRight(opts.VideoBase, "/"),
		HTTPClient: &http.Client{Timeout: opts.Timeout},
		Mock:       opts.Mock,
		now:        time.Now,
	}
}

// upstreamDetail 非 2xx 响应体中的错误描述
type upstreamDetail struct {
	Detail any    `json:"detail"`
	Error  string `json:"error"`
}

func (c *Client) postJSON(ctx context.Context, op, endpoint string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return apperr.ErrInvalidParam.WithError(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return apperr.ErrInvalidParam.WithError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(op, req, out)
}

func (c *Client) postMultipart(ctx context.Context, op, endpoint string, fields map[string]string, fileField, fileName string, file []byte, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return apperr.ErrInvalidParam.WithError(err)
		}
	}
	fw, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		return apperr.ErrInvalidParam.WithError(err)
	}
	if _, err := fw.Write(file); err != nil {
		return apperr.ErrInvalidParam.WithError(err)
	}
	if err := w.Close(); err != nil {
		return apperr.ErrInvalidParam.WithError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return apperr.ErrInvalidParam.WithError(err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return c.do(op, req, out)
}

// do 发送请求并把 2xx 响应解码到 out；out 为 *[]byte 时保留原始响应体
func (c *Client) do(op string, req *http.Request, out any) (err error) {
	start := time.Now()
	log := logrus.WithFields(logrus.Fields{"op": op, "method": req.Method, "url": req.URL.String()})
	defer func() {
		metrics.ObserveUpstream(op, err, time.Since(start))
		if err != nil {
			log.WithError(err).Warn("upstream call failed")
		} else {
			log.WithField("elapsed", time.Since(start)).Debug("upstream call done")
		}
	}()

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return classifyTransport(err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return statusError(res.StatusCode, body)
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = body
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperr.ErrUpstreamShape.WithError(err)
	}
	return nil
}

// fetchBinary 以二进制方式拉取资源
func (c *Client) fetchBinary(ctx context.Context, op, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", apperr.ErrInvalidParam.WithError(err)
	}
	var body []byte
	var contentType string
	start := time.Now()
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		err = classifyTransport(err)
		metrics.ObserveUpstream(op, err, time.Since(start))
		return nil, "", err
	}
	defer res.Body.Close()
	body, err = io.ReadAll(res.Body)
	if err != nil {
		err = classifyTransport(err)
	} else if res.StatusCode < 200 || res.StatusCode >= 300 {
		err = statusError(res.StatusCode, body)
	}
	metrics.ObserveUpstream(op, err, time.Since(start))
	if err != nil {
		return nil, "", err
	}
	contentType = res.Header.Get("Content-Type")
	return body, contentType, nil
}

func classifyTransport(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperr.ErrUpstreamTimeout.WithError(err)
	}
	return apperr.ErrUpstream.WithError(err)
}

func statusError(status int, body []byte) error {
	detail := strings.TrimSpace(string(body))
	var d upstreamDetail
	if json.Unmarshal(body, &d) == nil {
		switch v := d.Detail.(type) {
		case string:
			detail = v
		case nil:
			if d.Error != "" {
				detail = d.Error
			}
		default:
			if b, err := json.Marshal(v); err == nil {
				detail = string(b)
			}
		}
	}
	return apperr.ErrUpstream.WithDetail(fmt.Sprintf("http %d: %s", status, truncate(detail, maxDetailBytes)))
}

const maxDetailBytes = 300

// truncate 按字节截断但不切开多字节字符
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// resolveURL 将服务返回的相对路径转换为绝对地址
func resolveURL(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	b, err := url.Parse(base + "/")
	if err != nil {
		return "", err
	}
	return b.ResolveReference(&url.URL{Path: strings.TrimLeft(u.Path, "/"), RawQuery: u.RawQuery}).String(), nil
}

// cacheBust 追加 v 参数，强制浏览器重新拉取同名图片
func (c *Client) cacheBust(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("v", fmt.Sprintf("%d", c.now().UnixNano()))
	u.RawQuery = q.Encode()
	return u.String()
}
