package genclient

import (
	"context"
	"encoding/base64"
	"strings"

	"scriptwizard/internal/apperr"
)

// RenderParams 影片合成的固定渲染参数
type RenderParams struct {
	Style              string  `json:"style"`
	Width              int     `json:"width"`
	Height             int     `json:"height"`
	Duration           float64 `json:"duration"`
	FPS                int     `json:"fps"`
	TransitionDuration float64 `json:"transition_duration"`
	OutroDuration      float64 `json:"outro_duration"`
}

// FinalVideoRequest 影片合成请求
type FinalVideoRequest struct {
	Prompts   any      `json:"prompts"`
	ImageURLs []string `json:"image_urls"`
	RenderParams
}

type finalVideoResponse struct {
	FinalVideoURL string `json:"final_video_url"`
}

// RetrievePrompts 调用 POST /prompt-retrieval，从脚本中提取视觉提示词
func (c *Client) RetrievePrompts(ctx context.Context, script string) (Prompts, error) {
	if strings.TrimSpace(script) == "" {
		return Prompts{}, apperr.ErrValidation.WithDetail("script")
	}
	var raw []byte
	if c.Mock {
		raw = []byte(`{"prompts":["opening shot","product close-up","lifestyle scene","brand outro"]}`)
	} else if err := c.postJSON(ctx, "prompt_retrieval", c.VideoBase+"/prompt-retrieval", map[string]string{"script": script}, &raw); err != nil {
		return Prompts{}, err
	}
	p := NormalizePrompts(raw)
	if p.Kind == PromptsUnknown {
		return p, apperr.ErrUpstreamShape.WithDetail("unrecognized prompt payload")
	}
	if p.Empty() {
		return p, apperr.ErrUpstream.WithDetail("no prompts extracted")
	}
	return p, nil
}

// GenerateFinalVideo 调用 POST /generate-final-video，返回可播放的绝对地址
func (c *Client) GenerateFinalVideo(ctx context.Context, req FinalVideoRequest) (string, error) {
	if len(req.ImageURLs) == 0 {
		return "", apperr.ErrValidation.WithDetail("image_urls")
	}
	if req.Prompts == nil {
		return "", apperr.ErrValidation.WithDetail("prompts")
	}
	var resp finalVideoResponse
	if c.Mock {
		resp.FinalVideoURL = "static/mock/final_video.mp4"
	} else if err := c.postJSON(ctx, "generate_final_video", c.VideoBase+"/generate-final-video", req, &resp); err != nil {
		return "", err
	}
	if resp.FinalVideoURL == "" {
		return "", apperr.ErrUpstreamShape.WithDetail("missing final_video_url")
	}
	u, err := resolveURL(c.VideoBase, resp.FinalVideoURL)
	if err != nil {
		return "", apperr.ErrUpstreamShape.WithError(err)
	}
	return u, nil
}

func mockPixel() []byte {
	// 1x1 PNG
	b, _ := base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR4nGNgYAAAAAMAASsJTYQAAAAASUVORK5CYII=")
	return b
}
