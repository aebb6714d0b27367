package tools

import (
	"context"
	"encoding/json"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/model"
	"scriptwizard/internal/service"
)

// VideoRunner 两阶段影片生成
type VideoRunner interface {
	Run(ctx context.Context, in service.VideoInput) (string, error)
}

// 实现eino框架的视频生成工具
type VideoTool struct {
	runner VideoRunner
}

// 视频生成请求参数
type VideoToolArgs struct {
	Script      string   `json:"script"`
	ImageURLs   []string `json:"image_urls"`
	AspectRatio string   `json:"aspect_ratio"`
}

// 视频生成响应
type VideoToolResp struct {
	VideoURL string `json:"video_url"`
}

func NewVideoTool(runner VideoRunner) *VideoTool {
	return &VideoTool{runner: runner}
}

func (t *VideoTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"script":       {Type: schema.String, Required: true, Desc: "完整脚本文本"},
		"image_urls":   {Type: schema.Array, Required: true, Desc: "按场景顺序排列的图片地址", ElemInfo: &schema.ParameterInfo{Type: schema.String}},
		"aspect_ratio": {Type: schema.String, Required: false, Desc: "画面比例，默认16:9"},
	}
	return &schema.ToolInfo{
		Name:        "video_generate",
		Desc:        "从脚本提取视觉提示词，再与图片一起合成最终影片",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

func (t *VideoTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args VideoToolArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", apperr.ErrInvalidParam.WithError(err)
	}
	if args.AspectRatio == "" {
		args.AspectRatio = model.DefaultAspectRatio
	}
	url, err := t.runner.Run(ctx, service.VideoInput{
		Script:      args.Script,
		ImageURLs:   args.ImageURLs,
		AspectRatio: args.AspectRatio,
	})
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(VideoToolResp{VideoURL: url})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ einotool.InvokableTool = (*VideoTool)(nil)
