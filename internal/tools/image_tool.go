package tools

import (
	"context"
	"encoding/json"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/genclient"
)

// ImageGenerator 批量图片生成后端
type ImageGenerator interface {
	ExtractThenGenerate(ctx context.Context, req genclient.ImageBatchRequest) (*genclient.ImageBatch, error)
}

type ImageTool struct {
	gen       ImageGenerator
	perPrompt int
}

type ImageToolArgs struct {
	Script          string `json:"script"`
	ImagesPerPrompt int    `json:"images_per_prompt"`
}

type ImageToolItem struct {
	Prompt     string `json:"prompt"`
	URL        string `json:"url"`
	DisplayURL string `json:"display_url"`
}

type ImageToolResp struct {
	Images   []ImageToolItem `json:"images"`
	Count    int             `json:"count"`
	Failures []string        `json:"failures,omitempty"`
}

func NewImageTool(gen ImageGenerator, perPrompt int) *ImageTool {
	return &ImageTool{gen: gen, perPrompt: perPrompt}
}

func (t *ImageTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"script":            {Type: schema.String, Required: true, Desc: "完整脚本文本"},
		"images_per_prompt": {Type: schema.Integer, Required: false, Desc: "每个场景生成的图片数"},
	}
	return &schema.ToolInfo{
		Name:        "image_generate",
		Desc:        "从脚本中提取场景提示词并逐个生成图片，部分场景失败不影响其余结果",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

func (t *ImageTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args ImageToolArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", apperr.ErrInvalidParam.WithError(err)
	}
	if args.ImagesPerPrompt <= 0 {
		args.ImagesPerPrompt = t.perPrompt
	}
	batch, err := t.gen.ExtractThenGenerate(ctx, genclient.ImageBatchRequest{
		Script:          args.Script,
		ImagesPerPrompt: args.ImagesPerPrompt,
		StartIndex:      1,
		Naming:          "scene",
	})
	if err != nil {
		return "", err
	}
	out := ImageToolResp{Count: len(batch.Images), Failures: batch.Failures}
	for _, img := range batch.Images {
		out.Images = append(out.Images, ImageToolItem{Prompt: img.Prompt, URL: img.PublicURL, DisplayURL: img.DisplayURL})
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ einotool.InvokableTool = (*ImageTool)(nil)
