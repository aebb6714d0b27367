package tools

import (
	"context"
	"encoding/json"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/genclient"
)

// ScriptGenerator 脚本生成后端
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, req genclient.ScriptRequest) (string, error)
}

// ScriptTool 实现eino框架的脚本生成工具
type ScriptTool struct {
	gen ScriptGenerator
}

// ScriptToolResp 脚本生成响应
type ScriptToolResp struct {
	Result string `json:"result"`
}

func NewScriptTool(gen ScriptGenerator) *ScriptTool {
	return &ScriptTool{gen: gen}
}

// Info 获取脚本生成工具信息
func (t *ScriptTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"brand":        {Type: schema.String, Required: true, Desc: "公司或品牌"},
		"topic":        {Type: schema.String, Required: true, Desc: "主要产品或服务"},
		"video_type":   {Type: schema.String, Required: true, Desc: "影片类型"},
		"platform":     {Type: schema.String, Required: true, Desc: "投放平台"},
		"aspect_ratio": {Type: schema.String, Required: true, Desc: "画面比例，如16:9"},
		"visual_style": {Type: schema.String, Required: true, Desc: "视觉风格"},
		"tone":         {Type: schema.String, Required: true, Desc: "语气"},
	}
	return &schema.ToolInfo{
		Name:        "script_generate",
		Desc:        "根据品牌与影片需求生成短影音脚本",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

// InvokableRun 执行脚本生成任务
func (t *ScriptTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args genclient.ScriptRequest
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", apperr.ErrInvalidParam.WithError(err)
	}
	script, err := t.gen.GenerateScript(ctx, args)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(ScriptToolResp{Result: script})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ einotool.InvokableTool = (*ScriptTool)(nil)
