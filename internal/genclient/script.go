package genclient

import (
	"context"
	"fmt"
	"strings"

	"scriptwizard/internal/apperr"
)

// ScriptRequest 脚本生成请求
type ScriptRequest struct {
	Brand       string `json:"brand"`
	Topic       string `json:"topic"`
	VideoType   string `json:"video_type"`
	Platform    string `json:"platform"`
	AspectRatio string `json:"aspect_ratio"`
	VisualStyle string `json:"visual_style"`
	Tone        string `json:"tone"`
}

// Missing 返回为空的必填字段名
func (r ScriptRequest) Missing() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("brand", r.Brand)
	check("topic", r.Topic)
	check("video_type", r.VideoType)
	check("platform", r.Platform)
	check("aspect_ratio", r.AspectRatio)
	check("visual_style", r.VisualStyle)
	check("tone", r.Tone)
	return missing
}

type scriptResponse struct {
	Result *string `json:"result"`
}

// GenerateScript 调用 POST /generate-script
func (c *Client) GenerateScript(ctx context.Context, req ScriptRequest) (string, error) {
	if missing := req.Missing(); len(missing) > 0 {
		return "", apperr.ErrValidation.WithDetail(strings.Join(missing, ", "))
	}
	if c.Mock {
		return mockScript(req), nil
	}
	var resp scriptResponse
	if err := c.postJSON(ctx, "generate_script", c.ScriptBase+"/generate-script", req, &resp); err != nil {
		return "", err
	}
	if resp.Result == nil {
		return "", apperr.ErrUpstreamShape.WithDetail("missing result")
	}
	return *resp.Result, nil
}

func mockScript(req ScriptRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "【%s】%s\n", req.Brand, req.Topic)
	fmt.Fprintf(&b, "风格：%s / %s，平台：%s，比例：%s，语气：%s\n\n", req.VideoType, req.VisualStyle, req.Platform, req.AspectRatio, req.Tone)
	b.WriteString("场景1：开场画面，品牌标志展示。\n")
	b.WriteString("场景2：产品特写，细节展示。\n")
	b.WriteString("场景3：使用情境，人物互动。\n")
	b.WriteString("场景4：结尾画面，品牌信息与行动呼吁。\n")
	return b.String()
}
