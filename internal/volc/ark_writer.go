// Package volc 使用火山方舟对话模型撰写影片脚本，作为脚本生成服务的替代后端
package volc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/callback"
	"scriptwizard/internal/genclient"
	"scriptwizard/internal/metrics"
)

const scriptWriterInstruction = `你是一位资深的品牌影片编剧。请根据用户提供的品牌、主题、影片类型、投放平台、画面比例、视觉风格和语气，
撰写一支短影音脚本。脚本按场景分段，每个场景包含画面描述与旁白。只输出脚本正文，不要输出其他说明。`

const scriptWriterUser = `品牌：{brand}
主题：{topic}
影片类型：{video_type}
投放平台：{platform}
画面比例：{aspect_ratio}
视觉风格：{visual_style}
语气：{tone}`

// ScriptWriter 基于 eino chain 的脚本撰写器
type ScriptWriter struct {
	runner compose.Runnable[map[string]any, *schema.Message]
	logs   callbacks.Handler
}

// NewArkScriptWriter 使用方舟对话模型创建脚本撰写器
func NewArkScriptWriter(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*ScriptWriter, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ARK_API_KEY")
	}
	if modelName == "" {
		return nil, errors.New("ark model required")
	}
	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
		Model:      modelName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewScriptWriter(ctx, chatModel)
}

// NewScriptWriter 用任意对话模型编排 模板 -> 模型 链
func NewScriptWriter(ctx context.Context, chatModel model.BaseChatModel) (*ScriptWriter, error) {
	template := prompt.FromMessages(schema.FString,
		schema.SystemMessage(scriptWriterInstruction),
		schema.UserMessage(scriptWriterUser),
	)
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(template).AppendChatModel(chatModel)
	runner, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script chain: %w", err)
	}
	return &ScriptWriter{runner: runner, logs: callback.NewLogHandler("ark_script")}, nil
}

// GenerateScript 与 HTTP 脚本服务相同的契约
func (w *ScriptWriter) GenerateScript(ctx context.Context, req genclient.ScriptRequest) (script string, err error) {
	if missing := req.Missing(); len(missing) > 0 {
		return "", apperr.ErrValidation.WithDetail(strings.Join(missing, ", "))
	}
	start := time.Now()
	defer func() { metrics.ObserveUpstream("ark_script", err, time.Since(start)) }()

	res, err := w.runner.Invoke(ctx, map[string]any{
		"brand":        req.Brand,
		"topic":        req.Topic,
		"video_type":   req.VideoType,
		"platform":     req.Platform,
		"aspect_ratio": req.AspectRatio,
		"visual_style": req.VisualStyle,
		"tone":         req.Tone,
	}, compose.WithCallbacks(w.logs))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.ErrUpstreamTimeout.WithError(err)
		}
		return "", apperr.ErrUpstream.WithError(err)
	}
	script = strings.TrimSpace(res.Content)
	if script == "" {
		return "", apperr.ErrUpstreamShape.WithDetail("empty chat content")
	}
	return script, nil
}
