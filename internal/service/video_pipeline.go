package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/callback"
	"scriptwizard/internal/config"
	"scriptwizard/internal/genclient"
)

// VideoBackend 影片生成两个阶段所需的外部服务
type VideoBackend interface {
	RetrievePrompts(ctx context.Context, script string) (genclient.Prompts, error)
	GenerateFinalVideo(ctx context.Context, req genclient.FinalVideoRequest) (string, error)
}

// VideoInput 管线输入
type VideoInput struct {
	Script      string
	ImageURLs   []string
	AspectRatio string
}

// assemblyInput 第一阶段产物，交给合成阶段
type assemblyInput struct {
	Prompts   genclient.Prompts
	ImageURLs []string
	Params    genclient.RenderParams
}

// VideoPipeline 提取提示词 -> 合成影片
type VideoPipeline struct {
	backend VideoBackend
	render  config.VideoConfig
	runner  compose.Runnable[VideoInput, string]
	logs    callbacks.Handler
}

func NewVideoPipeline(ctx context.Context, backend VideoBackend, render config.VideoConfig) (*VideoPipeline, error) {
	p := &VideoPipeline{backend: backend, render: render, logs: callback.NewLogHandler("video")}

	chain := compose.NewChain[VideoInput, string]()
	chain.
		AppendLambda(compose.InvokableLambda(p.extractPrompts), compose.WithNodeName("prompt_retrieval")).
		AppendLambda(compose.InvokableLambda(p.assemble), compose.WithNodeName("final_video"))
	runner, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile video chain: %w", err)
	}
	p.runner = runner
	return p, nil
}

// Run 执行两阶段影片生成，返回可播放地址
func (p *VideoPipeline) Run(ctx context.Context, in VideoInput) (string, error) {
	if strings.TrimSpace(in.Script) == "" {
		return "", apperr.ErrValidation.WithDetail("script")
	}
	if len(in.ImageURLs) == 0 {
		return "", apperr.ErrValidation.WithDetail("images")
	}
	url, err := p.runner.Invoke(ctx, in, compose.WithCallbacks(p.logs))
	if err != nil {
		return "", unwrapNodeError(err)
	}
	return url, nil
}

func (p *VideoPipeline) extractPrompts(ctx context.Context, in VideoInput) (assemblyInput, error) {
	prompts, err := p.backend.RetrievePrompts(ctx, in.Script)
	if err != nil {
		return assemblyInput{}, err
	}
	return assemblyInput{
		Prompts:   prompts,
		ImageURLs: in.ImageURLs,
		Params:    p.renderParams(in.AspectRatio),
	}, nil
}

func (p *VideoPipeline) assemble(ctx context.Context, in assemblyInput) (string, error) {
	return p.backend.GenerateFinalVideo(ctx, genclient.FinalVideoRequest{
		Prompts:      in.Prompts.Payload(),
		ImageURLs:    in.ImageURLs,
		RenderParams: in.Params,
	})
}

// renderParams 按画面比例推导宽高，其余参数固定
func (p *VideoPipeline) renderParams(aspectRatio string) genclient.RenderParams {
	w, h := Dimensions(aspectRatio, p.render.ShortEdge)
	return genclient.RenderParams{
		Style:              p.render.Style,
		Width:              w,
		Height:             h,
		Duration:           p.render.Duration,
		FPS:                p.render.FPS,
		TransitionDuration: p.render.TransitionDuration,
		OutroDuration:      p.render.OutroDuration,
	}
}

// Dimensions 以短边为基准计算宽高，无法解析的比例按 16:9 处理；结果取偶数
func Dimensions(aspectRatio string, shortEdge int) (int, int) {
	rw, rh := 16, 9
	if parts := strings.SplitN(aspectRatio, ":", 2); len(parts) == 2 {
		a, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
		b, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errA == nil && errB == nil && a > 0 && b > 0 {
			rw, rh = a, b
		}
	}
	if rw >= rh {
		return even(shortEdge * rw / rh), even(shortEdge)
	}
	return even(shortEdge), even(shortEdge * rh / rw)
}

func even(n int) int {
	return n - n%2
}

// unwrapNodeError eino 会包装节点错误，这里取回业务错误以保留错误码
func unwrapNodeError(err error) error {
	if app := apperr.AsAppError(err); app.Code != apperr.CodeUnknown {
		return app
	}
	return apperr.ErrUpstream.WithError(err)
}
