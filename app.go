package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"scriptwizard/internal/config"
	"scriptwizard/internal/genclient"
	"scriptwizard/internal/service"
	"scriptwizard/internal/tools"
	"scriptwizard/internal/volc"
	"scriptwizard/internal/wizard"
)

// app 组装好的依赖
type app struct {
	cfg      *config.Config
	client   *genclient.Client
	scripts  wizard.ScriptService
	video    *service.VideoPipeline
	registry *tools.Registry
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	client := genclient.NewClient(genclient.Options{
		ScriptBase: cfg.Services.ScriptBaseURL,
		ImageBase:  cfg.Services.ImageBaseURL,
		VideoBase:  cfg.Services.VideoBaseURL,
		Timeout:    cfg.Services.HTTPTimeout,
		Mock:       cfg.Services.Mock,
	})

	var scripts wizard.ScriptService = client
	if cfg.Script.Backend == "ark" && !cfg.Services.Mock {
		writer, err := volc.NewArkScriptWriter(ctx, cfg.Script.ArkAPIKey, cfg.Script.ArkModel, cfg.Script.Timeout)
		if err != nil {
			return nil, fmt.Errorf("init ark script writer: %w", err)
		}
		scripts = writer
		logrus.WithField("model", cfg.Script.ArkModel).Info("script backend: ark")
	}

	video, err := service.NewVideoPipeline(ctx, client, cfg.Video)
	if err != nil {
		return nil, err
	}

	registry, err := tools.NewRegistry(ctx,
		tools.NewScriptTool(scripts),
		tools.NewImageTool(client, cfg.Images.PerPrompt),
		tools.NewVideoTool(video),
	)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, client: client, scripts: scripts, video: video, registry: registry}, nil
}

func (a *app) wizardOptions() wizard.Options {
	return wizard.Options{
		ScriptTimeout:       a.cfg.Script.Timeout,
		ImageTimeout:        a.cfg.Images.Timeout,
		EditTimeout:         a.cfg.Images.EditTimeout,
		VideoTimeout:        a.cfg.Video.Timeout,
		MaxScriptRegenerate: a.cfg.Script.MaxRegenerate,
		ImagesPerPrompt:     a.cfg.Images.PerPrompt,
		ImageStartIndex:     a.cfg.Images.StartIndex,
	}
}

func (a *app) newManager() *wizard.Manager {
	return wizard.NewManager(a.scripts, a.client, a.video, a.wizardOptions(), a.cfg.Session.IdleTTL)
}

// setup 加载配置并初始化日志，返回的 Closer 关闭日志文件
func setup(configPath string) (*config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	closer, err := config.InitLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, func() { _ = closer.Close() }, nil
}
