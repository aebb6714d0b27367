package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"scriptwizard/internal/handler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动向导 HTTP 服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := setup(configPath)
		if err != nil {
			return err
		}
		defer closeLog()
		if cfg.App.Version == "" {
			cfg.App.Version = version
		}
		if cfg.App.Env == "production" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		sessions := a.newManager()
		go sessions.Run(ctx, cfg.Session.SweepInterval)

		router := handler.NewRouter(cfg,
			handler.NewWizardHandler(sessions, cfg.Images.DownloadDir),
			handler.NewToolsHandler(a.registry),
		)

		srv := &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}

		errCh := make(chan error, 1)
		go func() {
			logrus.WithField("addr", srv.Addr).WithField("mock", cfg.Services.Mock).Info("服务器启动")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		logrus.Info("关闭服务器...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logrus.Info("服务器已关闭")
		return nil
	},
}

func init() {
	// 进程内没有日志配置之前也保证输出格式一致
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stdout)
}
