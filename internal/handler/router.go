package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scriptwizard/internal/config"
)

// NewRouter 注册全部路由
func NewRouter(cfg *config.Config, wizardH *WizardHandler, toolsH *ToolsHandler) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(), Logger(), CORS(cfg.Server.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(Metrics())
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.App.Version})
	})

	api := r.Group("/api/wizard")
	api.GET("/info", wizardH.Info)
	api.POST("/sessions", wizardH.Create)

	s := api.Group("/sessions/:id")
	s.GET("", wizardH.Get)
	s.DELETE("", wizardH.Delete)

	s.POST("/advance", wizardH.Advance)
	s.POST("/retreat", wizardH.Retreat)
	s.POST("/jump", wizardH.Jump)

	s.PUT("/fields/:key", wizardH.UpdateField)
	s.PATCH("/fields", wizardH.UpdateFields)

	s.POST("/script", wizardH.GenerateScript)
	s.PUT("/script", wizardH.EditScript)
	s.POST("/script/regenerate", wizardH.RegenerateScript)
	s.GET("/script/download", wizardH.DownloadScript)

	s.POST("/images", wizardH.GenerateImages)
	s.GET("/images/download", wizardH.DownloadImages)
	s.POST("/images/save", wizardH.SaveImages)
	s.PUT("/images/:index/prompt", wizardH.UpdateImagePrompt)
	s.POST("/images/:index/regenerate", wizardH.RegenerateImage)

	s.POST("/video", wizardH.GenerateVideo)

	if toolsH != nil {
		r.GET("/tools", toolsH.List)
		r.POST("/tools/:name", toolsH.Invoke)
	}
	return r
}
