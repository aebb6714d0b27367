// Package config 提供配置加载和管理功能
package config

import (
	"fmt"
	"time"
)

// Config 应用配置根结构
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Services ServicesConfig `mapstructure:"services"`
	Script   ScriptConfig   `mapstructure:"script"`
	Images   ImagesConfig   `mapstructure:"images"`
	Video    VideoConfig    `mapstructure:"video"`
	Session  SessionConfig  `mapstructure:"session"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Env     string `mapstructure:"env"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// Addr 监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ServicesConfig 外部生成服务地址
type ServicesConfig struct {
	ScriptBaseURL string        `mapstructure:"script_base_url"`
	ImageBaseURL  string        `mapstructure:"image_base_url"`
	VideoBaseURL  string        `mapstructure:"video_base_url"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	Mock          bool          `mapstructure:"mock"`
}

// ScriptConfig 脚本生成配置
type ScriptConfig struct {
	// Backend 取值 http 或 ark
	Backend       string        `mapstructure:"backend"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRegenerate int           `mapstructure:"max_regenerate"`
	ArkModel      string        `mapstructure:"ark_model"`
	ArkAPIKey     string        `mapstructure:"ark_api_key"`
}

// ImagesConfig 图片生成配置
type ImagesConfig struct {
	PerPrompt   int           `mapstructure:"per_prompt"`
	StartIndex  int           `mapstructure:"start_index"`
	Timeout     time.Duration `mapstructure:"timeout"`
	EditTimeout time.Duration `mapstructure:"edit_timeout"`
	DownloadDir string        `mapstructure:"download_dir"`
}

// VideoConfig 影片合成的固定渲染参数
type VideoConfig struct {
	Timeout            time.Duration `mapstructure:"timeout"`
	Style              string        `mapstructure:"style"`
	Duration           float64       `mapstructure:"duration"`
	FPS                int           `mapstructure:"fps"`
	TransitionDuration float64       `mapstructure:"transition_duration"`
	OutroDuration      float64       `mapstructure:"outro_duration"`
	// ShortEdge 画面短边像素，宽高按画面比例推导
	ShortEdge int `mapstructure:"short_edge"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	IdleTTL       time.Duration `mapstructure:"idle_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
