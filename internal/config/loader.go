package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，如 WIZARD_SERVICES_SCRIPT_BASE_URL
const EnvPrefix = "WIZARD"

var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 加载配置：默认值 -> 配置文件 -> 环境变量
// path 为空时只使用默认值与环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if path != "" {
		if err := loadConfigFile(v, path); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFile 读取文件并展开 ${VAR:default} 占位符
func loadConfigFile(v *viper.Viper, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.ReadConfig(strings.NewReader(expandEnv(string(content)))); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		sub := envPattern.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(sub[1]); ok {
			return val
		}
		if sub[2] != "" {
			return sub[3]
		}
		return match
	})
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "scriptwizard")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("services.script_base_url", "https://dyscriptgenerator.onrender.com")
	v.SetDefault("services.image_base_url", "https://imagegenerator.onrender.com")
	v.SetDefault("services.video_base_url", "https://videogenerator-ayob.onrender.com")
	v.SetDefault("services.http_timeout", "15m")
	v.SetDefault("services.mock", false)

	v.SetDefault("script.backend", "http")
	v.SetDefault("script.timeout", "2m")
	v.SetDefault("script.max_regenerate", 3)
	v.SetDefault("script.ark_model", "")
	v.SetDefault("script.ark_api_key", "")

	v.SetDefault("images.per_prompt", 1)
	v.SetDefault("images.start_index", 1)
	v.SetDefault("images.timeout", "5m")
	v.SetDefault("images.edit_timeout", "2m")
	v.SetDefault("images.download_dir", "downloads")

	v.SetDefault("video.timeout", "10m")
	v.SetDefault("video.style", "cinematic")
	v.SetDefault("video.duration", 30)
	v.SetDefault("video.fps", 24)
	v.SetDefault("video.transition_duration", 0.5)
	v.SetDefault("video.outro_duration", 2)
	v.SetDefault("video.short_edge", 720)

	v.SetDefault("session.idle_ttl", "2h")
	v.SetDefault("session.sweep_interval", "5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func (c *Config) validate() error {
	switch c.Script.Backend {
	case "http", "ark":
	default:
		return fmt.Errorf("unsupported script backend %q", c.Script.Backend)
	}
	if c.Script.MaxRegenerate < 0 {
		return fmt.Errorf("script.max_regenerate must not be negative")
	}
	if c.Images.PerPrompt < 1 {
		return fmt.Errorf("images.per_prompt must be positive")
	}
	if c.Video.ShortEdge <= 0 || c.Video.FPS <= 0 {
		return fmt.Errorf("video.short_edge and video.fps must be positive")
	}
	return nil
}
