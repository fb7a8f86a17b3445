package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Chart      ChartConfig      `mapstructure:"chart"`
	Milestones MilestonesConfig `mapstructure:"milestones"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
	// 日志日期与“今天”锚点所用的时区
	Timezone string `mapstructure:"timezone"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres | mysql
	DBPath string `mapstructure:"db_path"`
	DSN    string `mapstructure:"dsn"`
}

// AuthConfig 用户身份配置
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	DevUserHeader string `mapstructure:"dev_user_header"`
}

// ChartConfig 图表缓存配置
type ChartConfig struct {
	CacheTTLSec int `mapstructure:"cache_ttl_sec"`
}

// MilestonesConfig 里程碑对账配置
type MilestonesConfig struct {
	ReconcileCron string `mapstructure:"reconcile_cron"` // 为空则不启用
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := newViper(configPath)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (configPath != "" && errors.Is(err, os.ErrNotExist)) {
			slog.Warn("配置文件未找到，使用默认配置", "path", configPath)
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}

	return decode(v)
}

// Default 返回全部默认值组成的配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		// 默认值由本包控制，解析失败属于编程错误
		panic(err)
	}
	return cfg
}

// Watch 监听配置文件变化，每次变更后重新解析并回调
func Watch(configPath string, onChange func(*Config)) error {
	if onChange == nil {
		return fmt.Errorf("onChange 不能为空")
	}
	v := newViper(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decode(v)
		if err != nil {
			slog.Warn("配置热更新解析失败", "path", e.Name, "error", err)
			return
		}
		slog.Info("配置文件已变更", "path", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// Validate 检查配置组合是否可用
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "sqlite":
		if strings.TrimSpace(c.Storage.DBPath) == "" {
			return fmt.Errorf("storage.db_path 不能为空")
		}
	case "postgres", "mysql":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("storage.driver=%s 时 storage.dsn 不能为空", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("不支持的 storage.driver: %q", c.Storage.Driver)
	}
	if c.Chart.CacheTTLSec < 0 {
		return fmt.Errorf("chart.cache_ttl_sec 不能为负数")
	}
	return nil
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 默认查找路径
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量，例如 HOURS_STORAGE_DRIVER
	v.SetEnvPrefix("HOURS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 处理环境变量占位符
	cfg.Auth.JWTSecret = expandEnv(cfg.Auth.JWTSecret)
	cfg.Storage.DSN = expandEnv(cfg.Storage.DSN)

	// 处理相对路径
	cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	cfg.App.LogPath = resolvePath(cfg.App.LogPath)

	return &cfg, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "hours-tracker")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_path", "")
	v.SetDefault("app.timezone", "UTC")

	// Server
	v.SetDefault("server.listen_addr", "127.0.0.1:8080")

	// Storage
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.db_path", "./data/hours.db")
	v.SetDefault("storage.dsn", "")

	// Auth
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.dev_user_header", "X-User-ID")

	// Chart
	v.SetDefault("chart.cache_ttl_sec", 60)

	// Milestones
	v.SetDefault("milestones.reconcile_cron", "@every 1h")
}

// loadDotEnv 加载当前目录下可选的 .env；已存在的环境变量不会被覆盖
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("加载 .env 失败: %w", err)
	}
	return nil
}

// expandEnv 展开环境变量占位符 ${VAR}
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := s[2 : len(s)-1]
		return os.Getenv(envVar)
	}
	return s
}

// resolvePath 解析相对路径为绝对路径
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	// 获取可执行文件目录
	exe, err := os.Executable()
	if err != nil {
		return path
	}

	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, path)
}
