package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RecoveryAshes/crawlclient/internal/models"
	"github.com/RecoveryAshes/crawlclient/internal/utils"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Server  ServerConfig      `mapstructure:"server"`
	Headers map[string]string `mapstructure:"headers"`
	Logging LoggingConfig     `mapstructure:"logging"`
	UI      UIConfig          `mapstructure:"ui"`
	Report  ReportConfig      `mapstructure:"report"`
}

// ServerConfig 爬取服务配置
type ServerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // 秒, 0表示不设置超时
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Console  bool           `mapstructure:"console"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// UIConfig 交互界面配置
type UIConfig struct {
	Spinner bool `mapstructure:"spinner"`
}

// ReportConfig 会话报告配置
type ReportConfig struct {
	Path string `mapstructure:"path"` // 为空则不生成报告
}

// LoadConfig 加载配置文件
// configPath 为空时按默认路径搜索 config.yaml, 找不到则全部使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".crawlclient"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: err}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{
			FilePath: v.ConfigFileUsed(),
			Cause:    fmt.Errorf("配置绑定失败: %w", err),
		}
	}

	if config.Headers == nil {
		config.Headers = make(map[string]string)
	}

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.base_url", models.DefaultBaseURL)
	v.SetDefault("server.timeout", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.console", false)
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("ui.spinner", true)
	v.SetDefault("report.path", "")
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := models.ValidateURL(c.Server.BaseURL); err != nil {
		return fmt.Errorf("无效的服务地址 %q: %w", c.Server.BaseURL, err)
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("超时时间不能为负数,当前值: %d", c.Server.Timeout)
	}
	return nil
}

// MergeCLIFlags 命令行参数覆盖配置文件
// 空字符串或负数表示未指定
func (c *Config) MergeCLIFlags(server string, timeout int, reportPath string, noSpinner bool, verbose bool) {
	if server != "" {
		c.Server.BaseURL = server
	}
	if timeout >= 0 {
		c.Server.Timeout = timeout
	}
	if reportPath != "" {
		c.Report.Path = reportPath
	}
	if noSpinner {
		c.UI.Spinner = false
	}
	if verbose {
		c.Logging.Console = true
	}
}

// LogConfig 转换为日志系统配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		Console:    c.Logging.Console,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// ClientConfig 提取客户端配置
func (c *Config) ClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL: c.Server.BaseURL,
		Timeout: time.Duration(c.Server.Timeout) * time.Second,
	}
}
