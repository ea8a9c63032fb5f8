// Package config 负责加载和管理应用程序的配置
// 使用 viper 库支持 YAML 配置文件和环境变量覆盖
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"` // Telegram配置
	Panel    PanelConfig    `mapstructure:"panel"`    // 面板API配置
	Status   StatusConfig   `mapstructure:"status"`   // 状态接口配置
	Report   ReportConfig   `mapstructure:"report"`   // 定时报告配置
	Log      LogConfig      `mapstructure:"log"`      // 日志配置
	DataDir  string         `mapstructure:"data_dir"` // 数据目录（审计日志）
}

// TelegramConfig Telegram配置
type TelegramConfig struct {
	Token    string `mapstructure:"token"`     // Bot令牌
	AdminIDs string `mapstructure:"admin_ids"` // 管理员ID列表：JSON数组或逗号分隔
}

// PanelConfig 面板API配置
type PanelConfig struct {
	BaseURL string `mapstructure:"base_url"` // 面板基础URL
	Token   string `mapstructure:"token"`    // Bearer令牌
	Cookies string `mapstructure:"cookies"`  // Cookie集合，JSON对象
	IsLocal bool   `mapstructure:"is_local"` // 本地回环部署模式
}

// StatusConfig 状态接口配置
type StatusConfig struct {
	Listen string `mapstructure:"listen"` // 监听地址，空则不启动
}

// ReportConfig 定时报告配置
type ReportConfig struct {
	Cron string `mapstructure:"cron"` // cron表达式，空则不启用
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug/info/warn/error
	Format string `mapstructure:"format"` // json/text
}

// Load 加载配置
// 读取 data 目录下的 config.yml，环境变量（BOT_ 前缀）覆盖同名配置项
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	// 默认值
	v.SetDefault("status.listen", "")
	v.SetDefault("report.cron", "")
	v.SetDefault("panel.cookies", "{}")
	v.SetDefault("panel.is_local", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖：BOT_TELEGRAM_TOKEN、BOT_PANEL_BASE_URL 等
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 配置文件可以不存在，全部走环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !isNotExist(err) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{DataDir: dataDir}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.DataDir = dataDir

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate 启动期校验，缺少关键配置直接拒绝启动
func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token 未配置")
	}
	if c.Panel.BaseURL == "" {
		return fmt.Errorf("panel.base_url 未配置")
	}
	if c.Panel.Token == "" {
		return fmt.Errorf("panel.token 未配置")
	}
	if _, err := ParseAdminIDs(c.Telegram.AdminIDs); err != nil {
		return fmt.Errorf("telegram.admin_ids 非法: %w", err)
	}
	return nil
}

// ParseAdminIDs 解析管理员ID列表
// 支持两种格式：JSON数组（元素可为数字或字符串）或逗号分隔字符串
// 空列表视为错误，不允许隐式放行或全部拒绝
func ParseAdminIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("管理员列表为空")
	}

	var ids []int64

	if strings.HasPrefix(raw, "[") {
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &elems); err != nil {
			return nil, fmt.Errorf("JSON数组解析失败: %w", err)
		}
		for _, e := range elems {
			var n int64
			if err := json.Unmarshal(e, &n); err == nil {
				ids = append(ids, n)
				continue
			}
			var s string
			if err := json.Unmarshal(e, &s); err != nil {
				return nil, fmt.Errorf("数组元素必须是数字或字符串: %s", string(e))
			}
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("数组元素不是合法ID: %q", s)
			}
			ids = append(ids, n)
		}
	} else {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("不是合法ID: %q", part)
			}
			ids = append(ids, n)
		}
	}

	if len(ids) == 0 {
		return nil, fmt.Errorf("管理员列表为空")
	}
	return ids, nil
}

// ParseCookies 解析Cookie配置（JSON对象，键值均为字符串）
func ParseCookies(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]string{}, nil
	}
	cookies := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &cookies); err != nil {
		return nil, fmt.Errorf("cookies 解析失败: %w", err)
	}
	return cookies, nil
}

func isNotExist(err error) bool {
	return strings.Contains(err.Error(), "no such file")
}
