package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// knownKeys 列出所有合法的顶层键（小写，与 viper 内部表示一致）。
var knownKeys = map[string]struct{}{
	"listenport":    {},
	"loglevel":      {},
	"logfilepath":   {},
	"logmaxsize":    {},
	"logmaxbackups": {},
	"logcompress":   {},
	"rootpath":      {},
	"recursive":     {},
	"flushinterval": {},
	"idlethreshold": {},
	"evictinterval": {},
	"flushonclose":  {},
}

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	if err := rejectUnknownKeys(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyCacheDefaults(&cfg.Cache)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(cfg.Cache.RootPath)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存根目录: %w", err)
	}
	cfg.Cache.RootPath = absRoot

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("RootPath", "./data")
	v.SetDefault("Recursive", true)
	v.SetDefault("FlushInterval", "10s")
	v.SetDefault("IdleThreshold", "5m")
	v.SetDefault("EvictInterval", "")
	v.SetDefault("FlushOnClose", true)
}

func applyCacheDefaults(c *CacheConfig) {
	if c.FlushInterval.DurationValue() == 0 {
		c.FlushInterval = Duration(10 * time.Second)
	}
	if c.IdleThreshold.DurationValue() == 0 {
		c.IdleThreshold = Duration(5 * time.Minute)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

// rejectUnknownKeys 拒绝拼写错误或不受支持的键，避免配置被静默忽略。
func rejectUnknownKeys(v *viper.Viper) error {
	var unknown []string
	for _, key := range v.AllKeys() {
		top := strings.SplitN(key, ".", 2)[0]
		if _, ok := knownKeys[top]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return newFieldError(unknown[0], "未知配置项")
}
