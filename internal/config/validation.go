package config

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("LogLevel", "无法识别的日志级别: "+g.LogLevel)
	}
	if g.LogMaxSize < 0 {
		return newFieldError("LogMaxSize", "不能为负数")
	}
	if g.LogMaxBackups < 0 {
		return newFieldError("LogMaxBackups", "不能为负数")
	}

	cache := c.Cache
	if strings.TrimSpace(cache.RootPath) == "" {
		return newFieldError("RootPath", "不能为空")
	}
	if cache.FlushInterval.DurationValue() <= 0 {
		return newFieldError("FlushInterval", "必须大于 0")
	}
	if cache.IdleThreshold.DurationValue() <= 0 {
		return newFieldError("IdleThreshold", "必须大于 0")
	}
	if cache.EvictInterval.DurationValue() < 0 {
		return newFieldError("EvictInterval", "不能为负数")
	}

	return nil
}
