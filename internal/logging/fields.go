package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供 HTTP 请求日志所需的字段：请求 ID、方法、路径、状态码与耗时。
func RequestFields(requestID, method, path string, status int, elapsed time.Duration) logrus.Fields {
	return logrus.Fields{
		"action":     "http_request",
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"status":     status,
		"elapsed_ms": elapsed.Milliseconds(),
	}
}
