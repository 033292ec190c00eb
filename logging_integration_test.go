package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestLoggingFallbackToStdout(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	if err := os.WriteFile(blocked, []byte("file, not dir"), 0o644); err != nil {
		t.Fatalf("创建占位文件失败: %v", err)
	}

	logPath := filepath.Join(blocked, "sub", "mfs.log")
	configPath := writeConfigFile(t, fmt.Sprintf(`
LogLevel = "info"
LogFilePath = "%s"
RootPath = "%s"
ListenPort = 5000
`, logPath, filepath.Join(dir, "data")))

	useBufferWriters(t)
	code := run(cliOptions{configPath: configPath, checkOnly: true})
	if code != 0 {
		t.Fatalf("日志 fallback 不应导致失败，得到 %d", code)
	}
}

func TestLoggingWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "logs", "mfs.log")
	configPath := writeConfigFile(t, fmt.Sprintf(`
LogLevel = "debug"
LogFilePath = "%s"
RootPath = "%s"
`, logPath, filepath.Join(dir, "data")))

	useBufferWriters(t)
	if code := run(cliOptions{configPath: configPath, checkOnly: true}); code != 0 {
		t.Fatalf("check-config 应成功，得到 %d", code)
	}
	body, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("日志文件应被创建: %v", err)
	}
	if len(body) == 0 {
		t.Fatalf("日志文件不应为空")
	}
}
