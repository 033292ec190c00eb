package server

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidPath 表示请求路径无法映射到根目录之内。
var ErrInvalidPath = errors.New("invalid path")

// PathResolver 把 URL 通配段映射为根目录下的绝对路径，拒绝任何越界访问。
type PathResolver struct {
	root string
}

// NewPathResolver 以 root 为根构建解析器，root 会被转换为绝对路径。
func NewPathResolver(root string) (*PathResolver, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}
	return &PathResolver{root: abs}, nil
}

// Root returns the absolute root directory.
func (r *PathResolver) Root() string {
	return r.root
}

// Resolve 解码并清理 raw；空路径对应根目录本身，包含 ".." 段或 NUL 的路径被拒绝。
func (r *PathResolver) Resolve(raw string) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if strings.ContainsRune(decoded, 0) {
		return "", fmt.Errorf("%w: contains NUL", ErrInvalidPath)
	}
	for _, segment := range strings.Split(decoded, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %s", ErrInvalidPath, decoded)
		}
	}

	rel := strings.TrimPrefix(path.Clean("/"+decoded), "/")
	filePath := filepath.Join(r.root, filepath.FromSlash(rel))
	if filePath != r.root && !strings.HasPrefix(filePath, r.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, decoded)
	}
	return filePath, nil
}

// Relative 返回 abs 相对根目录的 URL 风格路径，位于根目录之外时原样返回。
func (r *PathResolver) Relative(abs string) string {
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return filepath.ToSlash(rel)
}
