package disk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"

	"github.com/any-hub/mfs/internal/value"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// Store 负责 typed value 与磁盘字节之间的转换，本身不持有缓存状态。
type Store struct {
	fs afero.Fs
}

// NewStore 基于给定的 afero.Fs 构建磁盘层，传入 nil 时使用真实文件系统。
func NewStore(fsys afero.Fs) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Store{fs: fsys}
}

// ReadFile 读取单个文件并推断类型；文件不存在时返回 absent 而不是错误。
func (s *Store) ReadFile(path string) (value.Value, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		if isMissing(err) {
			return value.Absent(), nil
		}
		return value.Value{}, &IOError{Op: "read", Path: path, Err: err}
	}
	if info.IsDir() {
		return value.Value{}, &IOError{Op: "read", Path: path, Err: errors.New("is a directory")}
	}

	content, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if isMissing(err) {
			return value.Absent(), nil
		}
		return value.Value{}, &IOError{Op: "read", Path: path, Err: err}
	}
	return value.Infer(content), nil
}

// WriteFile 覆盖写入 v 的序列化结果，必要时创建父目录。
func (s *Store) WriteFile(path string, v value.Value) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if info, err := s.fs.Stat(path); err == nil && info.IsDir() {
		return &IOError{Op: "write", Path: path, Err: errors.New("is a directory")}
	}
	if err := afero.WriteFile(s.fs, path, v.Encode(), filePerm); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Walk 加载 root：文件直接回调；目录按字典序枚举普通文件，recursive 时下探子目录。
// 符号链接及其它非常规条目会被跳过，root 本身则按 Stat 结果跟随。
func (s *Store) Walk(root string, recursive bool, fn WalkFunc) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", root, err)
	}

	info, err := s.fs.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", abs, ErrNotFound)
		}
		return &IOError{Op: "stat", Path: abs, Err: err}
	}
	if !info.IsDir() {
		return s.visit(abs, fn)
	}
	return s.walkDir(abs, recursive, fn)
}

func (s *Store) walkDir(dir string, recursive bool, fn WalkFunc) error {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return &IOError{Op: "readdir", Path: dir, Err: err}
	}

	for _, entry := range entries {
		child := filepath.Join(dir, entry.Name())
		mode := entry.Mode()
		switch {
		case mode.IsDir():
			if !recursive {
				continue
			}
			if err := s.walkDir(child, recursive, fn); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := s.visit(child, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) visit(path string, fn WalkFunc) error {
	v, err := s.ReadFile(path)
	if err != nil {
		return err
	}
	return fn(path, v)
}

// isMissing 把 "路径中间段是普通文件" 也视为不存在。
func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
