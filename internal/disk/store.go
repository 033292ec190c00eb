package disk

import (
	"errors"
	"fmt"

	"github.com/any-hub/mfs/internal/value"
)

// ErrNotFound 表示批量加载的目标路径在调用时不存在。
var ErrNotFound = errors.New("path not found")

// IOError 描述一次无法完成的磁盘读写，Err 保留底层原因。
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// WalkFunc 接收一个已推断类型的文件内容，返回错误会中止遍历。
type WalkFunc func(path string, v value.Value) error
