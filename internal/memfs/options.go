package memfs

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/any-hub/mfs/internal/logging"
)

const (
	// DefaultFlushInterval 每 10 秒整体落盘一次。
	DefaultFlushInterval = 10 * time.Second
	// DefaultIdleThreshold 超过 5 分钟未访问的条目会被落盘并移出内存。
	DefaultIdleThreshold = 5 * time.Minute
)

// Options 控制 Cache 的初始加载与两个后台任务。
// 任一间隔为负数时关闭对应的后台任务，为零时使用默认值。
type Options struct {
	// Root 非空时在 New 中同步批量加载（目录遍历或单个文件）。
	Root      string
	Recursive bool

	// BaseDir 用于解析相对路径，默认使用进程工作目录。
	BaseDir string

	FlushInterval time.Duration
	IdleThreshold time.Duration
	// EvictInterval 为 0 时与 IdleThreshold 相同。
	EvictInterval time.Duration

	// FlushOnClose 为 true 时 Close 会在停止后台任务后再做一次全量落盘。
	FlushOnClose bool

	Fs     afero.Fs
	Logger *logrus.Logger
	Clock  func() time.Time
}

func (o Options) withDefaults() Options {
	if o.FlushInterval == 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.IdleThreshold <= 0 {
		o.IdleThreshold = DefaultIdleThreshold
	}
	if o.EvictInterval == 0 {
		o.EvictInterval = o.IdleThreshold
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}
