package memfs

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/any-hub/mfs/internal/disk"
	"github.com/any-hub/mfs/internal/value"
)

// ErrNotResident 表示请求落盘的路径当前不在内存中。
var ErrNotResident = errors.New("path not resident in memory")

// EntryInfo 是某个常驻条目的只读快照。
type EntryInfo struct {
	Path       string     `json:"path"`
	Kind       value.Kind `json:"kind"`
	LastAccess time.Time  `json:"last_access"`
}

// Stats 汇总缓存自创建以来的计数。
type Stats struct {
	Resident    int    `json:"resident"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Loads       uint64 `json:"loads"`
	Flushes     uint64 `json:"flushes"`
	FlushErrors uint64 `json:"flush_errors"`
	Evictions   uint64 `json:"evictions"`
}

type entry struct {
	value      value.Value
	lastAccess time.Time
}

// touch 保证 lastAccess 单调不减。
func (e *entry) touch(now time.Time) {
	if now.After(e.lastAccess) {
		e.lastAccess = now
	}
}

// Cache 以单把互斥锁串行化所有 map 访问，包括代表 map 进行的磁盘 I/O。
type Cache struct {
	store   *disk.Store
	logger  *logrus.Logger
	now     func() time.Time
	baseDir string
	opts    Options

	mu      sync.Mutex
	entries map[string]*entry
	stats   Stats

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New 构建 Cache：若设置了 Root 则同步完成批量加载，随后启动两个后台任务。
func New(opts Options) (*Cache, error) {
	opts = opts.withDefaults()

	baseDir, err := filepath.Abs(opts.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}

	c := &Cache{
		store:   disk.NewStore(opts.Fs),
		logger:  opts.Logger,
		now:     opts.Clock,
		baseDir: baseDir,
		opts:    opts,
		entries: make(map[string]*entry),
		done:    make(chan struct{}),
	}

	if opts.Root != "" {
		if err := c.LoadPath(opts.Root, opts.Recursive); err != nil {
			return nil, err
		}
	}

	c.startSweep("flush_sweep", opts.FlushInterval, c.Flush)
	c.startSweep("evict_sweep", opts.EvictInterval, c.EvictIdle)
	return c, nil
}

// Normalize 返回 path 对应的缓存键：基于 BaseDir 的绝对、已清理路径。
func (c *Cache) Normalize(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.baseDir, path)
	}
	return filepath.Clean(path)
}

// LoadPath 将磁盘上的文件或目录批量载入内存，目标不存在时返回 disk.ErrNotFound。
func (c *Cache) LoadPath(path string, recursive bool) error {
	root := c.Normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	loaded := 0
	err := c.store.Walk(root, recursive, func(p string, v value.Value) error {
		c.putLocked(p, v)
		c.stats.Loads++
		loaded++
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"action":    "load",
		"path":      root,
		"recursive": recursive,
		"entries":   loaded,
	}).Debug("load_complete")
	return nil
}

// Exists 仅检查内存，不访问磁盘。
func (c *Cache) Exists(path string) bool {
	key := c.Normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Write 插入或替换条目，只修改内存，落盘由 flush 负责。
func (c *Cache) Write(path string, v value.Value) {
	key := c.Normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, v)
}

// Read 命中时刷新访问时间；未命中时从磁盘加载单个文件并缓存，
// 文件不存在时缓存并返回 absent。
func (c *Cache) Read(path string) (value.Value, error) {
	key := c.Normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.stats.Hits++
		e.touch(c.now())
		return e.value, nil
	}

	c.stats.Misses++
	v, err := c.store.ReadFile(key)
	if err != nil {
		return value.Value{}, err
	}
	c.stats.Loads++
	c.putLocked(key, v)
	return v, nil
}

// Kind 返回常驻条目的类型标签，不刷新访问时间。
func (c *Cache) Kind(path string) (value.Kind, bool) {
	key := c.Normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	return e.value.Kind(), true
}

// Clear 丢弃给定路径的条目，不传参数时清空全部；不会先落盘。
func (c *Cache) Clear(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(paths) == 0 {
		c.entries = make(map[string]*entry)
		return
	}
	for _, p := range paths {
		delete(c.entries, c.Normalize(p))
	}
}

// Persist 把 path 当前的内存值写回磁盘。
func (c *Cache) Persist(path string) error {
	key := c.Normalize(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return fmt.Errorf("persist %s: %w", key, ErrNotResident)
	}
	return c.persistLocked(key, e)
}

// PersistAll 逐个落盘所有常驻条目；单个路径失败不会中断其余路径，
// 返回成功数量以及合并后的错误。
func (c *Cache) PersistAll() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		flushed int
		errs    error
	)
	for _, key := range c.sortedKeysLocked() {
		if err := c.persistLocked(key, c.entries[key]); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		flushed++
	}
	return flushed, errs
}

// Entries 返回按路径排序的常驻条目快照，不刷新访问时间。
func (c *Cache) Entries() []EntryInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.sortedKeysLocked()
	result := make([]EntryInfo, 0, len(keys))
	for _, key := range keys {
		e := c.entries[key]
		result = append(result, EntryInfo{
			Path:       key,
			Kind:       e.value.Kind(),
			LastAccess: e.lastAccess,
		})
	}
	return result
}

// Stats returns a copy of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Resident = len(c.entries)
	return stats
}

func (c *Cache) putLocked(key string, v value.Value) {
	now := c.now()
	if e, ok := c.entries[key]; ok {
		e.value = v
		e.touch(now)
		return
	}
	c.entries[key] = &entry{value: v, lastAccess: now}
}

func (c *Cache) persistLocked(key string, e *entry) error {
	if err := c.store.WriteFile(key, e.value); err != nil {
		c.stats.FlushErrors++
		return err
	}
	c.stats.Flushes++
	return nil
}

func (c *Cache) sortedKeysLocked() []string {
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
