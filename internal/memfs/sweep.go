package memfs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// startSweep 以 time.Ticker 驱动 tick；Ticker 最多积压一个 tick，
// 单个 goroutine 保证同一任务不会并发执行。
func (c *Cache) startSweep(action string, interval time.Duration, tick func()) {
	if interval < 0 {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.logger.WithFields(logrus.Fields{
			"action":   action,
			"interval": interval.String(),
		}).Debug("sweep_started")

		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}

// Flush 是定时落盘任务的单次执行体：全量 PersistAll，逐条记录失败路径。
func (c *Cache) Flush() {
	flushed, err := c.PersistAll()
	for _, pathErr := range multierr.Errors(err) {
		c.logger.WithError(pathErr).WithField("action", "flush_sweep").Warn("flush_failed")
	}
	c.logger.WithFields(logrus.Fields{
		"action":  "flush_sweep",
		"flushed": flushed,
		"failed":  len(multierr.Errors(err)),
	}).Debug("flush_complete")
}

// EvictIdle 是闲置淘汰任务的单次执行体：lastAccess + IdleThreshold 早于当前时间的条目
// 先落盘再移出内存；落盘失败的条目保留在内存中，等待下一轮。
func (c *Cache) EvictIdle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for _, key := range c.sortedKeysLocked() {
		e := c.entries[key]
		if !e.lastAccess.Add(c.opts.IdleThreshold).Before(now) {
			continue
		}
		if err := c.persistLocked(key, e); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"action": "evict_sweep",
				"path":   key,
			}).Warn("evict_flush_failed")
			continue
		}
		delete(c.entries, key)
		c.stats.Evictions++
		evicted++
	}

	c.logger.WithFields(logrus.Fields{
		"action":  "evict_sweep",
		"evicted": evicted,
	}).Debug("evict_complete")
}

// Close 停止两个后台任务并等待进行中的 tick 结束；FlushOnClose 时再做一次全量落盘。
// 重复调用是安全的，只有首次调用会执行关闭逻辑。
func (c *Cache) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		stopped := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			err = ctx.Err()
			return
		}

		if c.opts.FlushOnClose {
			_, err = c.PersistAll()
		}
	})
	return err
}
