// Package animation 提供纯展示用的定时动画任务
package animation

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TaskFunc 每个周期执行一次，返回false时任务自行结束
type TaskFunc func() bool

// Task 可重启的定时任务
type Task struct {
	mu             sync.RWMutex
	name           string
	interval       time.Duration
	fn             TaskFunc
	running        bool
	executionCount int64
	lastExecution  time.Time
	cancel         context.CancelFunc
	done           chan struct{}
}

// NewTask 创建定时任务
func NewTask(name string, interval time.Duration, fn TaskFunc) (*Task, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid interval for task %s: %v", name, interval)
	}
	if fn == nil {
		return nil, fmt.Errorf("task %s has no function", name)
	}
	return &Task{
		name:     name,
		interval: interval,
		fn:       fn,
	}, nil
}

// Name 任务名称
func (t *Task) Name() string {
	return t.name
}

// Start 启动任务
func (t *Task) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("task %s is already running", t.name)
	}
	t.startLocked()
	return nil
}

func (t *Task) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	t.running = true
	go t.run(ctx, t.interval, done)
}

// Stop 停止任务并等待当前周期结束。不能在TaskFunc内部调用。
func (t *Task) Stop() error {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return fmt.Errorf("task %s is not running", t.name)
	}
	cancel, done := t.cancel, t.done
	t.running = false
	t.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Restart 重新启动任务，计数清零
func (t *Task) Restart() error {
	if t.IsRunning() {
		if err := t.Stop(); err != nil {
			return err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return fmt.Errorf("task %s was started concurrently", t.name)
	}
	t.executionCount = 0
	t.startLocked()
	return nil
}

// IsRunning 检查任务是否运行中
func (t *Task) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// SetInterval 设置执行间隔，运行中的任务会以新间隔重启
func (t *Task) SetInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval for task %s: %v", t.name, interval)
	}

	t.mu.Lock()
	t.interval = interval
	running := t.running
	t.mu.Unlock()

	if running {
		if err := t.Stop(); err != nil {
			return err
		}
		return t.Start()
	}
	return nil
}

// ExecutionCount 已执行次数
func (t *Task) ExecutionCount() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.executionCount
}

// GetStats 获取任务统计信息
func (t *Task) GetStats() map[string]interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return map[string]interface{}{
		"name":            t.name,
		"running":         t.running,
		"interval":        t.interval.String(),
		"last_execution":  t.lastExecution,
		"execution_count": t.executionCount,
	}
}

func (t *Task) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		t.mu.Lock()
		if t.done == done {
			t.running = false
		}
		t.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.mu.Lock()
			t.executionCount++
			t.lastExecution = now
			t.mu.Unlock()

			if !t.fn() {
				return
			}
		}
	}
}
