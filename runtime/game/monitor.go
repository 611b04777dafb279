package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/namanjh/socket-huddlegames/common/log"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// StatsSource 房间计数的来源，通常是 Worker
type StatsSource interface {
	Stats(ctx context.Context) (Stats, error)
}

// Monitor 监控器
// 定期收集房间数、玩家数和主机 CPU/内存，保存最近一次结果供 /health 使用
type Monitor struct {
	source         StatsSource
	updateInterval time.Duration
	latest         atomic.Pointer[LoadInfo]
	stopCh         chan struct{}
	stopOnce       sync.Once

	// 测试时替换
	cpuPercent func() (float64, error)
	memPercent func() (float64, error)
}

// NewMonitor 创建监控器
// updateInterval: 更新间隔（建议 5-10 秒）
func NewMonitor(source StatsSource, updateInterval time.Duration) *Monitor {
	if updateInterval <= 0 {
		updateInterval = 10 * time.Second
	}
	return &Monitor{
		source:         source,
		updateInterval: updateInterval,
		stopCh:         make(chan struct{}),
		cpuPercent:     hostCPUPercent,
		memPercent:     hostMemPercent,
	}
}

// Start 阻塞运行，定期收集负载信息
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()

	// 立即执行一次
	m.Collect(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info("Monitor 收到停止信号，退出监控")
			return
		case <-m.stopCh:
			log.Info("Monitor 已停止")
			return
		case <-ticker.C:
			m.Collect(ctx)
		}
	}
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// Latest 最近一次的负载信息，还没收集过时返回 nil
func (m *Monitor) Latest() *LoadInfo {
	return m.latest.Load()
}

// Collect 收集一次负载信息
func (m *Monitor) Collect(ctx context.Context) *LoadInfo {
	info := &LoadInfo{CollectedAt: time.Now()}

	queryCtx, cancel := context.WithTimeout(ctx, m.updateInterval)
	stats, err := m.source.Stats(queryCtx)
	cancel()
	if err != nil {
		log.Warn("Monitor 获取房间统计失败: %v", err)
	} else {
		info.Rooms = stats.Rooms
		info.Players = stats.Players
		info.Games = stats.Games
	}

	if usage, err := m.cpuPercent(); err != nil {
		log.Warn("Monitor 获取 CPU 使用率失败: %v", err)
	} else {
		info.CPUUsage = usage
	}
	if usage, err := m.memPercent(); err != nil {
		log.Warn("Monitor 获取内存使用率失败: %v", err)
	} else {
		info.MemUsage = usage
	}

	info.Load = info.CalculateLoad()
	m.latest.Store(info)

	log.Debug("Monitor 负载: Load=%.2f, Rooms=%d, Players=%d, CPU=%.2f%%, Mem=%.2f%%",
		info.Load, info.Rooms, info.Players, info.CPUUsage, info.MemUsage)
	return info
}

// hostCPUPercent 距上次调用以来整机的 CPU 使用率
func hostCPUPercent() (float64, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

func hostMemPercent() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}
