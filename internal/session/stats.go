package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/format"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/models"
)

// StatsSession 统计会话管理器
// 缓存五类统计快照，整体加载成功才替换
type StatsSession struct {
	api StatsAPI

	mu        sync.RWMutex
	system    *models.SystemStats
	bandwidth *models.BandwidthStats
	nodes     *models.NodesMetrics
	health    *models.HealthStats
	realtime  []models.RealtimeNodeUsage
	loadedAt  time.Time
	category  string // 当前查看的统计类别
}

// NewStatsSession 创建统计会话管理器
func NewStatsSession(api StatsAPI) *StatsSession {
	return &StatsSession{api: api}
}

// LoadAll 拉取全部统计快照
// 任何一类失败整体不落缓存，旧快照保持可用
func (s *StatsSession) LoadAll(ctx context.Context) error {
	system, err := s.api.SystemStats(ctx)
	if err != nil {
		return fmt.Errorf("системная статистика: %w", err)
	}
	bandwidth, err := s.api.BandwidthStats(ctx)
	if err != nil {
		return fmt.Errorf("статистика трафика: %w", err)
	}
	nodes, err := s.api.NodesMetrics(ctx)
	if err != nil {
		return fmt.Errorf("метрики нод: %w", err)
	}
	health, err := s.api.Health(ctx)
	if err != nil {
		return fmt.Errorf("состояние системы: %w", err)
	}
	realtime, err := s.api.RealtimeUsage(ctx)
	if err != nil {
		return fmt.Errorf("нагрузка в реальном времени: %w", err)
	}

	s.mu.Lock()
	s.system = system
	s.bandwidth = bandwidth
	s.nodes = nodes
	s.health = health
	s.realtime = realtime
	s.loadedAt = time.Now()
	s.mu.Unlock()

	return nil
}

// SetCategory 记录当前查看的统计类别
func (s *StatsSession) SetCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.category = category
}

// Category 当前查看的统计类别
func (s *StatsSession) Category() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.category
}

// Loaded 是否已有快照
func (s *StatsSession) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.loadedAt.IsZero()
}

// LoadedAt 快照拉取时间
func (s *StatsSession) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// System 系统统计快照
func (s *StatsSession) System() *models.SystemStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.system
}

// Bandwidth 流量统计快照
func (s *StatsSession) Bandwidth() *models.BandwidthStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bandwidth
}

// Nodes 节点指标快照
func (s *StatsSession) Nodes() *models.NodesMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes
}

// Health 系统健康快照
func (s *StatsSession) Health() *models.HealthStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

// Realtime 实时流量快照
func (s *StatsSession) Realtime() []models.RealtimeNodeUsage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RealtimeNodeUsage, len(s.realtime))
	copy(out, s.realtime)
	return out
}

// FormatSystem 系统统计展示文本
func (s *StatsSession) FormatSystem() string {
	stats := s.System()
	if stats == nil {
		return "❌ Данные системной статистики недоступны"
	}

	var b strings.Builder
	b.WriteString("🖥 **Системная статистика**\n\n")
	fmt.Fprintf(&b, "⏱ Аптайм: %s\n\n", formatUptime(stats.Uptime))
	b.WriteString(s.FormatSystemUsers(stats))
	b.WriteString("\n")
	b.WriteString(s.FormatSystemMemory(stats))
	return b.String()
}

// FormatSystemUsers 用户统计子块
func (s *StatsSession) FormatSystemUsers(stats *models.SystemStats) string {
	u := stats.Users

	total := "—"
	if bytesVal, err := u.TotalTrafficBytes.Int64(); err == nil {
		total = format.Bytes(bytesVal)
	} else if f, ferr := u.TotalTrafficBytes.Float64(); ferr == nil {
		total = format.Bytes(int64(f))
	}

	var b strings.Builder
	b.WriteString("👥 **Пользователи:**\n")
	fmt.Fprintf(&b, "• Всего: %d\n", u.TotalUsers)
	fmt.Fprintf(&b, "• ✅ Активных: %d\n", u.StatusCounts.Active)
	fmt.Fprintf(&b, "• 🚫 Отключенных: %d\n", u.StatusCounts.Disabled)
	fmt.Fprintf(&b, "• ⚠️ Лимитированных: %d\n", u.StatusCounts.Limited)
	fmt.Fprintf(&b, "• ⏰ Истекших: %d\n", u.StatusCounts.Expired)
	fmt.Fprintf(&b, "• 📊 Общий трафик: %s\n\n", total)
	b.WriteString("🌐 **Онлайн:**\n")
	fmt.Fprintf(&b, "• Сейчас: %d\n", stats.OnlineStats.OnlineNow)
	fmt.Fprintf(&b, "• За день: %d\n", stats.OnlineStats.LastDay)
	fmt.Fprintf(&b, "• За неделю: %d\n", stats.OnlineStats.LastWeek)
	fmt.Fprintf(&b, "• Никогда: %d\n", stats.OnlineStats.NeverOnline)
	return b.String()
}

// FormatSystemMemory 内存子块
func (s *StatsSession) FormatSystemMemory(stats *models.SystemStats) string {
	m := stats.Memory

	var b strings.Builder
	b.WriteString("💾 **Память:**\n")
	fmt.Fprintf(&b, "• Всего: %s\n", format.Bytes(m.Total))
	fmt.Fprintf(&b, "• Использовано: %s\n", format.Bytes(m.Used))
	fmt.Fprintf(&b, "• Свободно: %s\n", format.Bytes(m.Free))
	fmt.Fprintf(&b, "• Доступно: %s\n", format.Bytes(m.Available))
	return b.String()
}

// FormatBandwidth 流量统计展示文本
func (s *StatsSession) FormatBandwidth() string {
	stats := s.Bandwidth()
	if stats == nil {
		return "❌ Данные о трафике недоступны"
	}

	var b strings.Builder
	b.WriteString("📊 **Статистика трафика**\n\n")
	writeBandwidthPeriod(&b, "📅 За 2 дня", stats.LastTwoDays)
	writeBandwidthPeriod(&b, "📅 За 7 дней", stats.LastSevenDays)
	writeBandwidthPeriod(&b, "📅 За 30 дней", stats.Last30Days)
	writeBandwidthPeriod(&b, "📅 Календарный месяц", stats.CalendarMonth)
	writeBandwidthPeriod(&b, "📅 Текущий год", stats.CurrentYear)
	return b.String()
}

func writeBandwidthPeriod(b *strings.Builder, title string, p models.BandwidthPeriod) {
	fmt.Fprintf(b, "%s:\n", title)
	fmt.Fprintf(b, "• Текущий: %s\n", orDash(p.Current))
	fmt.Fprintf(b, "• Предыдущий: %s\n", orDash(p.Previous))
	fmt.Fprintf(b, "• Разница: %s\n\n", orDash(p.Difference))
}

func orDash(v string) string {
	if v == "" {
		return "—"
	}
	return v
}

// FormatNodesGeneral 节点指标概览
func (s *StatsSession) FormatNodesGeneral() string {
	metrics := s.Nodes()
	if metrics == nil || len(metrics.Nodes) == 0 {
		return "❌ Метрики нод недоступны"
	}

	var b strings.Builder
	b.WriteString("🖥 **Метрики нод**\n\n")
	for _, n := range metrics.Nodes {
		fmt.Fprintf(&b, "%s **%s** (%s)\n", orDash(n.CountryEmoji), format.EscapeMarkdown(n.NodeName), format.EscapeMarkdown(n.ProviderName))
		fmt.Fprintf(&b, "• Онлайн: %d\n\n", n.UsersOnline)
	}
	return b.String()
}

// FormatNodesDetailed 节点指标详情，含入站/出站流量
func (s *StatsSession) FormatNodesDetailed() string {
	metrics := s.Nodes()
	if metrics == nil || len(metrics.Nodes) == 0 {
		return "❌ Метрики нод недоступны"
	}

	var b strings.Builder
	b.WriteString("🖥 **Детальные метрики нод**\n\n")
	for _, n := range metrics.Nodes {
		fmt.Fprintf(&b, "%s **%s**\n", orDash(n.CountryEmoji), format.EscapeMarkdown(n.NodeName))
		fmt.Fprintf(&b, "• Онлайн: %d\n", n.UsersOnline)
		if len(n.InboundsStats) > 0 {
			b.WriteString("• Входящие:\n")
			for _, in := range n.InboundsStats {
				fmt.Fprintf(&b, "   `%s`: ↑%s ↓%s\n", in.Tag, orDash(in.Upload), orDash(in.Download))
			}
		}
		if len(n.OutboundsStats) > 0 {
			b.WriteString("• Исходящие:\n")
			for _, out := range n.OutboundsStats {
				fmt.Fprintf(&b, "   `%s`: ↑%s ↓%s\n", out.Tag, orDash(out.Upload), orDash(out.Download))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatRealtime 实时流量展示文本
func (s *StatsSession) FormatRealtime() string {
	usage := s.Realtime()
	if len(usage) == 0 {
		return "❌ Данные о нагрузке недоступны"
	}

	var b strings.Builder
	b.WriteString("⚡ **Нагрузка нод в реальном времени**\n\n")
	for _, n := range usage {
		fmt.Fprintf(&b, "🖥 **%s** (%s)\n", format.EscapeMarkdown(n.NodeName), n.CountryCode)
		fmt.Fprintf(&b, "• Скачано: %s\n", format.Bytes(n.DownloadBytes))
		fmt.Fprintf(&b, "• Загружено: %s\n", format.Bytes(n.UploadBytes))
		fmt.Fprintf(&b, "• Всего: %s\n", format.Bytes(n.TotalBytes))
		fmt.Fprintf(&b, "• Скорость: ↓%s/с ↑%s/с\n\n",
			format.Bytes(int64(n.DownloadSpeedBps)),
			format.Bytes(int64(n.UploadSpeedBps)))
	}
	return b.String()
}

// FormatHealth 系统健康展示文本
func (s *StatsSession) FormatHealth() string {
	health := s.Health()
	if health == nil {
		return "❌ Данные о состоянии системы недоступны"
	}

	var b strings.Builder
	b.WriteString("🏥 **Состояние системы**\n\n")
	if len(health.PM2Stats) == 0 {
		b.WriteString("Нет данных о процессах.")
		return b.String()
	}
	b.WriteString("⚙️ **Процессы PM2:**\n")
	for _, p := range health.PM2Stats {
		fmt.Fprintf(&b, "• `%s`: CPU %s, RAM %s\n", p.Name, orDash(p.CPU), orDash(p.Memory))
	}
	return b.String()
}

// Summary 统计总览，定时报表用
func (s *StatsSession) Summary() string {
	stats := s.System()
	if stats == nil {
		return "❌ Статистика еще не загружена"
	}

	var b strings.Builder
	b.WriteString("📋 **Сводка**\n\n")
	fmt.Fprintf(&b, "👥 Пользователей: %d (онлайн: %d)\n",
		stats.Users.TotalUsers, stats.OnlineStats.OnlineNow)
	if metrics := s.Nodes(); metrics != nil {
		fmt.Fprintf(&b, "🖥 Нод: %d\n", len(metrics.Nodes))
	}
	fmt.Fprintf(&b, "⏱ Аптайм панели: %s\n", formatUptime(stats.Uptime))
	return b.String()
}

// formatUptime 把秒数换算为人读的时长
func formatUptime(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dд %dч %dмин", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dч %dмин", hours, minutes)
	}
	return fmt.Sprintf("%dмин", minutes)
}
