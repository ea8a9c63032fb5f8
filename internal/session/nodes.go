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

// NodeSession 节点会话管理器
// 缓存最近一次拉取的节点列表和当前选中节点
type NodeSession struct {
	api NodesAPI

	mu       sync.RWMutex
	names    []string                // 按面板返回顺序
	byName   map[string]models.Node  // 名称 -> 节点
	selected string                  // 当前选中节点名，空为未选中
	lastMsg  *MessageRef             // 最后一条可编辑消息
	followUp *time.Timer             // 待执行的延迟刷新，切换选择时取消
}

// NewNodeSession 创建节点会话管理器
func NewNodeSession(api NodesAPI) *NodeSession {
	return &NodeSession{
		api:    api,
		byName: make(map[string]models.Node),
	}
}

// LoadNodes 从面板拉取节点列表并整体替换缓存
// 空列表和畸形响应是不同的错误
func (s *NodeSession) LoadNodes(ctx context.Context) error {
	nodes, err := s.api.ListNodes(ctx)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: ноды не найдены", ErrNotFound)
	}

	names := make([]string, 0, len(nodes))
	byName := make(map[string]models.Node, len(nodes))
	for _, node := range nodes {
		name := node.Name
		if name == "" {
			name = "Node-" + node.UUID
		}
		names = append(names, name)
		byName[name] = node
	}

	s.mu.Lock()
	s.names = names
	s.byName = byName
	s.mu.Unlock()

	return nil
}

// Names 缓存中的节点名列表
func (s *NodeSession) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Node 按名称从缓存获取节点
func (s *NodeSession) Node(name string) (models.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.byName[name]
	return node, ok
}

// Has 节点是否在缓存中
func (s *NodeSession) Has(name string) bool {
	_, ok := s.Node(name)
	return ok
}

// Select 设置当前选中节点
// 选择变化时取消尚未触发的延迟刷新
func (s *NodeSession) Select(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected != name && s.followUp != nil {
		s.followUp.Stop()
		s.followUp = nil
	}
	s.selected = name
}

// ClearSelection 清除选中节点
func (s *NodeSession) ClearSelection() {
	s.Select("")
}

// Selected 当前选中节点名，空为未选中
func (s *NodeSession) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SetLastMessage 记录最后一条可编辑消息
func (s *NodeSession) SetLastMessage(messageID int, chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMsg = &MessageRef{MessageID: messageID, ChatID: chatID}
}

// LastMessage 获取最后一条可编辑消息
func (s *NodeSession) LastMessage() (MessageRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastMsg == nil {
		return MessageRef{}, false
	}
	return *s.lastMsg, true
}

// ClearLastMessage 清除可编辑消息记录
func (s *NodeSession) ClearLastMessage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMsg = nil
}

// Enable 启用节点，UUID从缓存解析，缓存不含该节点时要求先刷新
// 动作本身不刷新缓存，调用方随后重新拉取观察效果
func (s *NodeSession) Enable(ctx context.Context, name string) (string, error) {
	node, ok := s.Node(name)
	if !ok {
		return "", fmt.Errorf("%w: данные о ноде не найдены", ErrNotFound)
	}
	if err := s.api.EnableNode(ctx, node.UUID); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Нода %s была включена!", name), nil
}

// Disable 禁用节点
func (s *NodeSession) Disable(ctx context.Context, name string) (string, error) {
	node, ok := s.Node(name)
	if !ok {
		return "", fmt.Errorf("%w: данные о ноде не найдены", ErrNotFound)
	}
	if err := s.api.DisableNode(ctx, node.UUID); err != nil {
		return "", err
	}
	return fmt.Sprintf("🔴 Нода %s была отключена!", name), nil
}

// Restart 重启节点
func (s *NodeSession) Restart(ctx context.Context, name string) (string, error) {
	node, ok := s.Node(name)
	if !ok {
		return "", fmt.Errorf("%w: данные о ноде не найдены", ErrNotFound)
	}
	if err := s.api.RestartNode(ctx, node.UUID); err != nil {
		return "", err
	}
	return fmt.Sprintf("🔄 Нода %s перезагружается...", name), nil
}

// RestartAll 重启全部节点，要求缓存非空
func (s *NodeSession) RestartAll(ctx context.Context) (string, error) {
	count := len(s.Names())
	if count == 0 {
		return "", fmt.Errorf("%w: список нод не загружен", ErrState)
	}
	if err := s.api.RestartAllNodes(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("🔄 Запущена перезагрузка всех нод (%d нод(ы))...", count), nil
}

// ScheduleFollowUp 调度一次延迟刷新
// 同一会话最多保留一个待执行刷新，重复调度会取消前一个；
// 触发时先做陈旧性检查：操作者已切换到其它节点则不执行
func (s *NodeSession) ScheduleFollowUp(name string, delay time.Duration, fn func(name string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.followUp != nil {
		s.followUp.Stop()
	}
	s.followUp = time.AfterFunc(delay, func() {
		if s.Selected() != name {
			return
		}
		fn(name)
	})
}

// Summary 节点列表摘要
func (s *NodeSession) Summary() string {
	names := s.Names()
	if len(names) == 0 {
		return "Ноды не загружены."
	}

	var b strings.Builder
	b.WriteString("Доступные ноды:")
	for _, name := range names {
		b.WriteString("\n• ")
		b.WriteString(name)
	}
	return b.String()
}

// FormatNodeInfo 把节点信息格式化为展示文本
func (s *NodeSession) FormatNodeInfo(node models.Node) string {
	connected := "❌ Отключена"
	if node.IsConnected {
		connected = "✅ Подключена"
	}
	online := "🔴 Оффлайн"
	if node.IsNodeOnline {
		online = "🟢 Онлайн"
	}
	xray := "❌ Остановлен"
	if node.IsXrayRunning {
		xray = "✅ Запущен"
	}
	state := "✅ Активна"
	if node.IsDisabled {
		state = "🚫 Отключена"
	}

	trafficLimit := "Безлимит"
	if node.TrafficLimitBytes > 0 {
		trafficLimit = format.Bytes(node.TrafficLimitBytes)
	}

	return fmt.Sprintf(`
🔧 **Информация о ноде: %s**

🌐 **Подключение:**
• Адрес: `+"`%s:%d`"+`
• Страна: %s
• Статус подключения: %s
• Статус ноды: %s
• Состояние: %s

⚙️ **Сервисы:**
• Xray: %s
• Версия Xray: %s
• Версия ноды: %s

👥 **Пользователи:**
• Онлайн: %d

📊 **Трафик:**
• Использовано: %s
• Лимит: %s
`,
		node.Name,
		node.Address, node.Port,
		node.CountryCode,
		connected,
		online,
		state,
		xray,
		node.XrayVersion,
		node.NodeVersion,
		node.UsersOnline,
		format.Bytes(node.TrafficUsedBytes),
		trafficLimit,
	)
}
