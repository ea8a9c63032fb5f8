package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/format"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/models"
)

// PendingField 向导当前等待输入的字段
type PendingField int

const (
	FieldNone PendingField = iota
	FieldUsername
	FieldExpireDays
	FieldTrafficLimit
	FieldDescription
	FieldEmail
	FieldTag
)

// String 字段的俄文名称，用于提示
func (f PendingField) String() string {
	switch f {
	case FieldUsername:
		return "имя пользователя"
	case FieldExpireDays:
		return "срок действия"
	case FieldTrafficLimit:
		return "лимит трафика"
	case FieldDescription:
		return "описание"
	case FieldEmail:
		return "email"
	case FieldTag:
		return "тег"
	default:
		return ""
	}
}

// Draft 用户创建草稿
type Draft struct {
	Username        string
	ExpireDays      int
	TrafficLimitGB  float64
	TrafficLimitSet bool
	Description     string
	Email           string
	Tag             string
	Squads          []string // 选中的 squad UUID
}

// UserSession 用户会话管理器
// 维护用户列表缓存、分页游标、选中用户和创建向导状态
type UserSession struct {
	api    UsersAPI
	squads SquadsAPI
	now    func() time.Time // 可注入的时钟，测试用

	mu          sync.RWMutex
	users       []models.User
	byUUID      map[string]models.User
	page        int
	selected    string // 选中用户 UUID，空为未选中
	squadsCache []models.Squad
	pending     PendingField
	draft       Draft
	lastMsg     *MessageRef
}

// PageSize 每页展示的用户数
const PageSize = 4

// NewUserSession 创建用户会话管理器
func NewUserSession(api UsersAPI, squads SquadsAPI) *UserSession {
	return &UserSession{
		api:    api,
		squads: squads,
		now:    time.Now,
		byUUID: make(map[string]models.User),
	}
}

// LoadUsers 从面板拉取用户列表并整体替换缓存
// 分页游标夹紧到新的有效范围
func (s *UserSession) LoadUsers(ctx context.Context) error {
	users, err := s.api.ListUsers(ctx)
	if err != nil {
		return err
	}

	byUUID := make(map[string]models.User, len(users))
	for _, u := range users {
		byUUID[u.UUID] = u
	}

	s.mu.Lock()
	s.users = users
	s.byUUID = byUUID
	s.page = clampPage(s.page, len(users))
	s.mu.Unlock()

	return nil
}

func clampPage(page, total int) int {
	last := 0
	if total > 0 {
		last = (total - 1) / PageSize
	}
	if page < 0 {
		return 0
	}
	if page > last {
		return last
	}
	return page
}

// Users 缓存中的用户列表
func (s *UserSession) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out
}

// Page 当前页码，从0开始
func (s *UserSession) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// TotalPages 总页数，空列表为1
func (s *UserSession) TotalPages() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.users) == 0 {
		return 1
	}
	return (len(s.users)-1)/PageSize + 1
}

// PageUsers 当前页的用户切片
func (s *UserSession) PageUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := s.page * PageSize
	if start >= len(s.users) {
		return nil
	}
	end := start + PageSize
	if end > len(s.users) {
		end = len(s.users)
	}
	out := make([]models.User, end-start)
	copy(out, s.users[start:end])
	return out
}

// NextPage 翻到下一页，已是最后一页时返回 false 且不变
func (s *UserSession) NextPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := 0
	if len(s.users) > 0 {
		last = (len(s.users) - 1) / PageSize
	}
	if s.page >= last {
		return false
	}
	s.page++
	return true
}

// PrevPage 翻到上一页，已是第一页时返回 false 且不变
func (s *UserSession) PrevPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page <= 0 {
		return false
	}
	s.page--
	return true
}

// LookupByUUID 按 UUID 查找用户，缓存未命中时回源并写入缓存
func (s *UserSession) LookupByUUID(ctx context.Context, id string) (models.User, error) {
	s.mu.RLock()
	user, ok := s.byUUID[id]
	s.mu.RUnlock()
	if ok {
		return user, nil
	}

	fetched, err := s.api.GetUser(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	if _, exists := s.byUUID[fetched.UUID]; !exists {
		s.users = append(s.users, *fetched)
	}
	s.byUUID[fetched.UUID] = *fetched
	s.mu.Unlock()

	return *fetched, nil
}

// Select 设置当前选中用户
func (s *UserSession) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
}

// ClearSelection 清除选中用户
func (s *UserSession) ClearSelection() {
	s.Select("")
}

// Selected 当前选中用户 UUID
func (s *UserSession) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SetLastMessage 记录最后一条可编辑消息
func (s *UserSession) SetLastMessage(messageID int, chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMsg = &MessageRef{MessageID: messageID, ChatID: chatID}
}

// LastMessage 获取最后一条可编辑消息
func (s *UserSession) LastMessage() (MessageRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastMsg == nil {
		return MessageRef{}, false
	}
	return *s.lastMsg, true
}

// ToggleStatus 切换用户启用状态
// ACTIVE 状态的用户被禁用，其余状态被启用
func (s *UserSession) ToggleStatus(ctx context.Context, id string) (string, error) {
	user, err := s.LookupByUUID(ctx, id)
	if err != nil {
		return "", err
	}

	action := "включен"
	if user.Status == models.UserStatusActive {
		action = "отключен"
		err = s.api.DisableUser(ctx, id)
	} else {
		err = s.api.EnableUser(ctx, id)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Пользователь **%s** успешно %s!", format.EscapeMarkdown(user.Username), action), nil
}

// ResetTraffic 重置用户流量
func (s *UserSession) ResetTraffic(ctx context.Context, id string) (string, error) {
	user, err := s.LookupByUUID(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.api.ResetUserTraffic(ctx, id); err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Трафик пользователя **%s** сброшен!", format.EscapeMarkdown(user.Username)), nil
}

// Delete 删除用户
// 未在缓存中的用户直接报错且不改动任何状态；
// 删除成功后乐观地移出缓存，被删用户是当前选中时清除选择
func (s *UserSession) Delete(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	user, ok := s.byUUID[id]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: пользователь не найден", ErrNotFound)
	}

	if err := s.api.DeleteUser(ctx, id); err != nil {
		return "", err
	}

	s.mu.Lock()
	delete(s.byUUID, id)
	for i, u := range s.users {
		if u.UUID == id {
			s.users = append(s.users[:i], s.users[i+1:]...)
			break
		}
	}
	if s.selected == id {
		s.selected = ""
	}
	s.page = clampPage(s.page, len(s.users))
	s.mu.Unlock()

	return fmt.Sprintf("🗑 Пользователь **%s** удален!", format.EscapeMarkdown(user.Username)), nil
}

// SubscriptionLink 用户订阅链接
func (s *UserSession) SubscriptionLink(ctx context.Context, id string) (string, error) {
	user, err := s.LookupByUUID(ctx, id)
	if err != nil {
		return "", err
	}
	if user.SubscriptionURL == "" {
		return "", fmt.Errorf("%w: ссылка подписки недоступна", ErrNotFound)
	}
	return fmt.Sprintf("🔗 **Ссылка для %s:**\n\n`%s`", format.EscapeMarkdown(user.Username), user.SubscriptionURL), nil
}

// ReselectByUUID 重新拉取用户列表并恢复对指定用户的选择
// 用于延迟对账后刷新展示
func (s *UserSession) ReselectByUUID(ctx context.Context, id string) (models.User, error) {
	if err := s.LoadUsers(ctx); err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	user, ok := s.byUUID[id]
	if ok {
		s.selected = id
	}
	s.mu.Unlock()

	if !ok {
		return models.User{}, fmt.Errorf("%w: пользователь не найден", ErrNotFound)
	}
	return user, nil
}

// LoadSquads 拉取 squad 列表并整体替换缓存
func (s *UserSession) LoadSquads(ctx context.Context) error {
	squads, err := s.squads.ListSquads(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.squadsCache = squads
	s.mu.Unlock()
	return nil
}

// Squads 缓存中的 squad 列表
func (s *UserSession) Squads() []models.Squad {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Squad, len(s.squadsCache))
	copy(out, s.squadsCache)
	return out
}

// ToggleSquad 在草稿中切换一个 squad 的选中状态
func (s *UserSession) ToggleSquad(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.draft.Squads {
		if existing == id {
			s.draft.Squads = append(s.draft.Squads[:i], s.draft.Squads[i+1:]...)
			return
		}
	}
	s.draft.Squads = append(s.draft.Squads, id)
}

// AwaitField 进入等待某字段输入的状态
// 允许在未消费输入时直接切换到另一字段
func (s *UserSession) AwaitField(field PendingField) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = field
}

// Pending 当前等待输入的字段
func (s *UserSession) Pending() PendingField {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// ConsumeInput 把一条文本输入写入草稿的待定字段
// 校验失败时保持等待状态并返回纠正提示
func (s *UserSession) ConsumeInput(text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text = strings.TrimSpace(text)

	switch s.pending {
	case FieldNone:
		return "", fmt.Errorf("%w: ввод не ожидается", ErrState)

	case FieldUsername:
		if text == "" {
			return "❌ Имя пользователя не может быть пустым. Попробуйте еще раз:", fmt.Errorf("%w: пустое имя", ErrValidation)
		}
		s.draft.Username = text

	case FieldExpireDays:
		days, err := strconv.Atoi(text)
		if err != nil || days <= 0 {
			return "❌ Введите положительное число дней:", fmt.Errorf("%w: некорректный срок действия", ErrValidation)
		}
		s.draft.ExpireDays = days

	case FieldTrafficLimit:
		lower := strings.ToLower(text)
		if lower == "0" || lower == "unlimited" || lower == "без лимита" {
			s.draft.TrafficLimitGB = 0
			s.draft.TrafficLimitSet = true
			break
		}
		gb, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
		if err != nil || gb < 0 {
			return "❌ Введите число гигабайт (0 — без лимита):", fmt.Errorf("%w: некорректный лимит трафика", ErrValidation)
		}
		s.draft.TrafficLimitGB = gb
		s.draft.TrafficLimitSet = true

	case FieldDescription:
		s.draft.Description = text

	case FieldEmail:
		if text != "" && !strings.Contains(text, "@") {
			return "❌ Введите корректный email:", fmt.Errorf("%w: некорректный email", ErrValidation)
		}
		s.draft.Email = text

	case FieldTag:
		s.draft.Tag = strings.ToUpper(text)
	}

	s.pending = FieldNone
	return "", nil
}

// DraftState 当前草稿的拷贝
func (s *UserSession) DraftState() Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.draft
	out.Squads = make([]string, len(s.draft.Squads))
	copy(out.Squads, s.draft.Squads)
	return out
}

// DraftReady 草稿是否具备创建用户的全部必填字段
func (s *UserSession) DraftReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft.Username != "" && s.draft.ExpireDays > 0 && s.draft.TrafficLimitSet
}

// ClearDraft 丢弃草稿和等待状态
func (s *UserSession) ClearDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = Draft{}
	s.pending = FieldNone
}

// QuickCreate 用默认参数快速创建用户
// 随机用户名，30天有效期，不限流量；squadUUID为空表示不加入任何分组
func (s *UserSession) QuickCreate(ctx context.Context, squadUUID string) (models.User, error) {
	username := "user_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	expireAt := s.now().UTC().Add(30 * 24 * time.Hour).Format(time.RFC3339)

	squads := []string{}
	if squadUUID != "" {
		squads = append(squads, squadUUID)
	}

	req := models.CreateUserRequest{
		Username:             username,
		TrafficLimitBytes:    0,
		TrafficLimitStrategy: "NO_RESET",
		ExpireAt:             expireAt,
		Description:          "Быстро созданный пользователь",
		ActiveInternalSquads: squads,
	}

	user, err := s.api.CreateUser(ctx, req)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	s.users = append(s.users, *user)
	s.byUUID[user.UUID] = *user
	s.mu.Unlock()

	return *user, nil
}

// CustomCreate 按草稿创建用户
// 流量限额按 GB*1024^3 换算为字节，有效期换算为 UTC 绝对时间
func (s *UserSession) CustomCreate(ctx context.Context) (models.User, error) {
	s.mu.RLock()
	draft := s.draft
	ready := draft.Username != "" && draft.ExpireDays > 0 && draft.TrafficLimitSet
	s.mu.RUnlock()

	if !ready {
		return models.User{}, fmt.Errorf("%w: черновик заполнен не полностью", ErrState)
	}

	req := models.CreateUserRequest{
		Username:             draft.Username,
		TrafficLimitBytes:    int64(draft.TrafficLimitGB * 1024 * 1024 * 1024),
		TrafficLimitStrategy: "NO_RESET",
		ExpireAt:             s.now().UTC().Add(time.Duration(draft.ExpireDays) * 24 * time.Hour).Format(time.RFC3339),
		Description:          draft.Description,
		Email:                draft.Email,
		Tag:                  draft.Tag,
		ActiveInternalSquads: draft.Squads,
	}
	if req.ActiveInternalSquads == nil {
		req.ActiveInternalSquads = []string{}
	}

	user, err := s.api.CreateUser(ctx, req)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	s.users = append(s.users, *user)
	s.byUUID[user.UUID] = *user
	s.draft = Draft{}
	s.pending = FieldNone
	s.mu.Unlock()

	return *user, nil
}

// Summary 用户统计摘要
func (s *UserSession) Summary() string {
	users := s.Users()
	if len(users) == 0 {
		return "Пользователи не загружены."
	}

	var active, disabled, limited, expired int
	for _, u := range users {
		switch u.Status {
		case models.UserStatusActive:
			active++
		case models.UserStatusDisabled:
			disabled++
		case models.UserStatusLimited:
			limited++
		case models.UserStatusExpired:
			expired++
		}
	}
	return fmt.Sprintf("👥 Всего: %d\n✅ Активных: %d\n🚫 Отключенных: %d\n⚠️ Лимитированных: %d\n⏰ Истекших: %d",
		len(users), active, disabled, limited, expired)
}

// FormatUserInfo 把用户信息格式化为展示文本
func (s *UserSession) FormatUserInfo(user models.User) string {
	now := s.now()

	var statusText string
	switch user.Status {
	case models.UserStatusActive:
		statusText = "✅ Активен"
	case models.UserStatusDisabled:
		statusText = "🚫 Отключен"
	case models.UserStatusLimited:
		statusText = "⚠️ Лимитирован"
	case models.UserStatusExpired:
		statusText = "⏰ Истек"
	default:
		statusText = user.Status
	}

	online := "🔴 Оффлайн"
	if user.IsOnline(now) {
		online = "🟢 Онлайн"
	}

	trafficLimit := "Безлимит"
	if user.TrafficLimitBytes > 0 {
		trafficLimit = format.Bytes(user.TrafficLimitBytes)
	}

	expiry := "Не указан"
	if user.ExpireAt != nil {
		left := int(user.ExpireAt.Sub(now).Hours() / 24)
		if left < 0 {
			expiry = fmt.Sprintf("%s (истек)", user.ExpireAt.Format("02.01.2006"))
		} else {
			expiry = fmt.Sprintf("%s (осталось %d дн.)", user.ExpireAt.Format("02.01.2006"), left)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 **Пользователь: %s**\n\n", format.EscapeMarkdown(user.Username))
	fmt.Fprintf(&b, "📊 **Статус:** %s\n", statusText)
	fmt.Fprintf(&b, "🌐 **Онлайн:** %s\n", online)
	fmt.Fprintf(&b, "📅 **Срок действия:** %s\n\n", expiry)
	fmt.Fprintf(&b, "📈 **Трафик:**\n")
	fmt.Fprintf(&b, "• Использовано: %s\n", format.Bytes(user.UsedTrafficBytes))
	fmt.Fprintf(&b, "• Лимит: %s\n", trafficLimit)

	if user.Description != "" {
		fmt.Fprintf(&b, "\n📝 **Описание:** %s\n", format.EscapeMarkdown(user.Description))
	}
	if user.Email != "" {
		fmt.Fprintf(&b, "📧 **Email:** %s\n", format.EscapeMarkdown(user.Email))
	}
	if user.Tag != "" {
		fmt.Fprintf(&b, "🏷 **Тег:** %s\n", format.EscapeMarkdown(user.Tag))
	}
	if len(user.ActiveInternalSquads) > 0 {
		names := make([]string, 0, len(user.ActiveInternalSquads))
		for _, sq := range user.ActiveInternalSquads {
			names = append(names, format.EscapeMarkdown(sq.Name))
		}
		fmt.Fprintf(&b, "👥 **Сквады:** %s\n", strings.Join(names, ", "))
	}
	return b.String()
}
