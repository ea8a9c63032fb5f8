package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/format"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/session"
)

// handleManageUsers 拉取用户列表并展示首页
func (b *Bot) handleManageUsers(ctx context.Context, sess *session.Session, chatID int64) {
	b.reply(chatID, "Загружаю список пользователей...")

	sess.Users.ClearDraft()
	sess.Users.ClearSelection()

	if err := sess.Users.LoadUsers(ctx); err != nil {
		logrus.Errorf("拉取用户列表失败: %v", err)
		b.reply(chatID, "❌ Ошибка загрузки пользователей: "+userFacingError(err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, sess.Users.Summary()+"\n\nВыберите пользователя для управления:")
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = usersPageKeyboard(sess.Users, time.Now())
	sent, err := b.api.Send(msg)
	if err != nil {
		logrus.Errorf("发送用户列表失败: %v", err)
		return
	}
	sess.Users.SetLastMessage(sent.MessageID, chatID)
}

// showUsersList 用当前缓存把消息编辑回列表视图
func (b *Bot) showUsersList(sess *session.Session, chatID int64, messageID int) {
	sess.Users.ClearSelection()

	err := b.editMarkdown(chatID, messageID,
		sess.Users.Summary()+"\n\nВыберите пользователя для управления:",
		usersPageKeyboard(sess.Users, time.Now()))
	if err != nil && !isNotModified(err) {
		logrus.Errorf("编辑用户列表失败: %v", err)
	}
	sess.Users.SetLastMessage(messageID, chatID)
}

// handleUserSelect 按UUID选中用户
func (b *Bot) handleUserSelect(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery, id string) {
	b.answer(cb.ID, "")

	user, err := sess.Users.LookupByUUID(ctx, id)
	if err != nil {
		logrus.Errorf("查找用户失败: uuid=%s err=%v", id, err)
		b.answerAlert(cb.ID, "❌ Пользователь не найден")
		return
	}
	sess.Users.Select(id)

	editErr := b.editMarkdown(cb.Message.Chat.ID, cb.Message.MessageID,
		sess.Users.FormatUserInfo(user), userManagementKeyboard(user))
	if editErr != nil && !isNotModified(editErr) {
		logrus.Errorf("编辑用户信息失败: %v", editErr)
		b.answerAlert(cb.ID, "❌ Ошибка при отображении информации")
	}
}

// handleUsersPagination 翻页，越界时弹提示不动游标
func (b *Bot) handleUsersPagination(sess *session.Session, cb *tgbotapi.CallbackQuery, next bool) {
	if next {
		if !sess.Users.NextPage() {
			b.answerAlert(cb.ID, "Это последняя страница")
			return
		}
	} else {
		if !sess.Users.PrevPage() {
			b.answerAlert(cb.ID, "Это первая страница")
			return
		}
	}
	b.answer(cb.ID, "")
	b.showUsersList(sess, cb.Message.Chat.ID, cb.Message.MessageID)
}

// handleRefreshUsers 重新拉取用户列表
func (b *Bot) handleRefreshUsers(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery) {
	b.answer(cb.ID, "Обновляю список пользователей...")

	if err := sess.Users.LoadUsers(ctx); err != nil {
		logrus.Errorf("刷新用户列表失败: %v", err)
		b.answerAlert(cb.ID, userFacingError(err))
		return
	}
	b.showUsersList(sess, cb.Message.Chat.ID, cb.Message.MessageID)
}

// handleToggleUserStatus 切换选中用户启用状态
func (b *Bot) handleToggleUserStatus(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery) {
	id := sess.Users.Selected()
	if id == "" {
		b.answerAlert(cb.ID, "Сначала выберите пользователя.")
		return
	}

	result, err := sess.Users.ToggleStatus(ctx, id)
	if err != nil {
		logrus.Errorf("切换用户状态失败: uuid=%s err=%v", id, err)
		b.answerAlert(cb.ID, userFacingError(err))
		return
	}
	b.answerAlert(cb.ID, result)
	b.refreshUserCard(ctx, sess, cb, id)
}

// handleResetUserTraffic 重置选中用户流量
func (b *Bot) handleResetUserTraffic(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery) {
	id := sess.Users.Selected()
	if id == "" {
		b.answerAlert(cb.ID, "Сначала выберите пользователя.")
		return
	}

	result, err := sess.Users.ResetTraffic(ctx, id)
	if err != nil {
		logrus.Errorf("重置用户流量失败: uuid=%s err=%v", id, err)
		b.answerAlert(cb.ID, userFacingError(err))
		return
	}
	b.answerAlert(cb.ID, result)
	b.refreshUserCard(ctx, sess, cb, id)
}

// handleUserLink 获取订阅链接，单独发消息避免覆盖详情
func (b *Bot) handleUserLink(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery) {
	id := sess.Users.Selected()
	if id == "" {
		b.answerAlert(cb.ID, "Сначала выберите пользователя.")
		return
	}

	link, err := sess.Users.SubscriptionLink(ctx, id)
	if err != nil {
		logrus.Errorf("获取订阅链接失败: uuid=%s err=%v", id, err)
		b.answerAlert(cb.ID, userFacingError(err))
		return
	}
	b.answer(cb.ID, "")
	if _, err := b.replyMarkdown(cb.Message.Chat.ID, link); err != nil {
		logrus.Errorf("发送订阅链接失败: %v", err)
	}
}

// handleDeleteUser 删除选中用户并回到列表
func (b *Bot) handleDeleteUser(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery) {
	id := sess.Users.Selected()
	if id == "" {
		b.answerAlert(cb.ID, "Сначала выберите пользователя.")
		return
	}

	result, err := sess.Users.Delete(ctx, id)
	if err != nil {
		logrus.Errorf("删除用户失败: uuid=%s err=%v", id, err)
		b.answerAlert(cb.ID, userFacingError(err))
		return
	}
	b.answerAlert(cb.ID, result)
	b.showUsersList(sess, cb.Message.Chat.ID, cb.Message.MessageID)
}

// handleRefreshUserInfo 手动刷新选中用户详情
func (b *Bot) handleRefreshUserInfo(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery) {
	id := sess.Users.Selected()
	if id == "" {
		b.answerAlert(cb.ID, "Сначала выберите пользователя.")
		return
	}
	b.answer(cb.ID, "")
	b.refreshUserCard(ctx, sess, cb, id)
}

// refreshUserCard 重新拉取并按UUID恢复选择，编辑详情消息
func (b *Bot) refreshUserCard(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery, id string) {
	user, err := sess.Users.ReselectByUUID(ctx, id)
	if err != nil {
		logrus.Errorf("刷新用户详情失败: uuid=%s err=%v", id, err)
		return
	}

	editErr := b.editMarkdown(cb.Message.Chat.ID, cb.Message.MessageID,
		sess.Users.FormatUserInfo(user), userManagementKeyboard(user))
	if editErr != nil && !isNotModified(editErr) {
		logrus.Errorf("编辑用户信息失败: %v", editErr)
	}
}

// handleCreateUserMenu 创建方式选择菜单
func (b *Bot) handleCreateUserMenu(sess *session.Session, cb *tgbotapi.CallbackQuery) {
	b.answer(cb.ID, "")
	sess.Users.ClearDraft()

	err := b.editMarkdown(cb.Message.Chat.ID, cb.Message.MessageID,
		"➕ **Создание пользователя**\n\nВыберите способ создания:",
		createUserMenuKeyboard())
	if err != nil && !isNotModified(err) {
		logrus.Errorf("编辑创建菜单失败: %v", err)
		b.answerAlert(cb.ID, "❌ Ошибка при отображении меню")
	}
}

// handleQuickCreate 快速创建入口：先选分组，点击即创建
func (b *Bot) handleQuickCreate(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery) {
	if err := sess.Users.LoadSquads(ctx); err != nil {
		logrus.Errorf("拉取分组列表失败: %v", err)
		b.answerAlert(cb.ID, "❌ Ошибка загрузки сквадов: "+userFacingError(err))
		return
	}

	b.answer(cb.ID, "")
	err := b.editMarkdown(cb.Message.Chat.ID, cb.Message.MessageID,
		"⚡ **Быстрое создание**\n\nВыберите сквад для нового пользователя:",
		quickSquadKeyboard(sess.Users.Squads()))
	if err != nil && !isNotModified(err) {
		logrus.Errorf("编辑分组选择界面失败: %v", err)
	}
}

// handleQuickCreateWithSquad 按选中分组快速创建：随机用户名，30天，不限流量
func (b *Bot) handleQuickCreateWithSquad(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery, squadUUID string) {
	b.answer(cb.ID, "")

	user, err := sess.Users.QuickCreate(ctx, squadUUID)
	if err != nil {
		logrus.Errorf("快速创建用户失败: %v", err)
		b.answerAlert(cb.ID, userFacingError(err))
		return
	}
	logrus.Infof("已快速创建用户: username=%s uuid=%s", user.Username, user.UUID)

	text := "⚡ **Пользователь создан!**\n\n" + sess.Users.FormatUserInfo(user)
	if user.SubscriptionURL != "" {
		text += "\n🔗 **Ссылка:** `" + user.SubscriptionURL + "`"
	}
	editErr := b.editMarkdown(cb.Message.Chat.ID, cb.Message.MessageID, text, userManagementKeyboard(user))
	if editErr != nil && !isNotModified(editErr) {
		logrus.Errorf("编辑创建结果失败: %v", editErr)
	}
	sess.Users.Select(user.UUID)
}

// handleCustomCreateMenu 自定义创建向导界面
func (b *Bot) handleCustomCreateMenu(sess *session.Session, cb *tgbotapi.CallbackQuery) {
	b.answer(cb.ID, "")
	b.renderCustomCreate(sess, cb.Message.Chat.ID, cb.Message.MessageID)
}

// renderCustomCreate 渲染向导状态
func (b *Bot) renderCustomCreate(sess *session.Session, chatID int64, messageID int) {
	draft := sess.Users.DraftState()

	text := "✏️ **Создание пользователя**\n\nЗаполните обязательные поля:\n"
	if draft.Username != "" {
		text += "\n• Имя: " + format.EscapeMarkdown(draft.Username)
	}
	if draft.ExpireDays > 0 {
		text += fmt.Sprintf("\n• Срок: %d дн.", draft.ExpireDays)
	}
	if draft.TrafficLimitSet {
		if draft.TrafficLimitGB == 0 {
			text += "\n• Лимит: без лимита"
		} else {
			text += fmt.Sprintf("\n• Лимит: %.2f GB", draft.TrafficLimitGB)
		}
	}

	err := b.editMarkdown(chatID, messageID, text, customCreateKeyboard(draft))
	if err != nil && !isNotModified(err) {
		logrus.Errorf("编辑向导界面失败: %v", err)
	}
}

// handleSetField 进入字段输入等待状态
func (b *Bot) handleSetField(sess *session.Session, cb *tgbotapi.CallbackQuery) {
	var field session.PendingField
	var prompt string

	switch cb.Data {
	case "set_username":
		field, prompt = session.FieldUsername, "Введите имя пользователя:"
	case "set_expire_days":
		field, prompt = session.FieldExpireDays, "Введите срок действия в днях:"
	case "set_traffic_limit":
		field, prompt = session.FieldTrafficLimit, "Введите лимит трафика в GB (0 — без лимита):"
	case "set_description":
		field, prompt = session.FieldDescription, "Введите описание:"
	case "set_email":
		field, prompt = session.FieldEmail, "Введите email:"
	case "set_tag":
		field, prompt = session.FieldTag, "Введите тег:"
	default:
		b.answer(cb.ID, "")
		return
	}

	sess.Users.AwaitField(field)
	b.answer(cb.ID, "")
	b.reply(cb.Message.Chat.ID, prompt)
}

// handleWizardInput 消费向导文本输入
// 校验失败保持等待状态并发送纠正提示
func (b *Bot) handleWizardInput(sess *session.Session, msg *tgbotapi.Message) {
	hint, err := sess.Users.ConsumeInput(msg.Text)
	if err != nil {
		if hint != "" {
			b.reply(msg.Chat.ID, hint)
		} else {
			b.reply(msg.Chat.ID, userFacingError(err))
		}
		return
	}

	ref, ok := sess.Users.LastMessage()
	if !ok {
		return
	}
	b.renderCustomCreate(sess, ref.ChatID, ref.MessageID)
}

// handleSquadSelectionMenu 进入分组选择
func (b *Bot) handleSquadSelectionMenu(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery) {
	if !sess.Users.DraftReady() {
		b.answerAlert(cb.ID, "⚠️ Сначала заполните обязательные поля.")
		return
	}

	if err := sess.Users.LoadSquads(ctx); err != nil {
		logrus.Errorf("拉取分组列表失败: %v", err)
		b.answerAlert(cb.ID, "❌ Ошибка загрузки сквадов: "+userFacingError(err))
		return
	}

	b.answer(cb.ID, "")
	b.renderSquadSelection(sess, cb.Message.Chat.ID, cb.Message.MessageID)
}

// renderSquadSelection 渲染分组选择界面
func (b *Bot) renderSquadSelection(sess *session.Session, chatID int64, messageID int) {
	draft := sess.Users.DraftState()

	err := b.editMarkdown(chatID, messageID,
		"👥 **Выбор сквадов**\n\nВыберите сквады для нового пользователя:",
		squadSelectionKeyboard(sess.Users.Squads(), draft.Squads))
	if err != nil && !isNotModified(err) {
		logrus.Errorf("编辑分组选择界面失败: %v", err)
	}
}

// handleSquadToggle 切换分组选中状态
func (b *Bot) handleSquadToggle(sess *session.Session, cb *tgbotapi.CallbackQuery, squadID string) {
	b.answer(cb.ID, "")
	if squadID != "none" {
		sess.Users.ToggleSquad(squadID)
	}
	b.renderSquadSelection(sess, cb.Message.Chat.ID, cb.Message.MessageID)
}

// handleFinishCreation 按草稿创建用户
func (b *Bot) handleFinishCreation(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery) {
	b.answer(cb.ID, "")

	user, err := sess.Users.CustomCreate(ctx)
	if err != nil {
		logrus.Errorf("创建用户失败: %v", err)
		b.answerAlert(cb.ID, userFacingError(err))
		return
	}
	logrus.Infof("已创建用户: username=%s uuid=%s", user.Username, user.UUID)

	sess.Users.Select(user.UUID)
	editErr := b.editMarkdown(cb.Message.Chat.ID, cb.Message.MessageID,
		"✅ **Пользователь создан!**\n\n"+sess.Users.FormatUserInfo(user),
		userManagementKeyboard(user))
	if editErr != nil && !isNotModified(editErr) {
		logrus.Errorf("编辑创建结果失败: %v", editErr)
	}
}

// handleCancelCreation 放弃草稿回到列表
func (b *Bot) handleCancelCreation(sess *session.Session, cb *tgbotapi.CallbackQuery) {
	b.answer(cb.ID, "Создание отменено")
	sess.Users.ClearDraft()
	b.showUsersList(sess, cb.Message.Chat.ID, cb.Message.MessageID)
}
