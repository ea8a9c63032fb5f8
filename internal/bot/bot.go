// Package bot Telegram长轮询入口和消息/回调分发
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/access"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/audit"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/panel"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/session"
)

// 面板请求的统一超时
const requestTimeout = 30 * time.Second

// 节点操作后到延迟对账的间隔
const (
	toggleFollowUpDelay  = 3 * time.Second
	restartFollowUpDelay = 5 * time.Second
)

// Bot Telegram机器人
type Bot struct {
	api      *tgbotapi.BotAPI
	gate     *access.Gate
	audit    *audit.Manager
	sessions *session.Registry
}

// New 创建机器人实例并校验token
func New(token string, debug bool, gate *access.Gate, auditMgr *audit.Manager, sessions *session.Registry) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("初始化Telegram API失败: %w", err)
	}
	api.Debug = debug

	logrus.Infof("Telegram机器人已登录: @%s", api.Self.UserName)
	return &Bot{
		api:      api,
		gate:     gate,
		audit:    auditMgr,
		sessions: sessions,
	}, nil
}

// API 底层Telegram客户端，定时报告等组件共用同一连接
func (b *Bot) API() *tgbotapi.BotAPI {
	return b.api
}

// Run 长轮询主循环，ctx取消后退出
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	logrus.Info("开始接收Telegram更新")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			logrus.Info("Telegram轮询已停止")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

// dispatch 分发单条更新，panic不中断轮询
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("处理更新时panic: %v", r)
		}
	}()

	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

// handleMessage 处理文本消息
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	actorID := msg.From.ID
	allowed := b.gate.Authorize(actorID)
	b.audit.LogEvent(actorID, msg.From.UserName, "message", msg.Text, allowed)

	if !allowed {
		logrus.Warnf("拒绝未授权访问: id=%d username=%s", actorID, msg.From.UserName)
		b.reply(msg.Chat.ID, "⛔ У вас нет доступа к этому боту.")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	sess := b.sessions.Get(msg.Chat.ID)

	// 创建向导等待输入时优先消费文本
	if msg.Text != "" && !strings.HasPrefix(msg.Text, "/") && sess.Users.Pending() != session.FieldNone {
		b.handleWizardInput(sess, msg)
		return
	}

	switch msg.Text {
	case "/start":
		b.sendWelcome(msg.Chat.ID)
	case "/help":
		b.sendHelp(msg.Chat.ID)
	case btnManageUsers:
		b.handleManageUsers(ctx, sess, msg.Chat.ID)
	case btnManageNodes:
		b.handleManageNodes(ctx, sess, msg.Chat.ID)
	case btnSystemStats:
		b.handleSystemStats(ctx, sess, msg.Chat.ID)
	case btnBack:
		b.sendWelcome(msg.Chat.ID)
	case btnRestartAll:
		b.handleRestartAllPrompt(sess, msg.Chat.ID)
	default:
		// 节点名按钮来自reply键盘，按缓存匹配
		if sess.Nodes.Has(msg.Text) {
			b.handleNodeSelection(sess, msg.Chat.ID, msg.Text)
			return
		}
		b.reply(msg.Chat.ID, "Неизвестная команда. Используйте /help.")
	}
}

// handleCallback 处理инлайн按钮回调
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	actorID := cb.From.ID
	allowed := b.gate.Authorize(actorID)
	b.audit.LogEvent(actorID, cb.From.UserName, "callback", cb.Data, allowed)

	if !allowed {
		b.answerAlert(cb.ID, "⛔ Нет доступа")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	sess := b.sessions.Get(cb.Message.Chat.ID)
	data := cb.Data

	switch {
	case data == "enable_node":
		b.handleNodeAction(ctx, sess, cb, nodeActionEnable)
	case data == "disable_node":
		b.handleNodeAction(ctx, sess, cb, nodeActionDisable)
	case data == "restart_node":
		b.handleNodeAction(ctx, sess, cb, nodeActionRestart)
	case data == "refresh_info":
		b.handleRefreshNodeInfo(ctx, sess, cb)
	case data == "back_to_nodes":
		b.answer(cb.ID, "")
		b.handleManageNodes(ctx, sess, cb.Message.Chat.ID)
	case data == "confirm_restart_all":
		b.handleConfirmRestartAll(ctx, sess, cb)
	case data == "cancel_restart_all":
		b.handleCancelRestartAll(cb)

	case strings.HasPrefix(data, "user_select_"):
		b.handleUserSelect(ctx, sess, cb, strings.TrimPrefix(data, "user_select_"))
	case data == "users_next_page":
		b.handleUsersPagination(sess, cb, true)
	case data == "users_prev_page":
		b.handleUsersPagination(sess, cb, false)
	case data == "refresh_users":
		b.handleRefreshUsers(ctx, sess, cb)
	case data == "back_to_users":
		b.answer(cb.ID, "")
		b.showUsersList(sess, cb.Message.Chat.ID, cb.Message.MessageID)
	case data == "back_to_main":
		b.answer(cb.ID, "")
		b.sendWelcome(cb.Message.Chat.ID)
	case data == "page_info":
		b.answer(cb.ID, fmt.Sprintf("Страница %d из %d", sess.Users.Page()+1, sess.Users.TotalPages()))

	case data == "toggle_user_status":
		b.handleToggleUserStatus(ctx, sess, cb)
	case data == "reset_user_traffic":
		b.handleResetUserTraffic(ctx, sess, cb)
	case data == "get_user_link":
		b.handleUserLink(ctx, sess, cb)
	case data == "delete_user":
		b.handleDeleteUser(ctx, sess, cb)
	case data == "refresh_user_info":
		b.handleRefreshUserInfo(ctx, sess, cb)

	case data == "create_user_menu":
		b.handleCreateUserMenu(sess, cb)
	case data == "create_user_quick" || data == "quick_create_user":
		b.handleQuickCreate(ctx, sess, cb)
	case data == "quick_squad_none":
		b.handleQuickCreateWithSquad(ctx, sess, cb, "")
	case strings.HasPrefix(data, "quick_squad_"):
		b.handleQuickCreateWithSquad(ctx, sess, cb, strings.TrimPrefix(data, "quick_squad_"))
	case data == "create_user_custom":
		b.handleCustomCreateMenu(sess, cb)
	case strings.HasPrefix(data, "set_"):
		b.handleSetField(sess, cb)
	case data == "proceed_to_squad_selection":
		b.handleSquadSelectionMenu(ctx, sess, cb)
	case strings.HasPrefix(data, "select_squad_"):
		b.handleSquadToggle(sess, cb, strings.TrimPrefix(data, "select_squad_"))
	case data == "finish_squad_selection":
		b.handleFinishCreation(ctx, sess, cb)
	case data == "cancel_user_creation":
		b.handleCancelCreation(sess, cb)

	case strings.HasPrefix(data, "stats_") || strings.HasPrefix(data, "system_") ||
		strings.HasPrefix(data, "nodes_") || strings.HasPrefix(data, "refresh_"):
		b.handleStatsCallback(ctx, sess, cb)

	default:
		b.answer(cb.ID, "")
	}
}

// sendWelcome 主菜单
func (b *Bot) sendWelcome(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "Добро пожаловать! Выберите действие:")
	msg.ReplyMarkup = mainKeyboard()
	b.send(msg)
}

// sendHelp 帮助信息
func (b *Bot) sendHelp(chatID int64) {
	b.reply(chatID, "Доступные команды:\n"+
		"/start - Начать взаимодействие с ботом\n"+
		"/help - Показать это сообщение\n")
}

// reply 发送纯文本
func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

// replyMarkdown 发送Markdown文本
func (b *Bot) replyMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return b.api.Send(msg)
}

// send 发送消息，失败只记日志
func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		logrus.Errorf("发送消息失败: %v", err)
	}
}

// answer 应答回调，不弹窗
func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		logrus.Errorf("应答回调失败: %v", err)
	}
}

// answerAlert 应答回调并弹窗
func (b *Bot) answerAlert(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		logrus.Errorf("应答回调失败: %v", err)
	}
}

// editMarkdown 编辑消息文本和键盘
// 内容未变时Telegram报错，向上返回给调用方判定
func (b *Bot) editMarkdown(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	edit.ParseMode = tgbotapi.ModeMarkdown
	_, err := b.api.Send(edit)
	return err
}

// isNotModified 编辑结果与原消息相同
func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// userFacingError 把错误分类映射为展示文案
func userFacingError(err error) string {
	switch {
	case errors.Is(err, panel.ErrTransport):
		return "❌ Не удалось связаться с панелью. Попробуйте позже."
	case errors.Is(err, panel.ErrMalformed):
		return "❌ Панель вернула некорректный ответ."
	case errors.Is(err, session.ErrNotFound):
		return "❌ Данные не найдены. Попробуйте обновить список."
	case errors.Is(err, session.ErrState):
		return "⚠️ Сначала выполните предыдущий шаг."
	case errors.Is(err, session.ErrValidation):
		return "❌ Некорректный ввод."
	default:
		return "❌ Произошла ошибка: " + err.Error()
	}
}
