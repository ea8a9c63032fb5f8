package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/session"
)

type nodeAction int

const (
	nodeActionEnable nodeAction = iota
	nodeActionDisable
	nodeActionRestart
)

// handleManageNodes 拉取节点列表并展示reply键盘
func (b *Bot) handleManageNodes(ctx context.Context, sess *session.Session, chatID int64) {
	b.reply(chatID, "Загружаю список нод...")

	if err := sess.Nodes.LoadNodes(ctx); err != nil {
		logrus.Errorf("拉取节点列表失败: %v", err)
		b.reply(chatID, userFacingError(err))
		return
	}
	sess.Nodes.ClearSelection()

	msg := tgbotapi.NewMessage(chatID, sess.Nodes.Summary()+"\n\nВыберите ноду для управления:")
	msg.ReplyMarkup = nodeListKeyboard(sess.Nodes.Names())
	b.send(msg)
}

// handleNodeSelection 选中节点并展示详情
func (b *Bot) handleNodeSelection(sess *session.Session, chatID int64, name string) {
	node, ok := sess.Nodes.Node(name)
	if !ok {
		b.reply(chatID, "Данные о ноде не найдены. Попробуйте обновить список нод.")
		return
	}

	sess.Nodes.Select(name)

	msg := tgbotapi.NewMessage(chatID, sess.Nodes.FormatNodeInfo(node))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = nodeManagementKeyboard(node)
	sent, err := b.api.Send(msg)
	if err != nil {
		logrus.Errorf("发送节点信息失败: %v", err)
		return
	}
	sess.Nodes.SetLastMessage(sent.MessageID, chatID)
}

// handleNodeAction 执行启用/禁用/重启并调度延迟对账
// 面板异步生效，成功提示后先即时刷新一次，再在延迟后对账
func (b *Bot) handleNodeAction(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery, action nodeAction) {
	name := sess.Nodes.Selected()
	if name == "" {
		b.answerAlert(cb.ID, "Сначала выберите ноду для управления.")
		return
	}

	var (
		result string
		err    error
		delay  = toggleFollowUpDelay
	)
	switch action {
	case nodeActionEnable:
		result, err = sess.Nodes.Enable(ctx, name)
	case nodeActionDisable:
		result, err = sess.Nodes.Disable(ctx, name)
	case nodeActionRestart:
		result, err = sess.Nodes.Restart(ctx, name)
		delay = restartFollowUpDelay
	}
	if err != nil {
		logrus.Errorf("节点操作失败: node=%s err=%v", name, err)
		b.answerAlert(cb.ID, userFacingError(err))
		return
	}

	b.answerAlert(cb.ID, result)
	if _, err := b.refreshNodeView(ctx, sess, name); err != nil {
		// 即时刷新失败不打断操作流程，延迟对账还会再试一次
		logrus.Errorf("操作后刷新节点信息失败: node=%s err=%v", name, err)
	}

	chatID := cb.Message.Chat.ID
	sess.Nodes.ScheduleFollowUp(name, delay, func(name string) {
		b.reconcileNode(sess, chatID, name)
	})
}

// handleRefreshNodeInfo 手动刷新当前节点详情
func (b *Bot) handleRefreshNodeInfo(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery) {
	name := sess.Nodes.Selected()
	if name == "" {
		b.answerAlert(cb.ID, "Сначала выберите ноду для управления.")
		return
	}

	updated, err := b.refreshNodeView(ctx, sess, name)
	switch {
	case err != nil:
		logrus.Errorf("刷新节点信息失败: node=%s err=%v", name, err)
		b.answerAlert(cb.ID, userFacingError(err))
	case updated:
		b.answer(cb.ID, "")
	default:
		b.answerAlert(cb.ID, "ℹ️ Информация уже актуальна, изменений нет")
	}
}

// refreshNodeView 重新拉取节点并编辑最后一条详情消息
// 返回是否真正发生了编辑；内容未变不算错误
func (b *Bot) refreshNodeView(ctx context.Context, sess *session.Session, name string) (bool, error) {
	if err := sess.Nodes.LoadNodes(ctx); err != nil {
		return false, err
	}

	node, ok := sess.Nodes.Node(name)
	if !ok {
		return false, fmt.Errorf("%w: нода не найдена в обновленных данных", session.ErrNotFound)
	}

	ref, hasRef := sess.Nodes.LastMessage()
	if !hasRef {
		return false, nil
	}

	err := b.editMarkdown(ref.ChatID, ref.MessageID, sess.Nodes.FormatNodeInfo(node), nodeManagementKeyboard(node))
	if isNotModified(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// reconcileNode 延迟对账回调
// 在独立goroutine的定时器里执行，panic不外泄，失败只记日志
func (b *Bot) reconcileNode(sess *session.Session, chatID int64, name string) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("延迟对账panic: node=%s r=%v", name, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := sess.Nodes.LoadNodes(ctx); err != nil {
		logrus.Errorf("延迟对账拉取失败: node=%s err=%v", name, err)
		return
	}
	node, ok := sess.Nodes.Node(name)
	if !ok {
		logrus.Warnf("延迟对账时节点已消失: node=%s", name)
		return
	}
	ref, hasRef := sess.Nodes.LastMessage()
	if !hasRef || ref.ChatID != chatID {
		return
	}

	err := b.editMarkdown(ref.ChatID, ref.MessageID, sess.Nodes.FormatNodeInfo(node), nodeManagementKeyboard(node))
	if err != nil && !isNotModified(err) {
		logrus.Errorf("延迟对账编辑失败: node=%s err=%v", name, err)
	}
}

// handleRestartAllPrompt 全量重启二次确认
func (b *Bot) handleRestartAllPrompt(sess *session.Session, chatID int64) {
	count := len(sess.Nodes.Names())
	if count == 0 {
		b.reply(chatID, "⚠️ Сначала загрузите список нод.")
		return
	}

	msg := tgbotapi.NewMessage(chatID,
		fmt.Sprintf("⚠️ Вы уверены, что хотите перезагрузить все ноды (%d нод(ы))?", count))
	msg.ReplyMarkup = restartAllConfirmKeyboard()
	b.send(msg)
}

// handleConfirmRestartAll 确认后触发全量重启
func (b *Bot) handleConfirmRestartAll(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery) {
	b.answer(cb.ID, "")

	result, err := sess.Nodes.RestartAll(ctx)
	if err != nil {
		logrus.Errorf("全量重启失败: %v", err)
		result = userFacingError(err)
	}

	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, result)
	b.send(edit)
}

// handleCancelRestartAll 取消全量重启
func (b *Bot) handleCancelRestartAll(cb *tgbotapi.CallbackQuery) {
	b.answer(cb.ID, "Операция отменена")
	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
		"❌ Перезагрузка всех нод отменена.")
	b.send(edit)
}
