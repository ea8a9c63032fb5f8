package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/session"
)

// handleSystemStats 拉取全部统计并展示类别菜单
func (b *Bot) handleSystemStats(ctx context.Context, sess *session.Session, chatID int64) {
	b.reply(chatID, "Загружаю статистику...")

	if err := sess.Stats.LoadAll(ctx); err != nil {
		logrus.Errorf("拉取统计失败: %v", err)
		b.reply(chatID, userFacingError(err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, "📊 **Статистика системы**\n\nВыберите категорию:")
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = statsCategoriesKeyboard()
	b.send(msg)
}

// handleStatsCallback 统计类回调分发
func (b *Bot) handleStatsCallback(ctx context.Context, sess *session.Session, cb *tgbotapi.CallbackQuery) {
	data := cb.Data

	switch {
	case data == "stats_refresh_all":
		if err := sess.Stats.LoadAll(ctx); err != nil {
			logrus.Errorf("刷新统计失败: %v", err)
			b.answerAlert(cb.ID, userFacingError(err))
			return
		}
		b.answerAlert(cb.ID, "✅ Статистика обновлена")

	case data == "stats_back_to_categories":
		b.answer(cb.ID, "")
		sess.Stats.SetCategory("")
		err := b.editMarkdown(cb.Message.Chat.ID, cb.Message.MessageID,
			"📊 **Статистика системы**\n\nВыберите категорию:", statsCategoriesKeyboard())
		if err != nil && !isNotModified(err) {
			logrus.Errorf("编辑统计菜单失败: %v", err)
		}

	case strings.HasPrefix(data, "stats_"):
		category := strings.TrimPrefix(data, "stats_")
		sess.Stats.SetCategory(category)
		b.renderStatsCategory(sess, cb, category)

	case strings.HasPrefix(data, "refresh_"):
		category := strings.TrimPrefix(data, "refresh_")
		if err := sess.Stats.LoadAll(ctx); err != nil {
			logrus.Errorf("刷新统计失败: %v", err)
			b.answerAlert(cb.ID, userFacingError(err))
			return
		}
		b.renderStatsCategory(sess, cb, category)

	case data == "system_users":
		b.editStatsText(sess, cb, statsSystemUsersText(sess), "system")
	case data == "system_memory":
		b.editStatsText(sess, cb, statsSystemMemoryText(sess), "system")
	case data == "nodes_general":
		b.editStatsText(sess, cb, sess.Stats.FormatNodesGeneral(), "nodes")
	case data == "nodes_detailed":
		b.editStatsText(sess, cb, sess.Stats.FormatNodesDetailed(), "nodes")

	default:
		b.answer(cb.ID, "")
	}
}

// renderStatsCategory 按类别编辑统计文本
func (b *Bot) renderStatsCategory(sess *session.Session, cb *tgbotapi.CallbackQuery, category string) {
	var text string
	switch category {
	case "system":
		text = sess.Stats.FormatSystem()
	case "bandwidth":
		text = sess.Stats.FormatBandwidth()
	case "nodes":
		text = sess.Stats.FormatNodesGeneral()
	case "realtime":
		text = sess.Stats.FormatRealtime()
	case "health":
		text = sess.Stats.FormatHealth()
	default:
		return
	}
	b.editStatsText(sess, cb, text, category)
}

// editStatsText 编辑统计消息并应答回调，内容未变时弹提示
func (b *Bot) editStatsText(sess *session.Session, cb *tgbotapi.CallbackQuery, text, category string) {
	err := b.editMarkdown(cb.Message.Chat.ID, cb.Message.MessageID, text, statsSubcategoryKeyboard(category))
	if isNotModified(err) {
		b.answerAlert(cb.ID, "ℹ️ Информация уже актуальна, изменений нет")
		return
	}
	if err != nil {
		logrus.Errorf("编辑统计消息失败: %v", err)
	}
	b.answer(cb.ID, "")
}

// statsSystemUsersText 系统统计的用户子块
func statsSystemUsersText(sess *session.Session) string {
	stats := sess.Stats.System()
	if stats == nil {
		return "❌ Данные системной статистики недоступны"
	}
	return "👥 **Статистика пользователей**\n\n" + sess.Stats.FormatSystemUsers(stats)
}

// statsSystemMemoryText 系统统计的内存子块
func statsSystemMemoryText(sess *session.Session) string {
	stats := sess.Stats.System()
	if stats == nil {
		return "❌ Данные системной статистики недоступны"
	}
	return sess.Stats.FormatSystemMemory(stats)
}
