package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/models"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/session"
)

// 主菜单按钮文案，消息路由按原文匹配
const (
	btnManageUsers = "Управление пользователями"
	btnManageNodes = "Управление нодами"
	btnSystemStats = "Статистика системы"

	btnEnableNode     = "🟢 Включить ноду"
	btnDisableNode    = "🔴 Отключить ноду"
	btnRestartNode    = "🔄 Перезагрузить ноду"
	btnRefreshInfo    = "🔍 Обновить информацию"
	btnBackToNodeList = "🔙 Назад к списку нод"
	btnRestartAll     = "🔄 Перезагрузить все ноды"
	btnBack           = "🔙 Назад"
)

// mainKeyboard 主菜单
func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnManageUsers),
			tgbotapi.NewKeyboardButton(btnManageNodes),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSystemStats),
		),
	)
	kb.InputFieldPlaceholder = "Выберите действие"
	return kb
}

// nodeListKeyboard 节点列表，每行两个
func nodeListKeyboard(names []string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(names); i += 2 {
		row := []tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButton(names[i])}
		if i+1 < len(names) {
			row = append(row, tgbotapi.NewKeyboardButton(names[i+1]))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnRestartAll)))
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)))

	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.InputFieldPlaceholder = "Выберите ноду для управления"
	return kb
}

// nodeManagementKeyboard 单节点管理，启用/禁用按当前状态二选一
func nodeManagementKeyboard(node models.Node) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	if node.IsDisabled {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnEnableNode, "enable_node")))
	} else {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnDisableNode, "disable_node")))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnRestartNode, "restart_node")))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnRefreshInfo, "refresh_info")))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnBackToNodeList, "back_to_nodes")))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// restartAllConfirmKeyboard 全量重启二次确认
func restartAllConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Нет", "cancel_restart_all"),
			tgbotapi.NewInlineKeyboardButtonData("✅ Да", "confirm_restart_all"),
		),
	)
}

// usersPageKeyboard 用户分页列表
// 状态和在线各占一个emoji，导航按钮只在有对应方向时出现
func usersPageKeyboard(users *session.UserSession, now time.Time) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for _, u := range users.PageUsers() {
		statusEmoji := "❌"
		if u.Status == models.UserStatusActive {
			statusEmoji = "✅"
		}
		onlineEmoji := "🔴"
		if u.IsOnline(now) {
			onlineEmoji = "🟢"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s%s %s", statusEmoji, onlineEmoji, u.Username),
				"user_select_"+u.UUID,
			)))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if users.Page() > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Предыдущая", "users_prev_page"))
	}
	if users.Page() < users.TotalPages()-1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Следующая ➡️", "users_next_page"))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Создать пользователя", "create_user_menu"),
		tgbotapi.NewInlineKeyboardButtonData("⚡ Быстрое создание", "quick_create_user"),
	))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Обновить список", "refresh_users"),
		tgbotapi.NewInlineKeyboardButtonData(btnBack, "back_to_main"),
	))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("📄 %d/%d", users.Page()+1, users.TotalPages()), "page_info")))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// userManagementKeyboard 单用户管理
func userManagementKeyboard(user models.User) tgbotapi.InlineKeyboardMarkup {
	toggleText := "🟢 Включить"
	if user.Status == models.UserStatusActive {
		toggleText = "🔴 Отключить"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(toggleText, "toggle_user_status"),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Сбросить трафик", "reset_user_traffic"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Получить ссылку", "get_user_link"),
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Удалить", "delete_user"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Обновить", "refresh_user_info"),
			tgbotapi.NewInlineKeyboardButtonData("🔙 К списку", "back_to_users"),
		),
	)
}

// createUserMenuKeyboard 创建方式选择
func createUserMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Пользовательские данные", "create_user_custom")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚡ Быстрое создание (1 месяц)", "create_user_quick")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnBack, "back_to_users")),
	)
}

// customCreateKeyboard 自定义创建向导
// 必填字段前缀 ✅/❌，全部就绪才出现创建按钮
func customCreateKeyboard(draft session.Draft) tgbotapi.InlineKeyboardMarkup {
	mark := func(ok bool) string {
		if ok {
			return "✅"
		}
		return "❌"
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			mark(draft.Username != "")+" Имя пользователя", "set_username")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			mark(draft.ExpireDays > 0)+" Срок действия (дни)", "set_expire_days")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			mark(draft.TrafficLimitSet)+" Лимит трафика (GB)", "set_traffic_limit")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			"📝 Описание (опционально)", "set_description")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			"📧 Email (опционально)", "set_email")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			"🏷️ Тег (опционально)", "set_tag")),
	}

	if draft.Username != "" && draft.ExpireDays > 0 && draft.TrafficLimitSet {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			"✅ Создать пользователя", "proceed_to_squad_selection")))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
		btnBack, "create_user_menu")))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// squadSelectionKeyboard 选择内部分组
// 已选分组带 ✅ 前缀，无分组创建始终可用
func squadSelectionKeyboard(squads []models.Squad, selected []string) tgbotapi.InlineKeyboardMarkup {
	selectedSet := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		selectedSet[id] = struct{}{}
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			"🚫 Без сквадов", "select_squad_none")),
	}
	for _, sq := range squads {
		text := sq.Name
		if _, ok := selectedSet[sq.UUID]; ok {
			text = "✅ " + text
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(text, "select_squad_"+sq.UUID)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
		"✅ Завершить выбор", "finish_squad_selection")))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
		"❌ Отмена", "cancel_user_creation")))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// quickSquadKeyboard 快速创建的分组选择
// 单选，点击即创建，不走草稿
func quickSquadKeyboard(squads []models.Squad) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			"🚫 Без сквада", "quick_squad_none")),
	}
	for _, sq := range squads {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(sq.Name, "quick_squad_"+sq.UUID)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
		"❌ Отмена", "back_to_users")))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// statsCategoriesKeyboard 统计类别菜单
func statsCategoriesKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🖥 Система", "stats_system")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Трафик", "stats_bandwidth")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🖥 Ноды", "stats_nodes")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚡ Реальное время", "stats_realtime")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏥 Состояние", "stats_health")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Обновить все", "stats_refresh_all")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnBack, "back_to_main")),
	)
}

// statsSubcategoryKeyboard 类别内子菜单
func statsSubcategoryKeyboard(category string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	switch category {
	case "system":
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("👥 Пользователи", "system_users")),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("💾 Память", "system_memory")))
	case "nodes":
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📊 Общая информация", "nodes_general")),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📈 Детальная статистика", "nodes_detailed")))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Обновить", "refresh_"+category)))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 К категориям", "stats_back_to_categories")))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
