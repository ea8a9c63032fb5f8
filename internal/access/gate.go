// Package access 管理员准入控制
// 允许名单在启动时固定，运行期不可变
package access

import (
	"fmt"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/config"

	"github.com/sirupsen/logrus"
)

// Gate 准入门
type Gate struct {
	admins map[int64]struct{}
	ids    []int64
}

// NewGate 从原始配置串创建准入门
// 名单为空或格式非法时返回错误，进程应据此拒绝启动
func NewGate(rawAdminIDs string) (*Gate, error) {
	ids, err := config.ParseAdminIDs(rawAdminIDs)
	if err != nil {
		return nil, fmt.Errorf("解析管理员名单失败: %w", err)
	}

	admins := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		admins[id] = struct{}{}
	}

	logrus.Infof("已配置 %d 名管理员: %v", len(ids), ids)

	return &Gate{admins: admins, ids: ids}, nil
}

// Authorize 检查操作者是否在允许名单内
func (g *Gate) Authorize(actorID int64) bool {
	_, ok := g.admins[actorID]
	return ok
}

// AdminIDs 返回全部管理员ID（定时报告投递用）
func (g *Gate) AdminIDs() []int64 {
	out := make([]int64, len(g.ids))
	copy(out, g.ids)
	return out
}

// Count 管理员数量
func (g *Gate) Count() int {
	return len(g.ids)
}
