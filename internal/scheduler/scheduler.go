// Package scheduler 定时任务
// 目前只有可选的每日统计报告，cron表达式为空时完全不启动
package scheduler

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/access"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/session"
)

// Sender 发送消息的最小接口，*tgbotapi.BotAPI 满足该接口
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Scheduler 定时报告调度器
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	sender  Sender
	gate    *access.Gate
	stats   *session.StatsSession
	timeout func() (context.Context, context.CancelFunc)
}

// New 创建调度器
func New(spec string, sender Sender, gate *access.Gate, stats *session.StatsSession,
	timeout func() (context.Context, context.CancelFunc)) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		spec:    spec,
		sender:  sender,
		gate:    gate,
		stats:   stats,
		timeout: timeout,
	}
}

// Start 注册任务并启动
func (s *Scheduler) Start() error {
	if s.spec == "" {
		logrus.Info("未配置报告cron表达式，跳过定时报告")
		return nil
	}

	if _, err := s.cron.AddFunc(s.spec, s.reportOnce); err != nil {
		return err
	}
	s.cron.Start()
	logrus.Infof("定时报告已启动: %s", s.spec)
	return nil
}

// Stop 停止调度器，等待执行中的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// reportOnce 拉取统计并把摘要发给全部管理员
func (s *Scheduler) reportOnce() {
	ctx, cancel := s.timeout()
	defer cancel()

	if err := s.stats.LoadAll(ctx); err != nil {
		logrus.Errorf("定时报告拉取统计失败: %v", err)
		return
	}

	summary := s.stats.Summary()
	for _, adminID := range s.gate.AdminIDs() {
		msg := tgbotapi.NewMessage(adminID, summary)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := s.sender.Send(msg); err != nil {
			logrus.Errorf("发送定时报告失败: chat=%d err=%v", adminID, err)
		}
	}
}
