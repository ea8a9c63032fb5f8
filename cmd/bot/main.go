package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/access"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/api"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/audit"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/bot"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/config"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/logger"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/panel"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/scheduler"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/session"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "数据目录路径")
		configFile = flag.String("config", "", "配置文件路径（默认: data/config.yml）")
		debug      = flag.Bool("debug", false, "启用调试模式")
	)
	flag.Parse()

	// 配置加载前先给个临时级别
	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	// 确保数据目录存在
	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		logrus.Fatalf("创建数据目录失败: %v", err)
	}

	// 设置配置文件路径
	if *configFile == "" {
		*configFile = filepath.Join(*dataDir, "config.yml")
	}

	// 加载配置
	cfg, err := config.Load(*configFile, *dataDir)
	if err != nil {
		logrus.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	logger.Init(cfg.Log, *debug)

	// 管理员名单非法直接退出
	gate, err := access.NewGate(cfg.Telegram.AdminIDs)
	if err != nil {
		logrus.Fatalf("解析管理员名单失败: %v", err)
	}
	logrus.Infof("已加载 %d 个管理员", gate.Count())

	auditMgr := audit.NewManager(cfg.DataDir)
	panelClient, err := panel.New(cfg.Panel)
	if err != nil {
		logrus.Fatalf("初始化面板客户端失败: %v", err)
	}
	sessions := session.NewRegistry(panelClient)

	tgBot, err := bot.New(cfg.Telegram.Token, *debug, gate, auditMgr, sessions)
	if err != nil {
		logrus.Fatalf("初始化机器人失败: %v", err)
	}

	// 可选的只读状态接口
	if cfg.Status.Listen != "" {
		statusServer := api.NewServer(cfg.Status.Listen, gate, sessions)
		go func() {
			if err := statusServer.Start(); err != nil {
				logrus.Errorf("状态接口退出: %v", err)
			}
		}()
	}

	// 可选的定时统计报告
	reportStats := session.NewStatsSession(panelClient)
	sched := scheduler.New(cfg.Report.Cron, tgBot.API(), gate, reportStats, func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), 30*time.Second)
	})
	if err := sched.Start(); err != nil {
		logrus.Fatalf("启动定时报告失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logrus.Info("收到退出信号")
		cancel()
	}()

	if err := tgBot.Run(ctx); err != nil && err != context.Canceled {
		logrus.Fatalf("机器人退出: %v", err)
	}
	sched.Stop()
}
