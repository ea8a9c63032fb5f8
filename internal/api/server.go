// Package api 运维状态HTTP接口
// 只读，不暴露任何管理能力，listen为空时不启动
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/access"
	"github.com/hzhexee/remnawave-telegram-management-bot/internal/session"
)

// Server 状态接口服务器
type Server struct {
	listen    string
	gate      *access.Gate
	sessions  *session.Registry
	startedAt time.Time
}

// NewServer 创建状态接口服务器
func NewServer(listen string, gate *access.Gate, sessions *session.Registry) *Server {
	return &Server{
		listen:    listen,
		gate:      gate,
		sessions:  sessions,
		startedAt: time.Now(),
	}
}

// Start 启动HTTP服务，阻塞直到出错
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealthz)
	r.GET("/status", s.handleStatus)

	logrus.Infof("状态接口监听于 %s", s.listen)
	return r.Run(s.listen)
}

// handleHealthz 存活探测
func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStatus 运行状态概览
func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"admins":         s.gate.Count(),
		"sessions":       s.sessions.Count(),
	})
}
