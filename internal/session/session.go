// Package session 维护每个会话的UI状态
// 节点/用户/统计三个管理器各自缓存最近一次拉取的数据和当前选择，
// 缓存是尽力而为的时点快照，只有显式刷新才会和面板重新同步
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/models"
)

// 会话层错误分类，面板层的 ErrTransport/ErrMalformed 原样向上传递
var (
	// ErrNotFound 引用的节点/用户/分组在缓存或面板中不存在
	ErrNotFound = errors.New("данные не найдены")
	// ErrValidation 操作者输入不符合字段格式
	ErrValidation = errors.New("некорректный ввод")
	// ErrState 缺少前置选择或缓存为空
	ErrState = errors.New("недопустимое состояние")
)

// MessageRef 可编辑消息的定位信息
type MessageRef struct {
	MessageID int
	ChatID    int64
}

// NodesAPI 节点资源上游接口
type NodesAPI interface {
	ListNodes(ctx context.Context) ([]models.Node, error)
	EnableNode(ctx context.Context, uuid string) error
	DisableNode(ctx context.Context, uuid string) error
	RestartNode(ctx context.Context, uuid string) error
	RestartAllNodes(ctx context.Context) error
}

// UsersAPI 用户资源上游接口
type UsersAPI interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, uuid string) (*models.User, error)
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
	EnableUser(ctx context.Context, uuid string) error
	DisableUser(ctx context.Context, uuid string) error
	ResetUserTraffic(ctx context.Context, uuid string) error
	DeleteUser(ctx context.Context, uuid string) error
}

// SquadsAPI 分组资源上游接口
type SquadsAPI interface {
	ListSquads(ctx context.Context) ([]models.Squad, error)
}

// StatsAPI 统计资源上游接口
type StatsAPI interface {
	SystemStats(ctx context.Context) (*models.SystemStats, error)
	BandwidthStats(ctx context.Context) (*models.BandwidthStats, error)
	NodesMetrics(ctx context.Context) (*models.NodesMetrics, error)
	Health(ctx context.Context) (*models.HealthStats, error)
	RealtimeUsage(ctx context.Context) ([]models.RealtimeNodeUsage, error)
}

// API 面板API全集，panel.Client 实现该接口
type API interface {
	NodesAPI
	UsersAPI
	SquadsAPI
	StatsAPI
}

// Session 单个会话的全部UI状态
type Session struct {
	Nodes *NodeSession
	Users *UserSession
	Stats *StatsSession
}

// Registry 会话注册表，按会话ID懒创建
// 每个会话持有独立状态，多管理员互不干扰
type Registry struct {
	api      API
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewRegistry 创建会话注册表
func NewRegistry(api API) *Registry {
	return &Registry{
		api:      api,
		sessions: make(map[int64]*Session),
	}
}

// Get 获取或创建指定会话的状态
func (r *Registry) Get(chatID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[chatID]
	if !ok {
		s = &Session{
			Nodes: NewNodeSession(r.api),
			Users: NewUserSession(r.api, r.api),
			Stats: NewStatsSession(r.api),
		}
		r.sessions[chatID] = s
	}
	return s
}

// Count 当前会话数（状态接口展示用）
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
