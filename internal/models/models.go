package models

import (
	"encoding/json"
	"time"
)

// Node 面板节点模型
type Node struct {
	UUID              string `json:"uuid"`              // 节点UUID
	Name              string `json:"name"`              // 节点名称（展示用，不保证唯一）
	Address           string `json:"address"`           // 主机地址
	Port              int    `json:"port"`              // 端口
	IsConnected       bool   `json:"isConnected"`       // 面板是否已连接节点
	IsNodeOnline      bool   `json:"isNodeOnline"`      // 节点是否在线
	IsXrayRunning     bool   `json:"isXrayRunning"`     // Xray是否运行中
	IsDisabled        bool   `json:"isDisabled"`        // 是否被禁用
	UsersOnline       int    `json:"usersOnline"`       // 在线用户数
	TrafficUsedBytes  int64  `json:"trafficUsedBytes"`  // 已用流量
	TrafficLimitBytes int64  `json:"trafficLimitBytes"` // 流量上限（0为不限）
	CountryCode       string `json:"countryCode"`       // 国家代码
	XrayVersion       string `json:"xrayVersion"`       // Xray版本
	NodeVersion       string `json:"nodeVersion"`       // 节点版本
}

// 用户状态
const (
	UserStatusActive   = "ACTIVE"
	UserStatusDisabled = "DISABLED"
	UserStatusLimited  = "LIMITED"
	UserStatusExpired  = "EXPIRED"
)

// SquadRef 用户关联的内部分组引用
type SquadRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// User 面板用户模型
type User struct {
	UUID                 string     `json:"uuid"`                   // 用户UUID
	ShortUUID            string     `json:"shortUuid"`              // 短UUID（订阅用）
	Username             string     `json:"username"`               // 用户名
	Status               string     `json:"status"`                 // ACTIVE/DISABLED/LIMITED/EXPIRED
	SubscriptionURL      string     `json:"subscriptionUrl"`        // 订阅链接
	OnlineAt             *time.Time `json:"onlineAt"`               // 最后在线时间
	UsedTrafficBytes     int64      `json:"usedTrafficBytes"`       // 已用流量
	TrafficLimitBytes    int64      `json:"trafficLimitBytes"`      // 流量上限（0为不限）
	ExpireAt             *time.Time `json:"expireAt"`               // 到期时间
	ActiveInternalSquads []SquadRef `json:"activeInternalSquads"`   // 所属分组
	Description          string     `json:"description,omitempty"`  // 描述
	Tag                  string     `json:"tag,omitempty"`          // 标签
	Email                string     `json:"email,omitempty"`        // 邮箱
}

// IsOnline 最近10分钟内有活动视为在线
func (u *User) IsOnline(now time.Time) bool {
	if u.OnlineAt == nil {
		return false
	}
	return now.Sub(*u.OnlineAt) <= 10*time.Minute
}

// Squad 内部分组
type Squad struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// CreateUserRequest 创建用户请求体
type CreateUserRequest struct {
	Username             string   `json:"username"`
	TrafficLimitBytes    int64    `json:"trafficLimitBytes"`
	TrafficLimitStrategy string   `json:"trafficLimitStrategy"` // 固定为 NO_RESET
	ExpireAt             string   `json:"expireAt"`             // ISO-8601 UTC
	ActiveInternalSquads []string `json:"activeInternalSquads,omitempty"`
	Description          string   `json:"description,omitempty"`
	Tag                  string   `json:"tag,omitempty"`
	Email                string   `json:"email,omitempty"`
}

// UserStatusCounts 按状态统计的用户数
type UserStatusCounts struct {
	Active   int `json:"ACTIVE"`
	Disabled int `json:"DISABLED"`
	Limited  int `json:"LIMITED"`
	Expired  int `json:"EXPIRED"`
}

// MemoryStats 面板主机内存信息
type MemoryStats struct {
	Total     int64 `json:"total"`
	Used      int64 `json:"used"`
	Free      int64 `json:"free"`
	Active    int64 `json:"active"`
	Available int64 `json:"available"`
}

// OnlineStats 用户在线统计
type OnlineStats struct {
	OnlineNow   int `json:"onlineNow"`
	LastDay     int `json:"lastDay"`
	LastWeek    int `json:"lastWeek"`
	NeverOnline int `json:"neverOnline"`
}

// SystemUsersStats 用户总量统计
// totalTrafficBytes 在面板侧有时编码为字符串，用 json.Number 兼容两种形式
type SystemUsersStats struct {
	TotalUsers        int              `json:"totalUsers"`
	StatusCounts      UserStatusCounts `json:"statusCounts"`
	TotalTrafficBytes json.Number      `json:"totalTrafficBytes"`
}

// SystemStats 系统统计快照
type SystemStats struct {
	Users       SystemUsersStats `json:"users"`
	Memory      MemoryStats      `json:"memory"`
	OnlineStats OnlineStats      `json:"onlineStats"`
	Uptime      float64          `json:"uptime"` // 秒
}

// BandwidthPeriod 某个统计周期的流量对比
type BandwidthPeriod struct {
	Current    string `json:"current"`
	Previous   string `json:"previous"`
	Difference string `json:"difference"`
}

// BandwidthStats 流量统计快照
type BandwidthStats struct {
	LastTwoDays   BandwidthPeriod `json:"bandwidthLastTwoDays"`
	LastSevenDays BandwidthPeriod `json:"bandwidthLastSevenDays"`
	Last30Days    BandwidthPeriod `json:"bandwidthLast30Days"`
	CalendarMonth BandwidthPeriod `json:"bandwidthCalendarMonth"`
	CurrentYear   BandwidthPeriod `json:"bandwidthCurrentYear"`
}

// InboundStats 入站/出站流量条目
type InboundStats struct {
	Tag      string `json:"tag"`
	Upload   string `json:"upload"`
	Download string `json:"download"`
}

// NodeMetrics 单节点指标
type NodeMetrics struct {
	NodeUUID       string         `json:"nodeUuid"`
	NodeName       string         `json:"nodeName"`
	CountryEmoji   string         `json:"countryEmoji"`
	ProviderName   string         `json:"providerName"`
	UsersOnline    int            `json:"usersOnline"`
	InboundsStats  []InboundStats `json:"inboundsStats"`
	OutboundsStats []InboundStats `json:"outboundsStats"`
}

// NodesMetrics 节点指标快照
type NodesMetrics struct {
	Nodes []NodeMetrics `json:"nodes"`
}

// PM2Process PM2进程状态
type PM2Process struct {
	Name   string `json:"name"`
	Memory string `json:"memory"`
	CPU    string `json:"cpu"`
}

// HealthStats 系统健康快照
type HealthStats struct {
	PM2Stats []PM2Process `json:"pm2Stats"`
}

// RealtimeNodeUsage 节点实时流量
type RealtimeNodeUsage struct {
	NodeUUID         string  `json:"nodeUuid"`
	NodeName         string  `json:"nodeName"`
	CountryCode      string  `json:"countryCode"`
	DownloadBytes    int64   `json:"downloadBytes"`
	UploadBytes      int64   `json:"uploadBytes"`
	TotalBytes       int64   `json:"totalBytes"`
	DownloadSpeedBps float64 `json:"downloadSpeedBps"`
	UploadSpeedBps   float64 `json:"uploadSpeedBps"`
}

// AuditEntry 审计日志条目
type AuditEntry struct {
	ID        string    `json:"id"`
	ActorID   int64     `json:"actor_id"` // Telegram用户ID
	Username  string    `json:"username"` // Telegram用户名
	Action    string    `json:"action"`   // 事件类型：message/callback
	Detail    string    `json:"detail"`   // 消息文本或回调数据
	Allowed   bool      `json:"allowed"`  // 是否通过准入
	Timestamp time.Time `json:"timestamp"`
}
