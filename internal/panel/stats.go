package panel

import (
	"context"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/models"
)

// SystemStats 获取系统统计
func (c *Client) SystemStats(ctx context.Context) (*models.SystemStats, error) {
	var stats models.SystemStats
	if err := c.get(ctx, "/api/system/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// BandwidthStats 获取流量统计
func (c *Client) BandwidthStats(ctx context.Context) (*models.BandwidthStats, error) {
	var stats models.BandwidthStats
	if err := c.get(ctx, "/api/system/stats/bandwidth", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// NodesMetrics 获取节点指标
func (c *Client) NodesMetrics(ctx context.Context) (*models.NodesMetrics, error) {
	var metrics models.NodesMetrics
	if err := c.get(ctx, "/api/system/nodes/metrics", &metrics); err != nil {
		return nil, err
	}
	return &metrics, nil
}

// Health 获取系统健康信息
func (c *Client) Health(ctx context.Context) (*models.HealthStats, error) {
	var health models.HealthStats
	if err := c.get(ctx, "/api/system/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// RealtimeUsage 获取节点实时流量
func (c *Client) RealtimeUsage(ctx context.Context) ([]models.RealtimeNodeUsage, error) {
	var usage []models.RealtimeNodeUsage
	if err := c.get(ctx, "/api/nodes/usage/realtime", &usage); err != nil {
		return nil, err
	}
	return usage, nil
}
