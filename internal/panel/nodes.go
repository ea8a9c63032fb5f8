package panel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/models"
)

// ListNodes 获取全部节点
func (c *Client) ListNodes(ctx context.Context) ([]models.Node, error) {
	var nodes []models.Node
	if err := c.get(ctx, "/api/nodes", &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// EnableNode 启用节点
func (c *Client) EnableNode(ctx context.Context, uuid string) error {
	return c.post(ctx, fmt.Sprintf("/api/nodes/%s/actions/enable", uuid), nil, nil)
}

// DisableNode 禁用节点
func (c *Client) DisableNode(ctx context.Context, uuid string) error {
	return c.post(ctx, fmt.Sprintf("/api/nodes/%s/actions/disable", uuid), nil, nil)
}

// RestartNode 重启节点
func (c *Client) RestartNode(ctx context.Context, uuid string) error {
	return c.post(ctx, fmt.Sprintf("/api/nodes/%s/actions/restart", uuid), nil, nil)
}

// RestartAllNodes 重启全部节点
func (c *Client) RestartAllNodes(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/nodes/actions/restart-all", nil, nil)
}
