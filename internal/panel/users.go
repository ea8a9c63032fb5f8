package panel

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/models"
)

// usersPayload 用户列表响应载荷
type usersPayload struct {
	Users []models.User `json:"users"`
}

// ListUsers 获取全部用户
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var payload usersPayload
	if err := c.get(ctx, "/api/users", &payload); err != nil {
		return nil, err
	}
	if payload.Users == nil {
		return nil, fmt.Errorf("%w: 缺少 users 字段", ErrMalformed)
	}
	return payload.Users, nil
}

// GetUser 按UUID获取单个用户
func (c *Client) GetUser(ctx context.Context, uuid string) (*models.User, error) {
	var user models.User
	if err := c.get(ctx, "/api/users/"+uuid, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser 创建用户
func (c *Client) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	var user models.User
	if err := c.post(ctx, "/api/users", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// EnableUser 启用用户
func (c *Client) EnableUser(ctx context.Context, uuid string) error {
	return c.post(ctx, fmt.Sprintf("/api/users/%s/actions/enable", uuid), nil, nil)
}

// DisableUser 禁用用户
func (c *Client) DisableUser(ctx context.Context, uuid string) error {
	return c.post(ctx, fmt.Sprintf("/api/users/%s/actions/disable", uuid), nil, nil)
}

// ResetUserTraffic 重置用户流量
func (c *Client) ResetUserTraffic(ctx context.Context, uuid string) error {
	return c.post(ctx, fmt.Sprintf("/api/users/%s/actions/reset-traffic", uuid), nil, nil)
}

// DeleteUser 删除用户
func (c *Client) DeleteUser(ctx context.Context, uuid string) error {
	return c.do(ctx, http.MethodDelete, "/api/users/"+uuid, nil, nil)
}
