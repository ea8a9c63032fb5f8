package panel

import (
	"context"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/models"
)

// squadsPayload 内部分组响应载荷
type squadsPayload struct {
	InternalSquads []models.Squad `json:"internalSquads"`
}

// ListSquads 获取内部分组列表（仅名称和UUID）
func (c *Client) ListSquads(ctx context.Context) ([]models.Squad, error) {
	var payload squadsPayload
	if err := c.get(ctx, "/api/internal-squads", &payload); err != nil {
		return nil, err
	}
	return payload.InternalSquads, nil
}
