package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/models"
)

type fakeStatsAPI struct {
	system    *models.SystemStats
	bandwidth *models.BandwidthStats
	nodes     *models.NodesMetrics
	health    *models.HealthStats
	realtime  []models.RealtimeNodeUsage

	bandwidthErr error
}

func (f *fakeStatsAPI) SystemStats(ctx context.Context) (*models.SystemStats, error) {
	return f.system, nil
}

func (f *fakeStatsAPI) BandwidthStats(ctx context.Context) (*models.BandwidthStats, error) {
	if f.bandwidthErr != nil {
		return nil, f.bandwidthErr
	}
	return f.bandwidth, nil
}

func (f *fakeStatsAPI) NodesMetrics(ctx context.Context) (*models.NodesMetrics, error) {
	return f.nodes, nil
}

func (f *fakeStatsAPI) Health(ctx context.Context) (*models.HealthStats, error) {
	return f.health, nil
}

func (f *fakeStatsAPI) RealtimeUsage(ctx context.Context) ([]models.RealtimeNodeUsage, error) {
	return f.realtime, nil
}

func fullStatsAPI() *fakeStatsAPI {
	return &fakeStatsAPI{
		system: &models.SystemStats{
			Users:  models.SystemUsersStats{TotalUsers: 12},
			Uptime: 90061, // 1д 1ч 1мин
		},
		bandwidth: &models.BandwidthStats{
			LastTwoDays: models.BandwidthPeriod{Current: "10 GB", Previous: "8 GB", Difference: "+2 GB"},
		},
		nodes:    &models.NodesMetrics{Nodes: []models.NodeMetrics{{NodeName: "de1", UsersOnline: 3}}},
		health:   &models.HealthStats{PM2Stats: []models.PM2Process{{Name: "remnawave", CPU: "2%", Memory: "300 MB"}}},
		realtime: []models.RealtimeNodeUsage{{NodeName: "de1", TotalBytes: 1024}},
	}
}

func TestStatsSessionLoadAll(t *testing.T) {
	t.Parallel()

	s := NewStatsSession(fullStatsAPI())
	assert.False(t, s.Loaded())

	require.NoError(t, s.LoadAll(context.Background()))
	assert.True(t, s.Loaded())
	assert.Equal(t, 12, s.System().Users.TotalUsers)
	assert.Len(t, s.Realtime(), 1)
}

func TestStatsSessionLoadAllAtomicity(t *testing.T) {
	t.Parallel()

	api := fullStatsAPI()
	s := NewStatsSession(api)
	require.NoError(t, s.LoadAll(context.Background()))

	// 某一类失败时整体不落缓存，旧快照保持可读
	api.system = &models.SystemStats{Users: models.SystemUsersStats{TotalUsers: 99}}
	api.bandwidthErr = errors.New("boom")
	err := s.LoadAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, 12, s.System().Users.TotalUsers)
}

func TestStatsSessionFormatNilSafe(t *testing.T) {
	t.Parallel()

	s := NewStatsSession(&fakeStatsAPI{})

	assert.Contains(t, s.FormatSystem(), "недоступны")
	assert.Contains(t, s.FormatBandwidth(), "недоступны")
	assert.Contains(t, s.FormatNodesGeneral(), "недоступны")
	assert.Contains(t, s.FormatNodesDetailed(), "недоступны")
	assert.Contains(t, s.FormatRealtime(), "недоступны")
	assert.Contains(t, s.FormatHealth(), "недоступны")
}

func TestStatsSessionFormatSystem(t *testing.T) {
	t.Parallel()

	s := NewStatsSession(fullStatsAPI())
	require.NoError(t, s.LoadAll(context.Background()))

	text := s.FormatSystem()
	assert.Contains(t, text, "1д 1ч 1мин")
	assert.Contains(t, text, "Всего: 12")
}

func TestStatsSessionCategory(t *testing.T) {
	t.Parallel()

	s := NewStatsSession(&fakeStatsAPI{})
	assert.Empty(t, s.Category())
	s.SetCategory("system")
	assert.Equal(t, "system", s.Category())
}
