package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/models"
)

type fakeNodesAPI struct {
	nodes      []models.Node
	listErr    error
	enabled    []string
	disabled   []string
	restarted  []string
	restartAll int
}

func (f *fakeNodesAPI) ListNodes(ctx context.Context) ([]models.Node, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Node, len(f.nodes))
	copy(out, f.nodes)
	return out, nil
}

func (f *fakeNodesAPI) EnableNode(ctx context.Context, uuid string) error {
	f.enabled = append(f.enabled, uuid)
	return nil
}

func (f *fakeNodesAPI) DisableNode(ctx context.Context, uuid string) error {
	f.disabled = append(f.disabled, uuid)
	return nil
}

func (f *fakeNodesAPI) RestartNode(ctx context.Context, uuid string) error {
	f.restarted = append(f.restarted, uuid)
	return nil
}

func (f *fakeNodesAPI) RestartAllNodes(ctx context.Context) error {
	f.restartAll++
	return nil
}

func makeNodes(names ...string) []models.Node {
	nodes := make([]models.Node, 0, len(names))
	for i, name := range names {
		nodes = append(nodes, models.Node{
			UUID: "node-uuid-" + name,
			Name: name,
			Port: 443 + i,
		})
	}
	return nodes
}

func TestNodeSessionLoadReplacesCache(t *testing.T) {
	t.Parallel()

	api := &fakeNodesAPI{nodes: makeNodes("de1", "nl1")}
	s := NewNodeSession(api)
	require.NoError(t, s.LoadNodes(context.Background()))
	assert.Equal(t, []string{"de1", "nl1"}, s.Names())

	// 重新拉取后旧条目不残留
	api.nodes = makeNodes("fi1")
	require.NoError(t, s.LoadNodes(context.Background()))
	assert.Equal(t, []string{"fi1"}, s.Names())
	assert.False(t, s.Has("de1"))
}

func TestNodeSessionLoadEmptyList(t *testing.T) {
	t.Parallel()

	s := NewNodeSession(&fakeNodesAPI{})
	err := s.LoadNodes(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNodeSessionActionsResolveUUID(t *testing.T) {
	t.Parallel()

	api := &fakeNodesAPI{nodes: makeNodes("de1")}
	s := NewNodeSession(api)
	require.NoError(t, s.LoadNodes(context.Background()))

	msg, err := s.Enable(context.Background(), "de1")
	require.NoError(t, err)
	assert.Contains(t, msg, "включена")
	assert.Equal(t, []string{"node-uuid-de1"}, api.enabled)

	msg, err = s.Disable(context.Background(), "de1")
	require.NoError(t, err)
	assert.Contains(t, msg, "отключена")

	msg, err = s.Restart(context.Background(), "de1")
	require.NoError(t, err)
	assert.Contains(t, msg, "перезагружается")
}

func TestNodeSessionActionUnknownNode(t *testing.T) {
	t.Parallel()

	api := &fakeNodesAPI{nodes: makeNodes("de1")}
	s := NewNodeSession(api)
	require.NoError(t, s.LoadNodes(context.Background()))

	_, err := s.Enable(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, api.enabled)
}

func TestNodeSessionRestartAllRequiresCache(t *testing.T) {
	t.Parallel()

	api := &fakeNodesAPI{}
	s := NewNodeSession(api)

	_, err := s.RestartAll(context.Background())
	require.ErrorIs(t, err, ErrState)
	assert.Zero(t, api.restartAll)

	api.nodes = makeNodes("de1", "nl1")
	require.NoError(t, s.LoadNodes(context.Background()))
	msg, err := s.RestartAll(context.Background())
	require.NoError(t, err)
	assert.Contains(t, msg, "2")
	assert.Equal(t, 1, api.restartAll)
}

func TestNodeSessionFollowUpStalenessGuard(t *testing.T) {
	t.Parallel()

	s := NewNodeSession(&fakeNodesAPI{nodes: makeNodes("de1", "nl1")})
	require.NoError(t, s.LoadNodes(context.Background()))

	var fired atomic.Int32
	s.Select("de1")
	s.ScheduleFollowUp("de1", 10*time.Millisecond, func(string) {
		fired.Add(1)
	})
	// 触发前切换选择，对账应被跳过
	s.Select("nl1")

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestNodeSessionFollowUpFires(t *testing.T) {
	t.Parallel()

	s := NewNodeSession(&fakeNodesAPI{nodes: makeNodes("de1")})
	require.NoError(t, s.LoadNodes(context.Background()))

	done := make(chan string, 1)
	s.Select("de1")
	s.ScheduleFollowUp("de1", 10*time.Millisecond, func(name string) {
		done <- name
	})

	select {
	case name := <-done:
		assert.Equal(t, "de1", name)
	case <-time.After(time.Second):
		t.Fatal("延迟对账未触发")
	}
}

func TestNodeSessionRescheduleReplacesTimer(t *testing.T) {
	t.Parallel()

	s := NewNodeSession(&fakeNodesAPI{nodes: makeNodes("de1")})
	require.NoError(t, s.LoadNodes(context.Background()))
	s.Select("de1")

	var first, second atomic.Int32
	s.ScheduleFollowUp("de1", 20*time.Millisecond, func(string) { first.Add(1) })
	s.ScheduleFollowUp("de1", 10*time.Millisecond, func(string) { second.Add(1) })

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestNodeSessionSelectionChangeCancelsFollowUp(t *testing.T) {
	t.Parallel()

	s := NewNodeSession(&fakeNodesAPI{nodes: makeNodes("de1", "nl1")})
	require.NoError(t, s.LoadNodes(context.Background()))
	s.Select("de1")

	var fired atomic.Int32
	s.ScheduleFollowUp("de1", 10*time.Millisecond, func(string) { fired.Add(1) })
	s.Select("nl1")

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestNodeSessionFormatNodeInfo(t *testing.T) {
	t.Parallel()

	s := NewNodeSession(&fakeNodesAPI{})
	node := models.Node{
		Name:             "de1",
		Address:          "10.0.0.1",
		Port:             443,
		IsConnected:      true,
		IsNodeOnline:     true,
		IsXrayRunning:    true,
		CountryCode:      "DE",
		UsersOnline:      7,
		TrafficUsedBytes: 1536 * 1024 * 1024,
	}

	text := s.FormatNodeInfo(node)
	assert.Contains(t, text, "de1")
	assert.Contains(t, text, "10.0.0.1:443")
	assert.Contains(t, text, "1.5 GB")
	// 流量上限为0展示为безлимит
	assert.Contains(t, text, "Безлимит")
}
