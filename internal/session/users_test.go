package session

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/models"
)

type fakeUsersAPI struct {
	users      []models.User
	listErr    error
	getErr     error
	created    []models.CreateUserRequest
	deleted    []string
	enabled    []string
	disabled   []string
	resets     []string
	getCalls   int
	extraUsers map[string]models.User
}

func (f *fakeUsersAPI) ListUsers(ctx context.Context) ([]models.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.User, len(f.users))
	copy(out, f.users)
	return out, nil
}

func (f *fakeUsersAPI) GetUser(ctx context.Context, uuid string) (*models.User, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.UUID == uuid {
			u := u
			return &u, nil
		}
	}
	if u, ok := f.extraUsers[uuid]; ok {
		return &u, nil
	}
	return nil, fmt.Errorf("%w: пользователь не найден", ErrNotFound)
}

func (f *fakeUsersAPI) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	f.created = append(f.created, req)
	return &models.User{
		UUID:              "created-" + req.Username,
		Username:          req.Username,
		Status:            models.UserStatusActive,
		TrafficLimitBytes: req.TrafficLimitBytes,
	}, nil
}

func (f *fakeUsersAPI) EnableUser(ctx context.Context, uuid string) error {
	f.enabled = append(f.enabled, uuid)
	return nil
}

func (f *fakeUsersAPI) DisableUser(ctx context.Context, uuid string) error {
	f.disabled = append(f.disabled, uuid)
	return nil
}

func (f *fakeUsersAPI) ResetUserTraffic(ctx context.Context, uuid string) error {
	f.resets = append(f.resets, uuid)
	return nil
}

func (f *fakeUsersAPI) DeleteUser(ctx context.Context, uuid string) error {
	f.deleted = append(f.deleted, uuid)
	return nil
}

type fakeSquadsAPI struct {
	squads []models.Squad
	err    error
}

func (f *fakeSquadsAPI) ListSquads(ctx context.Context) ([]models.Squad, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.squads, nil
}

func makeUsers(n int) []models.User {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, models.User{
			UUID:     fmt.Sprintf("uuid-%02d", i),
			Username: fmt.Sprintf("user%02d", i),
			Status:   models.UserStatusActive,
		})
	}
	return users
}

func newTestUserSession(api *fakeUsersAPI) *UserSession {
	s := NewUserSession(api, &fakeSquadsAPI{})
	s.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func TestUserSessionPagination(t *testing.T) {
	t.Parallel()

	api := &fakeUsersAPI{users: makeUsers(9)}
	s := newTestUserSession(api)
	require.NoError(t, s.LoadUsers(context.Background()))

	// 9个用户，每页4个，共3页
	assert.Equal(t, 3, s.TotalPages())
	assert.Equal(t, 0, s.Page())
	assert.Len(t, s.PageUsers(), 4)

	// 第一页向前翻不动
	assert.False(t, s.PrevPage())
	assert.Equal(t, 0, s.Page())

	assert.True(t, s.NextPage())
	assert.True(t, s.NextPage())
	assert.Equal(t, 2, s.Page())
	assert.Len(t, s.PageUsers(), 1)

	// 最后一页向后翻不动
	assert.False(t, s.NextPage())
	assert.Equal(t, 2, s.Page())
}

func TestUserSessionReloadClampsPage(t *testing.T) {
	t.Parallel()

	api := &fakeUsersAPI{users: makeUsers(9)}
	s := newTestUserSession(api)
	require.NoError(t, s.LoadUsers(context.Background()))
	s.NextPage()
	s.NextPage()
	require.Equal(t, 2, s.Page())

	// 列表缩水后游标夹紧到新范围
	api.users = makeUsers(3)
	require.NoError(t, s.LoadUsers(context.Background()))
	assert.Equal(t, 0, s.Page())
	assert.Equal(t, 1, s.TotalPages())
}

func TestUserSessionLookupWriteThrough(t *testing.T) {
	t.Parallel()

	api := &fakeUsersAPI{
		users: makeUsers(2),
		extraUsers: map[string]models.User{
			"uuid-extra": {UUID: "uuid-extra", Username: "extra", Status: models.UserStatusActive},
		},
	}
	s := newTestUserSession(api)
	require.NoError(t, s.LoadUsers(context.Background()))

	// 缓存命中不回源
	_, err := s.LookupByUUID(context.Background(), "uuid-01")
	require.NoError(t, err)
	assert.Equal(t, 0, api.getCalls)

	// 未命中回源并写入缓存
	user, err := s.LookupByUUID(context.Background(), "uuid-extra")
	require.NoError(t, err)
	assert.Equal(t, "extra", user.Username)
	assert.Equal(t, 1, api.getCalls)

	_, err = s.LookupByUUID(context.Background(), "uuid-extra")
	require.NoError(t, err)
	assert.Equal(t, 1, api.getCalls)
	assert.Len(t, s.Users(), 3)
}

func TestUserSessionToggleStatus(t *testing.T) {
	t.Parallel()

	api := &fakeUsersAPI{users: []models.User{
		{UUID: "u1", Username: "alice", Status: models.UserStatusActive},
		{UUID: "u2", Username: "bob", Status: models.UserStatusDisabled},
	}}
	s := newTestUserSession(api)
	require.NoError(t, s.LoadUsers(context.Background()))

	// 活跃用户被禁用，文案为«отключен»
	msg, err := s.ToggleStatus(context.Background(), "u1")
	require.NoError(t, err)
	assert.Contains(t, msg, "отключен")
	assert.Equal(t, []string{"u1"}, api.disabled)

	// 非活跃用户被启用，文案为«включен»
	msg, err = s.ToggleStatus(context.Background(), "u2")
	require.NoError(t, err)
	assert.Contains(t, msg, "включен")
	assert.Equal(t, []string{"u2"}, api.enabled)
}

func TestUserSessionDelete(t *testing.T) {
	t.Parallel()

	api := &fakeUsersAPI{users: makeUsers(3)}
	s := newTestUserSession(api)
	require.NoError(t, s.LoadUsers(context.Background()))
	s.Select("uuid-01")

	msg, err := s.Delete(context.Background(), "uuid-01")
	require.NoError(t, err)
	assert.Contains(t, msg, "удален")
	assert.Equal(t, []string{"uuid-01"}, api.deleted)
	assert.Len(t, s.Users(), 2)
	// 被删用户是当前选中，选择被清除
	assert.Empty(t, s.Selected())
}

func TestUserSessionDeleteUnknown(t *testing.T) {
	t.Parallel()

	api := &fakeUsersAPI{users: makeUsers(3)}
	s := newTestUserSession(api)
	require.NoError(t, s.LoadUsers(context.Background()))

	_, err := s.Delete(context.Background(), "uuid-99")
	require.ErrorIs(t, err, ErrNotFound)
	// 缓存未被改动，面板未被调用
	assert.Empty(t, api.deleted)
	assert.Len(t, s.Users(), 3)
}

func TestUserSessionWizardValidation(t *testing.T) {
	t.Parallel()

	s := newTestUserSession(&fakeUsersAPI{})

	s.AwaitField(FieldExpireDays)

	// 非法输入保持等待状态并给出纠正提示
	hint, err := s.ConsumeInput("-5")
	require.ErrorIs(t, err, ErrValidation)
	assert.NotEmpty(t, hint)
	assert.Equal(t, FieldExpireDays, s.Pending())

	// 合法输入被接受并清除等待状态
	_, err = s.ConsumeInput("10")
	require.NoError(t, err)
	assert.Equal(t, FieldNone, s.Pending())
	assert.Equal(t, 10, s.DraftState().ExpireDays)
}

func TestUserSessionWizardTrafficLimit(t *testing.T) {
	t.Parallel()

	s := newTestUserSession(&fakeUsersAPI{})

	s.AwaitField(FieldTrafficLimit)
	_, err := s.ConsumeInput("без лимита")
	require.NoError(t, err)
	draft := s.DraftState()
	assert.True(t, draft.TrafficLimitSet)
	assert.Zero(t, draft.TrafficLimitGB)

	s.AwaitField(FieldTrafficLimit)
	_, err = s.ConsumeInput("2.5")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, s.DraftState().TrafficLimitGB, 1e-9)
}

func TestUserSessionWizardRetarget(t *testing.T) {
	t.Parallel()

	s := newTestUserSession(&fakeUsersAPI{})

	// 未消费输入时允许直接切换字段
	s.AwaitField(FieldUsername)
	s.AwaitField(FieldExpireDays)
	assert.Equal(t, FieldExpireDays, s.Pending())
}

func TestUserSessionDraftReady(t *testing.T) {
	t.Parallel()

	s := newTestUserSession(&fakeUsersAPI{})
	assert.False(t, s.DraftReady())

	s.AwaitField(FieldUsername)
	_, err := s.ConsumeInput("alice")
	require.NoError(t, err)
	s.AwaitField(FieldExpireDays)
	_, err = s.ConsumeInput("30")
	require.NoError(t, err)
	assert.False(t, s.DraftReady())

	s.AwaitField(FieldTrafficLimit)
	_, err = s.ConsumeInput("0")
	require.NoError(t, err)
	assert.True(t, s.DraftReady())

	s.ClearDraft()
	assert.False(t, s.DraftReady())
}

func TestUserSessionQuickCreate(t *testing.T) {
	t.Parallel()

	api := &fakeUsersAPI{}
	s := newTestUserSession(api)

	user, err := s.QuickCreate(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, api.created, 1)

	req := api.created[0]
	assert.Regexp(t, regexp.MustCompile(`^user_[0-9a-f]{8}$`), req.Username)
	assert.Zero(t, req.TrafficLimitBytes)
	assert.Equal(t, "NO_RESET", req.TrafficLimitStrategy)
	assert.Empty(t, req.ActiveInternalSquads)

	expireAt, err := time.Parse(time.RFC3339, req.ExpireAt)
	require.NoError(t, err)
	assert.Equal(t, s.now().UTC().Add(30*24*time.Hour), expireAt)

	// 新建用户进入缓存
	cached, err := s.LookupByUUID(context.Background(), user.UUID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, cached.Username)
	assert.Equal(t, 0, api.getCalls)
}

func TestUserSessionQuickCreateWithSquad(t *testing.T) {
	t.Parallel()

	api := &fakeUsersAPI{}
	s := newTestUserSession(api)

	// 选中的分组进入创建请求
	_, err := s.QuickCreate(context.Background(), "sq-1")
	require.NoError(t, err)
	require.Len(t, api.created, 1)
	assert.Equal(t, []string{"sq-1"}, api.created[0].ActiveInternalSquads)
}

func TestUserSessionCustomCreate(t *testing.T) {
	t.Parallel()

	api := &fakeUsersAPI{}
	s := newTestUserSession(api)

	s.AwaitField(FieldUsername)
	_, err := s.ConsumeInput("carol")
	require.NoError(t, err)
	s.AwaitField(FieldExpireDays)
	_, err = s.ConsumeInput("10")
	require.NoError(t, err)
	s.AwaitField(FieldTrafficLimit)
	_, err = s.ConsumeInput("2")
	require.NoError(t, err)

	_, err = s.CustomCreate(context.Background())
	require.NoError(t, err)
	require.Len(t, api.created, 1)

	req := api.created[0]
	assert.Equal(t, "carol", req.Username)
	assert.Equal(t, int64(2*1024*1024*1024), req.TrafficLimitBytes)

	expireAt, err := time.Parse(time.RFC3339, req.ExpireAt)
	require.NoError(t, err)
	assert.Equal(t, s.now().UTC().Add(10*24*time.Hour), expireAt)

	// 成功创建后草稿被清空
	assert.False(t, s.DraftReady())
}

func TestUserSessionCustomCreateIncomplete(t *testing.T) {
	t.Parallel()

	api := &fakeUsersAPI{}
	s := newTestUserSession(api)

	s.AwaitField(FieldUsername)
	_, err := s.ConsumeInput("dave")
	require.NoError(t, err)

	_, err = s.CustomCreate(context.Background())
	require.ErrorIs(t, err, ErrState)
	assert.Empty(t, api.created)
}

func TestUserSessionReselectByUUID(t *testing.T) {
	t.Parallel()

	api := &fakeUsersAPI{users: makeUsers(3)}
	s := newTestUserSession(api)
	require.NoError(t, s.LoadUsers(context.Background()))

	user, err := s.ReselectByUUID(context.Background(), "uuid-02")
	require.NoError(t, err)
	assert.Equal(t, "user02", user.Username)
	assert.Equal(t, "uuid-02", s.Selected())

	// 重新拉取后消失的用户报 ErrNotFound
	api.users = makeUsers(1)
	_, err = s.ReselectByUUID(context.Background(), "uuid-02")
	require.ErrorIs(t, err, ErrNotFound)
}
