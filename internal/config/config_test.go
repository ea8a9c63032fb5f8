package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAdminIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{name: "JSON数字数组", raw: "[123, 456]", want: []int64{123, 456}},
		{name: "JSON字符串数组", raw: `["123", "456"]`, want: []int64{123, 456}},
		{name: "混合JSON数组", raw: `[123, "456"]`, want: []int64{123, 456}},
		{name: "逗号分隔", raw: "123,456", want: []int64{123, 456}},
		{name: "逗号分隔带空格", raw: " 123 , 456 ", want: []int64{123, 456}},
		{name: "单个ID", raw: "123", want: []int64{123}},
		{name: "空串", raw: "", wantErr: true},
		{name: "空JSON数组", raw: "[]", wantErr: true},
		{name: "非法元素", raw: "[true]", wantErr: true},
		{name: "非法字符串元素", raw: `["abc"]`, wantErr: true},
		{name: "非法逗号分隔", raw: "123,abc", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseAdminIDs(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCookies(t *testing.T) {
	t.Parallel()

	cookies, err := ParseCookies(`{"session": "abc", "csrf": "def"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"session": "abc", "csrf": "def"}, cookies)

	cookies, err = ParseCookies("")
	require.NoError(t, err)
	assert.Empty(t, cookies)

	_, err = ParseCookies("not json")
	require.Error(t, err)
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "test-token")
	t.Setenv("BOT_TELEGRAM_ADMIN_IDS", "123")
	t.Setenv("BOT_PANEL_BASE_URL", "https://panel.example.com")
	t.Setenv("BOT_PANEL_TOKEN", "panel-token")

	dir := t.TempDir()
	cfg, err := Load(dir+"/config.yml", dir)
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Telegram.Token)
	assert.Equal(t, "https://panel.example.com", cfg.Panel.BaseURL)
	assert.Equal(t, dir, cfg.DataDir)
	// 默认值生效
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFailsFastOnMissingToken(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "")
	t.Setenv("BOT_TELEGRAM_ADMIN_IDS", "123")
	t.Setenv("BOT_PANEL_BASE_URL", "https://panel.example.com")
	t.Setenv("BOT_PANEL_TOKEN", "panel-token")

	dir := t.TempDir()
	_, err := Load(dir+"/config.yml", dir)
	require.Error(t, err)
}

func TestLoadFailsFastOnBadAdminList(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "test-token")
	t.Setenv("BOT_TELEGRAM_ADMIN_IDS", "[not valid]")
	t.Setenv("BOT_PANEL_BASE_URL", "https://panel.example.com")
	t.Setenv("BOT_PANEL_TOKEN", "panel-token")

	dir := t.TempDir()
	_, err := Load(dir+"/config.yml", dir)
	require.Error(t, err)
}
