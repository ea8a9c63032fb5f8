package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512.0 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{1024 * 1024 * 1024, "1.0 GB"},
		{2 * 1024 * 1024 * 1024, "2.0 GB"},
		{1024 * 1024 * 1024 * 1024, "1.0 TB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bytes(tt.n), "Bytes(%d)", tt.n)
	}
}

func TestGB(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2.00 GB", GB(2*1024*1024*1024))
	assert.Equal(t, "0.50 GB", GB(512*1024*1024))
}

func TestEscapeMarkdown(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `user\_name`, EscapeMarkdown("user_name"))
	assert.Equal(t, `a\*b\*c`, EscapeMarkdown("a*b*c"))
	assert.Equal(t, `\[tag\]`, EscapeMarkdown("[tag]"))
	// 普通文本不动
	assert.Equal(t, "plain text", EscapeMarkdown("plain text"))
}
