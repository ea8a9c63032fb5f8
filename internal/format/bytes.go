package format

import (
	"fmt"
)

// Bytes 把字节数格式化为人类可读形式
func Bytes(n int64) string {
	if n == 0 {
		return "0 B"
	}

	value := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB", "TB"} {
		if value < 1024.0 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.1f PB", value)
}

// GB 把字节数换算成GB，保留两位小数
func GB(n int64) string {
	return fmt.Sprintf("%.2f GB", float64(n)/(1024*1024*1024))
}
