package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Manager 审计管理器
// 按月追加JSONL文件，写失败只记日志，不影响事件处理
type Manager struct {
	dir string
}

// NewManager 创建审计管理器
func NewManager(dataDir string) *Manager {
	return &Manager{dir: filepath.Join(dataDir, "audit")}
}

// LogEvent 记录一次入站事件
func (m *Manager) LogEvent(actorID int64, username, action, detail string, allowed bool) {
	entry := &models.AuditEntry{
		ID:        uuid.New().String(),
		ActorID:   actorID,
		Username:  username,
		Action:    action,
		Detail:    detail,
		Allowed:   allowed,
		Timestamp: time.Now(),
	}

	if err := m.append(entry); err != nil {
		logrus.Errorf("写入审计日志失败: %v", err)
	}
}

// append 追加一条审计记录
func (m *Manager) append(entry *models.AuditEntry) error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("创建审计目录失败: %w", err)
	}

	// 按月分割文件
	filename := fmt.Sprintf("audit-%s.jsonl", entry.Timestamp.Format("2006-01"))
	path := filepath.Join(m.dir, filename)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化审计记录失败: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("打开审计文件失败: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("写入审计文件失败: %w", err)
	}

	return nil
}
