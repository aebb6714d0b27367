package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"scriptwizard/internal/apperr"
	"scriptwizard/internal/metrics"
)

// Manager 管理所有向导会话，每个浏览器标签页一个
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Controller

	scripts ScriptService
	images  ImageService
	video   VideoService
	opts    Options
	ttl     time.Duration
	now     func() time.Time
}

func NewManager(scripts ScriptService, images ImageService, video VideoService, opts Options, idleTTL time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Controller),
		scripts:  scripts,
		images:   images,
		video:    video,
		opts:     opts,
		ttl:      idleTTL,
		now:      time.Now,
	}
}

// Create 新建会话
func (m *Manager) Create() *Controller {
	c := NewController(uuid.NewString(), m.scripts, m.images, m.video, m.opts)
	c.now = m.now
	c.lastActive = m.now()

	m.mu.Lock()
	m.sessions[c.id] = c
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	logrus.WithField("session_id", c.id).Info("wizard session created")
	return c
}

// Get 按 id 查找会话
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	c, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperr.ErrNotFound.WithDetail("session " + id)
	}
	return c, nil
}

// Delete 删除会话，进行中的请求完成后结果被丢弃
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep 清理空闲超时且没有进行中请求的会话，返回清理数量
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	now := m.now()

	m.mu.Lock()
	removed := 0
	for id, c := range m.sessions {
		if c.idle(now, m.ttl) {
			delete(m.sessions, id)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	if removed > 0 {
		logrus.WithField("removed", removed).Info("idle wizard sessions evicted")
	}
	return removed
}

// Run 定期清理，ctx 取消时退出
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
