package users

import (
	"context"
	"sync"
	"time"

	"github.com/heygw44/snapstock/internal/models"
)

// MemoryRepository is an in-process Repository used when MongoDB is not
// configured and in unit tests. Returned users are copies.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]*models.User)}
}

func (m *MemoryRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *MemoryRepository) ExistsByNickname(ctx context.Context, nickname string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.byID {
		if u.Nickname == nickname {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) Create(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
		if existing.Nickname == u.Nickname {
			return ErrDuplicateNickname
		}
	}
	m.nextID++
	now := time.Now().UTC()
	u.ID = m.nextID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *MemoryRepository) UpdateProfile(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.byID[u.ID]
	if !ok || cur.IsDeleted() {
		return ErrNotFound
	}
	for id, existing := range m.byID {
		if id != u.ID && existing.Nickname == u.Nickname {
			return ErrDuplicateNickname
		}
	}
	cur.Nickname = u.Nickname
	cur.PasswordHash = u.PasswordHash
	cur.UpdatedAt = u.UpdatedAt.UTC()
	return nil
}

func (m *MemoryRepository) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.IsDeleted() {
		return ErrNotFound
	}
	t := at.UTC()
	u.DeletedAt = &t
	u.UpdatedAt = t
	return nil
}
