package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and local experiments.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]User
	tokens map[string]AuthToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		users:  make(map[uint]User),
		tokens: make(map[string]AuthToken),
	}
}

func copyUser(u User) *User {
	if u.ProfilePhoto != nil {
		p := *u.ProfilePhoto
		u.ProfilePhoto = &p
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		u.LastLogin = &t
	}
	u.Token = nil
	return &u
}

func (m *MemoryStore) usernameTaken(username string, exceptID uint) bool {
	for id, u := range m.users {
		if id != exceptID && u.Username == username {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CreateUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.usernameTaken(u.Username, 0) {
		return ErrUsernameTaken
	}
	u.ID = m.nextID
	m.nextID++
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now()
	}
	m.users[u.ID] = *copyUser(*u)
	return nil
}

func (m *MemoryStore) UserByID(ctx context.Context, id uint) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (m *MemoryStore) UserByUsername(ctx context.Context, username string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *MemoryStore) SaveUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	if m.usernameTaken(u.Username, u.ID) {
		return ErrUsernameTaken
	}
	m.users[u.ID] = *copyUser(*u)
	return nil
}

func (m *MemoryStore) DeleteUser(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	for key, t := range m.tokens {
		if t.UserID == id {
			delete(m.tokens, key)
		}
	}
	return nil
}

func (m *MemoryStore) UsernameExists(ctx context.Context, username string, exceptID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.usernameTaken(username, exceptID), nil
}

func (m *MemoryStore) SetLastLogin(ctx context.Context, id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

func (m *MemoryStore) GetOrCreateToken(ctx context.Context, userID uint, key string) (*AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tokens {
		if t.UserID == userID {
			return &t, nil
		}
	}
	if _, ok := m.users[userID]; !ok {
		return nil, ErrNotFound
	}
	t := AuthToken{Key: key, UserID: userID, Created: time.Now()}
	m.tokens[key] = t
	return &t, nil
}

func (m *MemoryStore) TokenByKey(ctx context.Context, key string) (*AuthToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *MemoryStore) DeleteToken(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[key]; !ok {
		return ErrNotFound
	}
	delete(m.tokens, key)
	return nil
}
