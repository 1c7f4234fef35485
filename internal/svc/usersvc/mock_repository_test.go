package usersvc_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/mkrupp/taskapp/internal/domain"
	"github.com/mkrupp/taskapp/internal/repo/task"
	"github.com/mkrupp/taskapp/internal/repo/user"
)

type mockUserRepo struct {
	mu        sync.Mutex
	users     map[string]domain.User
	updates   int
	deleteErr error
}

var _ user.Repository = (*mockUserRepo)(nil)

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]domain.User{}}
}

func (m *mockUserRepo) CreateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}

	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = cloneUser(*u)

	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	c := cloneUser(u)

	return &c, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			c := cloneUser(u)

			return &c, nil
		}
	}

	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) UpdateUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}

	for id, existing := range m.users {
		if id != u.ID && existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}

	u.UpdatedAt = time.Now().UTC()
	m.users[u.ID] = cloneUser(*u)
	m.updates++

	return nil
}

func (m *mockUserRepo) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteErr != nil {
		return m.deleteErr
	}

	if _, ok := m.users[id]; !ok {
		return domain.ErrUserNotFound
	}

	delete(m.users, id)

	return nil
}

func (m *mockUserRepo) Close() error {
	return nil
}

// stored returns the persisted copy of the user with id.
func (m *mockUserRepo) stored(id string) (domain.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]

	return cloneUser(u), ok
}

func cloneUser(u domain.User) domain.User {
	u.Tokens = slices.Clone(u.Tokens)
	u.Avatar = slices.Clone(u.Avatar)

	return u
}

type mockTaskRepo struct {
	mu      sync.Mutex
	tasks   []domain.Task
	deleted []string // owners passed to DeleteTasksByOwner
}

var _ task.Repository = (*mockTaskRepo)(nil)

func (m *mockTaskRepo) CreateTask(_ context.Context, t *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks = append(m.tasks, *t)

	return nil
}

func (m *mockTaskRepo) ListTasks(_ context.Context, owner string, _ domain.TaskQuery) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Task

	for _, t := range m.tasks {
		if t.Owner == owner {
			c := t
			out = append(out, &c)
		}
	}

	return out, nil
}

func (m *mockTaskRepo) GetTask(context.Context, string, string) (*domain.Task, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTaskRepo) UpdateTask(context.Context, *domain.Task) error {
	return errors.New("not implemented")
}

func (m *mockTaskRepo) DeleteTask(context.Context, string, string) (*domain.Task, error) {
	return nil, errors.New("not implemented")
}

func (m *mockTaskRepo) DeleteTasksByOwner(_ context.Context, owner string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleted = append(m.deleted, owner)

	before := len(m.tasks)
	m.tasks = slices.DeleteFunc(m.tasks, func(t domain.Task) bool { return t.Owner == owner })

	return int64(before - len(m.tasks)), nil
}

func (m *mockTaskRepo) Close() error {
	return nil
}
