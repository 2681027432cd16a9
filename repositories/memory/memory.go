// Package memory keeps users and tasks in process memory. It mirrors the
// Postgres repositories closely enough to back tests and local demos.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"todo-server/entities"
	"todo-server/repositories"
)

// Store holds the tables. Transactions are serialized by txMu; single
// operations take mu.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	users  map[uint64]entities.User
	todos  map[uint64]entities.TodoItem
	nextID uint64
}

func NewStore() *Store {
	return &Store{
		users: make(map[uint64]entities.User),
		todos: make(map[uint64]entities.TodoItem),
	}
}

// NewRepositories returns a repository set backed by a fresh Store.
func NewRepositories() repositories.Set {
	s := NewStore()
	return repositories.Set{
		Users: &userRepository{s: s},
		Todos: &todoItemRepository{s: s},
		Tx:    s,
	}
}

func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(_ context.Context, user *entities.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username {
			return &repositories.DuplicateKeyError{Constraint: "idx_users_username"}
		}
		if u.Email == user.Email {
			return &repositories.DuplicateKeyError{Constraint: "idx_users_email"}
		}
	}
	user.ID = r.s.id()
	stored := *user
	stored.TodoItems = nil
	r.s.users[user.ID] = stored
	return nil
}

func (r *userRepository) GetByID(_ context.Context, id uint64) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &u, nil
}

func (r *userRepository) GetByUsername(_ context.Context, username string) (*entities.User, error) {
	return r.find(func(u entities.User) bool { return u.Username == username })
}

func (r *userRepository) GetByUsernameOrEmail(_ context.Context, login string) (*entities.User, error) {
	byUsername := func(u entities.User) bool { return u.Username == login }
	byEmail := func(u entities.User) bool { return u.Email == login }
	first, second := byUsername, byEmail
	if strings.Contains(login, "@") {
		first, second = byEmail, byUsername
	}
	user, err := r.find(first)
	if err != repositories.ErrNotFound {
		return user, err
	}
	return r.find(second)
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(r.GetByUsername(ctx, username))
}

func (r *userRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return r.exists(r.find(func(u entities.User) bool { return u.Email == email }))
}

func (r *userRepository) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.users, id)
	for tid, t := range r.s.todos {
		if t.UserID == id {
			delete(r.s.todos, tid)
		}
	}
	return nil
}

func (r *userRepository) BumpSessionVersion(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.SessionVersion++
	r.s.users[id] = u
	return nil
}

func (r *userRepository) find(match func(entities.User) bool) (*entities.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *userRepository) exists(_ *entities.User, err error) (bool, error) {
	if err == repositories.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

type todoItemRepository struct {
	s *Store
}

func (r *todoItemRepository) Create(_ context.Context, item *entities.TodoItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[item.UserID]; !ok {
		return repositories.ErrNotFound
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	item.ID = r.s.id()
	r.s.todos[item.ID] = detach(*item)
	return nil
}

func (r *todoItemRepository) Save(ctx context.Context, item *entities.TodoItem) error {
	if item.ID == 0 {
		return r.Create(ctx, item)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[item.UserID]; !ok {
		return repositories.ErrNotFound
	}
	if existing, ok := r.s.todos[item.ID]; ok {
		item.CreatedAt = existing.CreatedAt
	} else if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	r.s.todos[item.ID] = detach(*item)
	return nil
}

func (r *todoItemRepository) GetByID(_ context.Context, id uint64) (*entities.TodoItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.todos[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &t, nil
}

// GetByIDForUpdate relies on Transaction serializing writers.
func (r *todoItemRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*entities.TodoItem, error) {
	return r.GetByID(ctx, id)
}

func (r *todoItemRepository) ListByUser(_ context.Context, userID uint64, opts repositories.ListOptions) ([]entities.TodoItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	keyword := strings.ToLower(strings.TrimSpace(opts.Query))
	items := make([]entities.TodoItem, 0)
	for _, t := range r.s.todos {
		if t.UserID != userID {
			continue
		}
		if opts.Filter == repositories.FilterActive && t.Completed {
			continue
		}
		if opts.Filter == repositories.FilterCompleted && !t.Completed {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(t.Description), keyword) {
			continue
		}
		items = append(items, t)
	}

	sort.SliceStable(items, less(items, opts.Sort))
	return items, nil
}

func less(items []entities.TodoItem, by repositories.TaskSort) func(i, j int) bool {
	newest := func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	}
	byDue := func(asc bool) func(i, j int) bool {
		return func(i, j int) bool {
			a, b := items[i].DueDate, items[j].DueDate
			switch {
			case a == nil && b == nil:
				return newest(i, j)
			case a == nil:
				return false
			case b == nil:
				return true
			case a.Equal(*b):
				return newest(i, j)
			case asc:
				return a.Before(*b)
			default:
				return a.After(*b)
			}
		}
	}

	switch by {
	case repositories.SortOldest:
		return func(i, j int) bool { return newest(j, i) }
	case repositories.SortDueSoon:
		return byDue(true)
	case repositories.SortDueLate:
		return byDue(false)
	default:
		return newest
	}
}

func (r *todoItemRepository) CountByUser(_ context.Context, userID uint64) (int64, error) {
	return r.count(func(t entities.TodoItem) bool { return t.UserID == userID }), nil
}

func (r *todoItemRepository) CountByUserAndCompleted(_ context.Context, userID uint64, completed bool) (int64, error) {
	return r.count(func(t entities.TodoItem) bool { return t.UserID == userID && t.Completed == completed }), nil
}

func (r *todoItemRepository) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.todos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.s.todos, id)
	return nil
}

func (r *todoItemRepository) DeleteCompletedByUser(_ context.Context, userID uint64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.todos {
		if t.UserID == userID && t.Completed {
			delete(r.s.todos, id)
			n++
		}
	}
	return n, nil
}

func (r *todoItemRepository) MarkAllCompletedByUser(_ context.Context, userID uint64, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.todos {
		if t.UserID == userID && !t.Completed {
			t.SetCompleted(true, at)
			r.s.todos[id] = t
			n++
		}
	}
	return n, nil
}

func (r *todoItemRepository) count(match func(entities.TodoItem) bool) int64 {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, t := range r.s.todos {
		if match(t) {
			n++
		}
	}
	return n
}

// detach drops the loaded owner so stored rows never alias caller memory.
func detach(t entities.TodoItem) entities.TodoItem {
	t.User = nil
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}
