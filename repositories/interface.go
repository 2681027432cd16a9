package repositories

import (
	"context"
	"time"

	"todo-server/db"
	"todo-server/entities"
)

// TaskFilter narrows a listing by completion state.
type TaskFilter string

const (
	FilterAll       TaskFilter = "all"
	FilterActive    TaskFilter = "active"
	FilterCompleted TaskFilter = "completed"
)

// TaskSort orders a listing.
type TaskSort string

const (
	SortNewest  TaskSort = "newest"
	SortOldest  TaskSort = "oldest"
	SortDueSoon TaskSort = "due"
	SortDueLate TaskSort = "due_desc"
)

// ListOptions controls ListByUser. The zero value lists every task newest first.
type ListOptions struct {
	Filter TaskFilter
	Sort   TaskSort
	Query  string
}

type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uint64) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	GetByUsernameOrEmail(ctx context.Context, login string) (*entities.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Delete(ctx context.Context, id uint64) error
	BumpSessionVersion(ctx context.Context, id uint64) error
}

type TodoItemRepository interface {
	Create(ctx context.Context, item *entities.TodoItem) error
	Save(ctx context.Context, item *entities.TodoItem) error
	GetByID(ctx context.Context, id uint64) (*entities.TodoItem, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uint64) (*entities.TodoItem, error)
	ListByUser(ctx context.Context, userID uint64, opts ListOptions) ([]entities.TodoItem, error)
	CountByUser(ctx context.Context, userID uint64) (int64, error)
	CountByUserAndCompleted(ctx context.Context, userID uint64, completed bool) (int64, error)
	Delete(ctx context.Context, id uint64) error
	DeleteCompletedByUser(ctx context.Context, userID uint64) (int64, error)
	MarkAllCompletedByUser(ctx context.Context, userID uint64, at time.Time) (int64, error)
}

// Set bundles the repositories together with the transactor they share.
type Set struct {
	Users UserRepository
	Todos TodoItemRepository
	Tx    db.Transactor
}

func NewPgRepositories(database db.Database) Set {
	return Set{
		Users: NewUserPgRepository(database),
		Todos: NewTodoItemPgRepository(database),
		Tx:    database,
	}
}
