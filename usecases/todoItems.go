package usecases

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"todo-server/db"
	"todo-server/entities"
	"todo-server/repositories"

	"github.com/charmbracelet/log"
)

// TaskCounts summarizes a user's list.
type TaskCounts struct {
	Total     int64
	Active    int64
	Completed int64
}

// TodoUseCase enforces task ownership. Every operation is scoped to the
// user passed in; an unresolved user (nil or unsaved) reads as empty.
type TodoUseCase struct {
	TodoRepo repositories.TodoItemRepository
	UserRepo repositories.UserRepository
	Tx       db.Transactor
	Now      func() time.Time

	logger *log.Logger
}

func NewTodoUseCase(todoRepo repositories.TodoItemRepository, userRepo repositories.UserRepository, tx db.Transactor, logger *log.Logger) *TodoUseCase {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &TodoUseCase{
		TodoRepo: todoRepo,
		UserRepo: userRepo,
		Tx:       tx,
		Now:      time.Now,
		logger:   logger,
	}
}

// ListTasks returns the user's tasks, newest first.
func (uc *TodoUseCase) ListTasks(ctx context.Context, user *entities.User) ([]entities.TodoItem, error) {
	return uc.ListTasksFiltered(ctx, user, repositories.ListOptions{})
}

func (uc *TodoUseCase) ListTasksFiltered(ctx context.Context, user *entities.User, opts repositories.ListOptions) ([]entities.TodoItem, error) {
	if !user.Resolved() {
		return []entities.TodoItem{}, nil
	}
	return uc.TodoRepo.ListByUser(ctx, user.ID, opts)
}

// GetTask returns the task only when user owns it. A task owned by someone
// else is reported exactly like a missing one.
func (uc *TodoUseCase) GetTask(ctx context.Context, id uint64, user *entities.User) (*entities.TodoItem, bool, error) {
	if id == 0 || !user.Resolved() {
		return nil, false, nil
	}
	item, err := uc.TodoRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if item.UserID != user.ID {
		return nil, false, nil
	}
	return item, true, nil
}

func (uc *TodoUseCase) CreateTask(ctx context.Context, description string, dueDate *time.Time, user *entities.User) (*entities.TodoItem, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, NewValidationError("description", "Description cannot be empty")
	}
	if !user.Resolved() {
		return nil, ErrUserUnresolved
	}

	var item *entities.TodoItem
	err := uc.Tx.Transaction(ctx, func(ctx context.Context) error {
		owner, err := uc.resolveOwner(ctx, user)
		if err != nil {
			return err
		}
		item = entities.NewTodoItem(description, owner, uc.Now())
		item.DueDate = dueDate
		return uc.TodoRepo.Create(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// SaveTask persists item on behalf of user. The item is (re)assigned to
// user when it carries no owner or another one; a stored item must already
// belong to user. New items get CreatedAt if they lack one.
func (uc *TodoUseCase) SaveTask(ctx context.Context, item *entities.TodoItem, user *entities.User) (*entities.TodoItem, error) {
	if item == nil {
		return nil, NewValidationError("description", "Description cannot be empty")
	}
	item.Description = strings.TrimSpace(item.Description)
	if item.Description == "" {
		return nil, NewValidationError("description", "Description cannot be empty")
	}
	if !user.Resolved() {
		return nil, ErrUserUnresolved
	}

	err := uc.Tx.Transaction(ctx, func(ctx context.Context) error {
		if item.ID != 0 {
			stored, err := uc.TodoRepo.GetByIDForUpdate(ctx, item.ID)
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrTaskNotFound
			}
			if err != nil {
				return err
			}
			if stored.UserID != user.ID {
				return ErrUnauthorized
			}
			item.CreatedAt = stored.CreatedAt
		}

		if item.UserID == 0 || item.UserID != user.ID || item.User == nil {
			owner, err := uc.resolveOwner(ctx, user)
			if err != nil {
				return err
			}
			item.UserID = owner.ID
			item.User = owner
		}

		now := uc.Now()
		if item.ID == 0 && item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if item.Completed && item.CompletedAt == nil {
			item.SetCompleted(true, now)
		} else if !item.Completed {
			item.CompletedAt = nil
		}

		if item.ID == 0 {
			return uc.TodoRepo.Create(ctx, item)
		}
		return uc.TodoRepo.Save(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ToggleComplete flips the task's completion inside one locked
// read-modify-write. Unlike GetTask, a foreign task yields ErrUnauthorized.
func (uc *TodoUseCase) ToggleComplete(ctx context.Context, id uint64, user *entities.User) (*entities.TodoItem, error) {
	if !user.Resolved() {
		return nil, ErrUserUnresolved
	}

	var item *entities.TodoItem
	err := uc.Tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		item, err = uc.ownedForUpdate(ctx, id, user)
		if err != nil {
			return err
		}
		item.SetCompleted(!item.Completed, uc.Now())
		return uc.TodoRepo.Save(ctx, item)
	})
	if err != nil {
		uc.logger.Warn("toggle rejected", "task_id", id, "user", user.Username, "err", err)
		return nil, err
	}
	return item, nil
}

func (uc *TodoUseCase) DeleteTask(ctx context.Context, id uint64, user *entities.User) error {
	if !user.Resolved() {
		return ErrUserUnresolved
	}

	err := uc.Tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := uc.ownedForUpdate(ctx, id, user); err != nil {
			return err
		}
		err := uc.TodoRepo.Delete(ctx, id)
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	})
	if err != nil {
		uc.logger.Warn("delete rejected", "task_id", id, "user", user.Username, "err", err)
	}
	return err
}

func (uc *TodoUseCase) CountTotalTasks(ctx context.Context, user *entities.User) (int64, error) {
	if !user.Resolved() {
		return 0, nil
	}
	return uc.TodoRepo.CountByUser(ctx, user.ID)
}

func (uc *TodoUseCase) CountActiveTasks(ctx context.Context, user *entities.User) (int64, error) {
	if !user.Resolved() {
		return 0, nil
	}
	return uc.TodoRepo.CountByUserAndCompleted(ctx, user.ID, false)
}

func (uc *TodoUseCase) CountCompletedTasks(ctx context.Context, user *entities.User) (int64, error) {
	if !user.Resolved() {
		return 0, nil
	}
	return uc.TodoRepo.CountByUserAndCompleted(ctx, user.ID, true)
}

// CountTasks reads all three counts in one transaction so they agree.
func (uc *TodoUseCase) CountTasks(ctx context.Context, user *entities.User) (TaskCounts, error) {
	var counts TaskCounts
	if !user.Resolved() {
		return counts, nil
	}
	err := uc.Tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		if counts.Total, err = uc.CountTotalTasks(ctx, user); err != nil {
			return err
		}
		if counts.Active, err = uc.CountActiveTasks(ctx, user); err != nil {
			return err
		}
		counts.Completed, err = uc.CountCompletedTasks(ctx, user)
		return err
	})
	return counts, err
}

// ClearCompleted deletes every completed task of user with one statement.
func (uc *TodoUseCase) ClearCompleted(ctx context.Context, user *entities.User) (int64, error) {
	if !user.Resolved() {
		uc.logger.Warn("clear completed requested without a resolved user")
		return 0, nil
	}

	var deleted int64
	err := uc.Tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = uc.TodoRepo.DeleteCompletedByUser(ctx, user.ID)
		return err
	})
	if err != nil {
		return 0, err
	}
	uc.logger.Info("deleted completed tasks", "count", deleted, "user", user.Username)
	return deleted, nil
}

// CompleteAll marks every open task of user completed with one statement.
func (uc *TodoUseCase) CompleteAll(ctx context.Context, user *entities.User) (int64, error) {
	if !user.Resolved() {
		return 0, nil
	}

	var updated int64
	err := uc.Tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		updated, err = uc.TodoRepo.MarkAllCompletedByUser(ctx, user.ID, uc.Now())
		return err
	})
	if err != nil {
		return 0, err
	}
	uc.logger.Info("completed all tasks", "count", updated, "user", user.Username)
	return updated, nil
}

func (uc *TodoUseCase) ownedForUpdate(ctx context.Context, id uint64, user *entities.User) (*entities.TodoItem, error) {
	item, err := uc.TodoRepo.GetByIDForUpdate(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	if item.UserID != user.ID {
		return nil, ErrUnauthorized
	}
	return item, nil
}

func (uc *TodoUseCase) resolveOwner(ctx context.Context, user *entities.User) (*entities.User, error) {
	owner, err := uc.UserRepo.GetByID(ctx, user.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserUnresolved
	}
	return owner, err
}
