package repositories

import (
	"context"
	"strings"
	"time"

	"todo-server/db"
	"todo-server/entities"

	"gorm.io/gorm/clause"
)

type todoItemPgRepository struct {
	db db.Database
}

func NewTodoItemPgRepository(database db.Database) TodoItemRepository {
	return &todoItemPgRepository{db: database}
}

func (r *todoItemPgRepository) Create(ctx context.Context, item *entities.TodoItem) error {
	return translate(r.db.Conn(ctx).Omit(clause.Associations).Create(item).Error)
}

// Save writes every column except created_at, which is insert-only.
func (r *todoItemPgRepository) Save(ctx context.Context, item *entities.TodoItem) error {
	return translate(r.db.Conn(ctx).Omit(clause.Associations).Save(item).Error)
}

func (r *todoItemPgRepository) GetByID(ctx context.Context, id uint64) (*entities.TodoItem, error) {
	var item entities.TodoItem
	if err := r.db.Conn(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *todoItemPgRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*entities.TodoItem, error) {
	var item entities.TodoItem
	err := r.db.Conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *todoItemPgRepository) ListByUser(ctx context.Context, userID uint64, opts ListOptions) ([]entities.TodoItem, error) {
	q := r.db.Conn(ctx).Where("user_id = ?", userID)

	switch opts.Filter {
	case FilterActive:
		q = q.Where("completed = ?", false)
	case FilterCompleted:
		q = q.Where("completed = ?", true)
	}

	if keyword := strings.TrimSpace(opts.Query); keyword != "" {
		q = q.Where("description ILIKE ?", "%"+escapeLike(keyword)+"%")
	}

	switch opts.Sort {
	case SortOldest:
		q = q.Order("created_at ASC").Order("id ASC")
	case SortDueSoon:
		q = q.Order("due_date ASC NULLS LAST").Order("created_at DESC")
	case SortDueLate:
		q = q.Order("due_date DESC NULLS LAST").Order("created_at DESC")
	default:
		q = q.Order("created_at DESC").Order("id DESC")
	}

	var items []entities.TodoItem
	err := q.Find(&items).Error
	return items, translate(err)
}

func (r *todoItemPgRepository) CountByUser(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.Conn(ctx).Model(&entities.TodoItem{}).Where("user_id = ?", userID).Count(&count).Error
	return count, translate(err)
}

func (r *todoItemPgRepository) CountByUserAndCompleted(ctx context.Context, userID uint64, completed bool) (int64, error) {
	var count int64
	err := r.db.Conn(ctx).Model(&entities.TodoItem{}).
		Where("user_id = ? AND completed = ?", userID, completed).
		Count(&count).Error
	return count, translate(err)
}

func (r *todoItemPgRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.Conn(ctx).Where("id = ?", id).Delete(&entities.TodoItem{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *todoItemPgRepository) DeleteCompletedByUser(ctx context.Context, userID uint64) (int64, error) {
	result := r.db.Conn(ctx).
		Where("user_id = ? AND completed = ?", userID, true).
		Delete(&entities.TodoItem{})
	return result.RowsAffected, translate(result.Error)
}

func (r *todoItemPgRepository) MarkAllCompletedByUser(ctx context.Context, userID uint64, at time.Time) (int64, error) {
	result := r.db.Conn(ctx).Model(&entities.TodoItem{}).
		Where("user_id = ? AND completed = ?", userID, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": at,
		})
	return result.RowsAffected, translate(result.Error)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
