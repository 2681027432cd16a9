package entities

import (
	"time"

	"gorm.io/gorm"
)

// TodoItem is a task owned by exactly one User.
type TodoItem struct {
	ID          uint64     `gorm:"primaryKey" json:"id"`
	Description string     `gorm:"not null" json:"description"`
	Completed   bool       `gorm:"not null;default:false;index:idx_todo_items_user_completed,priority:2" json:"completed"`
	CreatedAt   time.Time  `gorm:"not null;<-:create" json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	UserID      uint64     `gorm:"not null;index:idx_todo_items_user_completed,priority:1" json:"user_id"`
	User        *User      `json:"-"`
}

// NewTodoItem builds an unsaved item owned by owner.
func NewTodoItem(description string, owner *User, now time.Time) *TodoItem {
	item := &TodoItem{
		Description: description,
		CreatedAt:   now,
		User:        owner,
	}
	if owner != nil {
		item.UserID = owner.ID
	}
	return item
}

// BeforeCreate fills CreatedAt when the item is stored without one.
func (t *TodoItem) BeforeCreate(tx *gorm.DB) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	return nil
}

// SetCompleted flips the completion state and keeps CompletedAt in step:
// set when completed, cleared otherwise.
func (t *TodoItem) SetCompleted(completed bool, now time.Time) {
	t.Completed = completed
	if completed {
		at := now
		t.CompletedAt = &at
	} else {
		t.CompletedAt = nil
	}
}

// Overdue reports whether the item has a past due date and is still open.
func (t *TodoItem) Overdue(now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}
