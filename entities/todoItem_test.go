package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTodoItem(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	owner := &User{ID: 7, Username: "alice"}

	item := NewTodoItem("Buy milk", owner, now)

	assert.Equal(t, "Buy milk", item.Description)
	assert.Equal(t, uint64(7), item.UserID)
	assert.Same(t, owner, item.User)
	assert.Equal(t, now, item.CreatedAt)
	assert.False(t, item.Completed)
	assert.Nil(t, item.CompletedAt)
}

func TestSetCompleted(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	item := &TodoItem{}

	item.SetCompleted(true, now)
	require.NotNil(t, item.CompletedAt)
	assert.True(t, item.Completed)
	assert.Equal(t, now, *item.CompletedAt)

	item.SetCompleted(false, now.Add(time.Hour))
	assert.False(t, item.Completed)
	assert.Nil(t, item.CompletedAt)
}

func TestBeforeCreateKeepsExistingCreatedAt(t *testing.T) {
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	item := &TodoItem{CreatedAt: created}
	require.NoError(t, item.BeforeCreate(nil))
	assert.Equal(t, created, item.CreatedAt)

	fresh := &TodoItem{}
	require.NoError(t, fresh.BeforeCreate(nil))
	assert.False(t, fresh.CreatedAt.IsZero())
}

func TestOverdue(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	assert.True(t, (&TodoItem{DueDate: &yesterday}).Overdue(now))
	assert.False(t, (&TodoItem{DueDate: &tomorrow}).Overdue(now))
	assert.False(t, (&TodoItem{DueDate: &yesterday, Completed: true}).Overdue(now))
	assert.False(t, (&TodoItem{}).Overdue(now))
}

func TestUserResolved(t *testing.T) {
	var nilUser *User
	assert.False(t, nilUser.Resolved())
	assert.False(t, (&User{}).Resolved())
	assert.True(t, (&User{ID: 1}).Resolved())
}
