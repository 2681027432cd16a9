package usecases_test

import (
	"context"
	"testing"
	"time"

	"todo-server/entities"
	"todo-server/repositories"
	"todo-server/repositories/memory"
	"todo-server/usecases"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repos repositories.Set
	todos *usecases.TodoUseCase
	clock time.Time
	alice *entities.User
	bob   *entities.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		repos: memory.NewRepositories(),
		clock: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.todos = usecases.NewTodoUseCase(f.repos.Todos, f.repos.Users, f.repos.Tx, nil)
	f.todos.Now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}

	f.alice = &entities.User{Username: "alice", Email: "alice@example.com", Password: "hash", Enabled: true}
	f.bob = &entities.User{Username: "bob", Email: "bob@example.com", Password: "hash", Enabled: true}
	require.NoError(t, f.repos.Users.Create(ctx, f.alice))
	require.NoError(t, f.repos.Users.Create(ctx, f.bob))
	return f
}

func (f *fixture) task(t *testing.T, description string, owner *entities.User) *entities.TodoItem {
	t.Helper()
	item, err := f.todos.CreateTask(context.Background(), description, nil, owner)
	require.NoError(t, err)
	return item
}

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	due := f.clock.Add(48 * time.Hour)

	item, err := f.todos.CreateTask(ctx, "  Buy milk ", &due, f.alice)
	require.NoError(t, err)

	assert.NotZero(t, item.ID)
	assert.Equal(t, "Buy milk", item.Description)
	assert.Equal(t, f.alice.ID, item.UserID)
	assert.Equal(t, f.clock, item.CreatedAt)
	assert.False(t, item.Completed)
	assert.Nil(t, item.CompletedAt)
	require.NotNil(t, item.DueDate)
	assert.Equal(t, due, *item.DueDate)
}

func TestCreateTaskRejectsBlankDescription(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, description := range []string{"", "   "} {
		_, err := f.todos.CreateTask(ctx, description, nil, f.alice)
		assert.ErrorIs(t, err, usecases.ErrValidation)
	}

	total, err := f.todos.CountTotalTasks(ctx, f.alice)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateTaskUnresolvedUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.todos.CreateTask(ctx, "task", nil, nil)
	assert.ErrorIs(t, err, usecases.ErrUserUnresolved)

	_, err = f.todos.CreateTask(ctx, "task", nil, &entities.User{ID: 999})
	assert.ErrorIs(t, err, usecases.ErrUserUnresolved)
}

func TestOwnershipIsEnforced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.task(t, "alice's task", f.alice)

	got, found, err := f.todos.GetTask(ctx, item.ID, f.bob)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)

	_, err = f.todos.ToggleComplete(ctx, item.ID, f.bob)
	assert.ErrorIs(t, err, usecases.ErrUnauthorized)

	err = f.todos.DeleteTask(ctx, item.ID, f.bob)
	assert.ErrorIs(t, err, usecases.ErrUnauthorized)

	stored, found, err := f.todos.GetTask(ctx, item.ID, f.alice)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, stored.Completed)
	assert.Nil(t, stored.CompletedAt)
	assert.Equal(t, item.CreatedAt, stored.CreatedAt)
}

func TestMissingTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, found, err := f.todos.GetTask(ctx, 12345, f.alice)
	require.NoError(t, err)
	assert.False(t, found)

	_, err = f.todos.ToggleComplete(ctx, 12345, f.alice)
	assert.ErrorIs(t, err, usecases.ErrTaskNotFound)

	assert.ErrorIs(t, f.todos.DeleteTask(ctx, 12345, f.alice), usecases.ErrTaskNotFound)
}

func TestToggleParity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.task(t, "flip me", f.alice)

	for i := 1; i <= 5; i++ {
		toggled, err := f.todos.ToggleComplete(ctx, item.ID, f.alice)
		require.NoError(t, err)

		if i%2 == 1 {
			assert.True(t, toggled.Completed, "after %d toggles", i)
			assert.NotNil(t, toggled.CompletedAt, "after %d toggles", i)
		} else {
			assert.False(t, toggled.Completed, "after %d toggles", i)
			assert.Nil(t, toggled.CompletedAt, "after %d toggles", i)
		}
		assert.Equal(t, item.CreatedAt, toggled.CreatedAt)
	}
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.task(t, "temporary", f.alice)

	require.NoError(t, f.todos.DeleteTask(ctx, item.ID, f.alice))

	_, found, err := f.todos.GetTask(ctx, item.ID, f.alice)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSaveTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("new task is assigned to the caller", func(t *testing.T) {
		item := &entities.TodoItem{Description: "new", UserID: f.bob.ID}
		saved, err := f.todos.SaveTask(ctx, item, f.alice)
		require.NoError(t, err)

		assert.NotZero(t, saved.ID)
		assert.Equal(t, f.alice.ID, saved.UserID)
		assert.False(t, saved.CreatedAt.IsZero())
	})

	t.Run("existing task keeps created at", func(t *testing.T) {
		item := f.task(t, "first draft", f.alice)
		created := item.CreatedAt

		edit := &entities.TodoItem{ID: item.ID, Description: "edited", Completed: true, CreatedAt: created.Add(time.Hour)}
		saved, err := f.todos.SaveTask(ctx, edit, f.alice)
		require.NoError(t, err)
		assert.Equal(t, created, saved.CreatedAt)
		assert.NotNil(t, saved.CompletedAt)

		stored, found, err := f.todos.GetTask(ctx, item.ID, f.alice)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "edited", stored.Description)
		assert.Equal(t, created, stored.CreatedAt)
	})

	t.Run("foreign stored task is refused", func(t *testing.T) {
		item := f.task(t, "bob's", f.bob)
		_, err := f.todos.SaveTask(ctx, &entities.TodoItem{ID: item.ID, Description: "mine now"}, f.alice)
		assert.ErrorIs(t, err, usecases.ErrUnauthorized)
	})

	t.Run("unresolved user", func(t *testing.T) {
		_, err := f.todos.SaveTask(ctx, &entities.TodoItem{Description: "x"}, nil)
		assert.ErrorIs(t, err, usecases.ErrUserUnresolved)
	})
}

func TestClearCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a1 := f.task(t, "a1", f.alice)
	f.task(t, "a2", f.alice)
	b1 := f.task(t, "b1", f.bob)

	_, err := f.todos.ToggleComplete(ctx, a1.ID, f.alice)
	require.NoError(t, err)
	_, err = f.todos.ToggleComplete(ctx, b1.ID, f.bob)
	require.NoError(t, err)

	deleted, err := f.todos.ClearCompleted(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = f.todos.ClearCompleted(ctx, f.alice)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	aliceCounts, err := f.todos.CountTasks(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, usecases.TaskCounts{Total: 1, Active: 1, Completed: 0}, aliceCounts)

	bobCompleted, err := f.todos.CountCompletedTasks(ctx, f.bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobCompleted)
}

func TestCompleteAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.task(t, "a1", f.alice)
	f.task(t, "a2", f.alice)
	f.task(t, "b1", f.bob)

	updated, err := f.todos.CompleteAll(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	items, err := f.todos.ListTasks(ctx, f.alice)
	require.NoError(t, err)
	for _, item := range items {
		assert.True(t, item.Completed)
		assert.NotNil(t, item.CompletedAt)
	}

	bobActive, err := f.todos.CountActiveTasks(ctx, f.bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobActive)
}

func TestUnresolvedUserReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.task(t, "a1", f.alice)

	for _, user := range []*entities.User{nil, {}} {
		items, err := f.todos.ListTasks(ctx, user)
		require.NoError(t, err)
		assert.Empty(t, items)

		counts, err := f.todos.CountTasks(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, usecases.TaskCounts{}, counts)

		n, err := f.todos.ClearCompleted(ctx, user)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = f.todos.CompleteAll(ctx, user)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
}

func TestListTasksFiltered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	milk := f.task(t, "Buy milk", f.alice)
	f.task(t, "Write report", f.alice)
	_, err := f.todos.ToggleComplete(ctx, milk.ID, f.alice)
	require.NoError(t, err)

	active, err := f.todos.ListTasksFiltered(ctx, f.alice, repositories.ListOptions{Filter: repositories.FilterActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Write report", active[0].Description)

	found, err := f.todos.ListTasksFiltered(ctx, f.alice, repositories.ListOptions{Query: "milk"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, milk.ID, found[0].ID)
}

func TestAliceScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	yesterday := f.clock.Add(-24 * time.Hour)

	milk, err := f.todos.CreateTask(ctx, "Buy milk", nil, f.alice)
	require.NoError(t, err)
	_, err = f.todos.CreateTask(ctx, "Write report", &yesterday, f.alice)
	require.NoError(t, err)

	_, err = f.todos.ToggleComplete(ctx, milk.ID, f.alice)
	require.NoError(t, err)

	items, err := f.todos.ListTasks(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Write report", items[0].Description)
	assert.False(t, items[0].Completed)
	assert.True(t, items[0].Overdue(f.clock))

	assert.Equal(t, "Buy milk", items[1].Description)
	assert.True(t, items[1].Completed)
	assert.NotNil(t, items[1].CompletedAt)

	active, err := f.todos.CountActiveTasks(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	completed, err := f.todos.CountCompletedTasks(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed)
}
