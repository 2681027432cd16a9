package httpHandler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"todo-server/auth"
	"todo-server/entities"
	"todo-server/repositories"
	"todo-server/usecases"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

const (
	displayLayout  = "Jan 2, 2006 15:04"
	dueInputLayout = "2006-01-02T15:04"
	dueDateLayout  = "2006-01-02"

	notAllowedMessage = "You are not allowed to modify that task."
	goneMessage       = "That task no longer exists."
)

type TodoHandler struct {
	useCase *usecases.TodoUseCase
	flash   *Flashes
	logger  *log.Logger
	now     func() time.Time
}

func NewTodoHandler(useCase *usecases.TodoUseCase, flash *Flashes, logger *log.Logger) *TodoHandler {
	return &TodoHandler{
		useCase: useCase,
		flash:   flash,
		logger:  logger,
		now:     time.Now,
	}
}

type addTaskForm struct {
	Description string `form:"description"`
	DueDate     string `form:"dueDate"`
}

type taskView struct {
	ID          uint64
	Description string
	Completed   bool
	Overdue     bool
	CreatedAt   string
	CompletedAt string
	DueDate     string
}

// Index handles GET /
func (h *TodoHandler) Index(c *gin.Context) {
	h.renderIndex(c, http.StatusOK, addTaskForm{}, nil)
}

// Add handles POST /add
func (h *TodoHandler) Add(c *gin.Context) {
	user := auth.CurrentUser(c)

	var form addTaskForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderIndex(c, http.StatusBadRequest, form, map[string]string{"form": "The submitted form could not be read."})
		return
	}

	due, err := parseDueDate(form.DueDate)
	if err != nil {
		h.renderIndex(c, http.StatusBadRequest, form, map[string]string{"duedate": "Due date is not a valid date"})
		return
	}

	_, err = h.useCase.CreateTask(c.Request.Context(), form.Description, due, user)
	var verr *usecases.ValidationError
	switch {
	case err == nil:
		c.Redirect(http.StatusFound, "/")
	case errors.As(err, &verr):
		h.renderIndex(c, http.StatusBadRequest, form, verr.Fields)
	default:
		h.logger.Error("could not add task", "user", user.Username, "err", err)
		h.flash.Set(c, FlashError, genericErrorMessage)
		c.Redirect(http.StatusFound, "/")
	}
}

// Toggle handles POST /toggle/:id
func (h *TodoHandler) Toggle(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		h.flash.Set(c, FlashError, goneMessage)
		c.Redirect(http.StatusFound, "/")
		return
	}
	_, err := h.useCase.ToggleComplete(c.Request.Context(), id, auth.CurrentUser(c))
	h.redirectHome(c, "toggle", id, err)
}

// Delete handles POST /delete/:id
func (h *TodoHandler) Delete(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		h.flash.Set(c, FlashError, goneMessage)
		c.Redirect(http.StatusFound, "/")
		return
	}
	err := h.useCase.DeleteTask(c.Request.Context(), id, auth.CurrentUser(c))
	h.redirectHome(c, "delete", id, err)
}

// ClearCompleted handles POST /clear-completed
func (h *TodoHandler) ClearCompleted(c *gin.Context) {
	n, err := h.useCase.ClearCompleted(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		h.logger.Error("could not clear completed tasks", "err", err)
		h.flash.Set(c, FlashError, genericErrorMessage)
	} else if n > 0 {
		h.flash.Set(c, FlashSuccess, fmt.Sprintf("Removed %d completed %s.", n, plural(n, "task", "tasks")))
	}
	c.Redirect(http.StatusFound, "/")
}

// CompleteAll handles POST /complete-all
func (h *TodoHandler) CompleteAll(c *gin.Context) {
	n, err := h.useCase.CompleteAll(c.Request.Context(), auth.CurrentUser(c))
	if err != nil {
		h.logger.Error("could not complete tasks", "err", err)
		h.flash.Set(c, FlashError, genericErrorMessage)
	} else if n > 0 {
		h.flash.Set(c, FlashSuccess, fmt.Sprintf("Marked %d %s completed.", n, plural(n, "task", "tasks")))
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *TodoHandler) redirectHome(c *gin.Context, action string, id uint64, err error) {
	switch {
	case err == nil:
	case errors.Is(err, usecases.ErrUnauthorized):
		h.logger.Warn("task access denied", "action", action, "task_id", id, "user", auth.CurrentUser(c).Username)
		h.flash.Set(c, FlashError, notAllowedMessage)
	case errors.Is(err, usecases.ErrTaskNotFound):
		h.flash.Set(c, FlashError, goneMessage)
	default:
		h.logger.Error("task action failed", "action", action, "task_id", id, "err", err)
		h.flash.Set(c, FlashError, genericErrorMessage)
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *TodoHandler) renderIndex(c *gin.Context, status int, form addTaskForm, fieldErrors map[string]string) {
	ctx := c.Request.Context()
	user := auth.CurrentUser(c)
	opts := listOptions(c)
	flash := h.flash.Pop(c)

	items, err := h.useCase.ListTasksFiltered(ctx, user, opts)
	var counts usecases.TaskCounts
	if err == nil {
		counts, err = h.useCase.CountTasks(ctx, user)
	}
	if err != nil {
		h.logger.Error("could not load tasks", "user", user.Username, "err", err)
		status = http.StatusInternalServerError
		items = nil
		flash = &Flash{Kind: FlashError, Message: genericErrorMessage}
	}

	if fieldErrors == nil {
		fieldErrors = map[string]string{}
	}

	now := h.now()
	tasks := make([]taskView, 0, len(items))
	for i := range items {
		tasks = append(tasks, newTaskView(&items[i], now))
	}

	c.HTML(status, "index.html", gin.H{
		"Title":       "Tasks",
		"Flash":       flash,
		"Username":    user.Username,
		"Tasks":       tasks,
		"Counts":      counts,
		"Filter":      string(opts.Filter),
		"Sort":        string(opts.Sort),
		"Query":       opts.Query,
		"Draft":       form.Description,
		"DraftDue":    form.DueDate,
		"FieldErrors": fieldErrors,
	})
}

func newTaskView(item *entities.TodoItem, now time.Time) taskView {
	v := taskView{
		ID:          item.ID,
		Description: item.Description,
		Completed:   item.Completed,
		Overdue:     item.Overdue(now),
		CreatedAt:   item.CreatedAt.Format(displayLayout),
	}
	if item.CompletedAt != nil {
		v.CompletedAt = item.CompletedAt.Format(displayLayout)
	}
	if item.DueDate != nil {
		v.DueDate = item.DueDate.Format(displayLayout)
	}
	return v
}

// listOptions reads ?filter, ?sort and ?q. Unknown values fall back to
// the defaults.
func listOptions(c *gin.Context) repositories.ListOptions {
	opts := repositories.ListOptions{
		Filter: repositories.FilterAll,
		Sort:   repositories.SortNewest,
		Query:  strings.TrimSpace(c.Query("q")),
	}
	switch f := repositories.TaskFilter(c.Query("filter")); f {
	case repositories.FilterActive, repositories.FilterCompleted:
		opts.Filter = f
	}
	switch s := repositories.TaskSort(c.Query("sort")); s {
	case repositories.SortOldest, repositories.SortDueSoon, repositories.SortDueLate:
		opts.Sort = s
	}
	return opts
}

// parseDueDate accepts a datetime-local value or a bare date. A bare date
// is due at the end of that day.
func parseDueDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(dueInputLayout, value, time.Local); err == nil {
		return &t, nil
	}
	d, err := time.ParseInLocation(dueDateLayout, value, time.Local)
	if err != nil {
		return nil, err
	}
	end := d.Add(24*time.Hour - time.Second)
	return &end, nil
}

func taskID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
