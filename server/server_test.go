package server_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"todo-server/confs"
	"todo-server/repositories/memory"
	"todo-server/server"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var taskIDPattern = regexp.MustCompile(`id="task-(\d+)"`)

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newTestServer(t *testing.T) string {
	t.Helper()
	cfg := &confs.Config{
		Port:          "0",
		SessionSecret: []byte("test-secret"),
		SessionTTL:    time.Hour,
		BcryptCost:    bcrypt.MinCost,
		GinMode:       gin.TestMode,
	}
	srv, err := server.NewServer(cfg, memory.NewRepositories(), log.New(io.Discard))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func newBrowser(t *testing.T, base string) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: base,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) read(resp *http.Response, err error) (int, string, string) {
	b.t.Helper()
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.StatusCode, resp.Header.Get("Location"), string(body)
}

func (b *browser) get(path string) (int, string, string) {
	b.t.Helper()
	return b.read(b.client.Get(b.base + path))
}

func (b *browser) post(path string, form url.Values) (int, string, string) {
	b.t.Helper()
	return b.read(b.client.PostForm(b.base+path, form))
}

func (b *browser) register(username, password string) {
	b.t.Helper()
	status, location, _ := b.post("/perform-register", url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"password": {password},
	})
	require.Equal(b.t, http.StatusFound, status)
	require.Equal(b.t, "/login?registered=true", location)
}

func (b *browser) login(username, password string) {
	b.t.Helper()
	status, location, _ := b.post("/perform_login", url.Values{
		"username": {username},
		"password": {password},
	})
	require.Equal(b.t, http.StatusFound, status)
	require.Equal(b.t, "/", location)
}

func (b *browser) home() string {
	b.t.Helper()
	status, _, body := b.get("/")
	require.Equal(b.t, http.StatusOK, status)
	return body
}

func TestHealth(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	status, _, body := b.get("/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"OK"`)
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	status, location, _ := b.get("/")
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", location)

	for _, path := range []string{"/add", "/toggle/1", "/delete/1", "/clear-completed", "/complete-all"} {
		status, location, _ := b.post(path, url.Values{"description": {"x"}})
		assert.Equal(t, http.StatusFound, status, path)
		assert.Equal(t, "/login", location, path)
	}
}

func TestRegisterLoginAndManageTasks(t *testing.T) {
	alice := newBrowser(t, newTestServer(t))

	alice.register("alice", "secret1")
	status, _, body := alice.get("/login?registered=true")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Registration successful! Please log in.")

	status, location, _ := alice.post("/perform_login", url.Values{"username": {"alice"}, "password": {"wrong-pass"}})
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login?error=true", location)
	_, _, body = alice.get("/login?error=true")
	assert.Contains(t, body, "Invalid username or password.")

	alice.login("alice", "secret1")

	status, location, _ = alice.get("/login")
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/", location)

	status, location, _ = alice.post("/add", url.Values{"description": {"Buy milk"}})
	require.Equal(t, http.StatusFound, status)
	require.Equal(t, "/", location)

	body = alice.home()
	assert.Contains(t, body, "Buy milk")
	assert.Contains(t, body, "1 total")
	assert.Contains(t, body, "1 active")
	assert.Contains(t, body, "0 completed")

	m := taskIDPattern.FindStringSubmatch(body)
	require.Len(t, m, 2)
	taskID := m[1]

	status, _, _ = alice.post("/toggle/"+taskID, nil)
	require.Equal(t, http.StatusFound, status)
	body = alice.home()
	assert.Contains(t, body, "0 active")
	assert.Contains(t, body, "1 completed")

	status, _, _ = alice.post("/clear-completed", nil)
	require.Equal(t, http.StatusFound, status)
	body = alice.home()
	assert.Contains(t, body, "Removed 1 completed task.")
	assert.Contains(t, body, "0 total")
	assert.NotContains(t, body, "Buy milk")

	status, location, _ = alice.post("/perform_logout", nil)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login?logout=true", location)

	status, location, _ = alice.get("/")
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", location)
}

func TestLogoutRevokesCapturedSession(t *testing.T) {
	base := newTestServer(t)
	alice := newBrowser(t, base)
	alice.register("alice", "secret1")
	alice.login("alice", "secret1")

	u, err := url.Parse(base)
	require.NoError(t, err)
	captured := alice.client.Jar.Cookies(u)
	require.NotEmpty(t, captured)

	status, _, _ := alice.post("/perform_logout", nil)
	require.Equal(t, http.StatusFound, status)

	replay := newBrowser(t, base)
	replay.client.Jar.SetCookies(u, captured)
	status, location, _ := replay.get("/")
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login", location)

	alice.login("alice", "secret1")
	assert.Contains(t, alice.home(), "0 total")
}

func TestLoginWithEmail(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	b.register("carol", "secret1")
	b.login("carol@example.com", "secret1")
	assert.Contains(t, b.home(), "0 total")
}

func TestTasksAreIsolatedBetweenUsers(t *testing.T) {
	base := newTestServer(t)
	alice := newBrowser(t, base)
	bob := newBrowser(t, base)

	alice.register("alice", "secret1")
	alice.login("alice", "secret1")
	bob.register("bob", "secret2")
	bob.login("bob", "secret2")

	alice.post("/add", url.Values{"description": {"Alice only"}})
	m := taskIDPattern.FindStringSubmatch(alice.home())
	require.Len(t, m, 2)
	taskID := m[1]

	body := bob.home()
	assert.NotContains(t, body, "Alice only")
	assert.Contains(t, body, "0 total")

	status, location, _ := bob.post("/toggle/"+taskID, nil)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/", location)
	assert.Contains(t, bob.home(), "You are not allowed to modify that task.")

	bob.post("/delete/"+taskID, nil)
	assert.Contains(t, bob.home(), "You are not allowed to modify that task.")

	bob.post("/delete/999999", nil)
	assert.Contains(t, bob.home(), "That task no longer exists.")

	bob.post("/toggle/not-a-number", nil)
	assert.Contains(t, bob.home(), "That task no longer exists.")

	body = alice.home()
	assert.Contains(t, body, "Alice only")
	assert.Contains(t, body, "1 active")
}

func TestRegistrationErrors(t *testing.T) {
	base := newTestServer(t)
	b := newBrowser(t, base)

	status, _, body := b.post("/perform-register", url.Values{
		"username": {"al"},
		"email":    {"not-an-email"},
		"password": {"123"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Username must be between 3 and 50 characters")
	assert.Contains(t, body, "Email should be valid")
	assert.Contains(t, body, "Password must be at least 6 characters long")

	status, _, body = b.post("/perform-register", url.Values{
		"username": {"dave@example.com"},
		"email":    {"dave@example.com"},
		"password": {strings.Repeat("x", 73)},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Username cannot contain @")
	assert.Contains(t, body, "Password must be at most 72 bytes long")

	b.register("dave", "secret1")

	status, _, body = b.post("/perform-register", url.Values{
		"username": {"dave"},
		"email":    {"other@example.com"},
		"password": {"secret1"},
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, "Username already exists")

	status, _, body = b.post("/perform-register", url.Values{
		"username": {"dave2"},
		"email":    {"dave@example.com"},
		"password": {"secret1"},
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, "Email already exists")
}

func TestAddRejectsBlankDescription(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	b.register("erin", "secret1")
	b.login("erin", "secret1")

	status, _, body := b.post("/add", url.Values{"description": {"   "}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Description cannot be empty")
	assert.Contains(t, body, "0 total")

	status, _, body = b.post("/add", url.Values{"description": {"Pay rent"}, "dueDate": {"tomorrow"}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Due date is not a valid date")
}

func TestDeleteAccountEndsSession(t *testing.T) {
	b := newBrowser(t, newTestServer(t))
	b.register("frank", "secret1")
	b.login("frank", "secret1")
	b.post("/add", url.Values{"description": {"Walk the dog"}})

	status, location, _ := b.post("/account/delete", nil)
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login?logout=true", location)

	status, location, _ = b.post("/perform_login", url.Values{"username": {"frank"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusFound, status)
	assert.Equal(t, "/login?error=true", location)
}
