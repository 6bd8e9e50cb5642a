package router

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/project-catalog/internal/session"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/testutil"
	"github.com/ovaphlow/pitchfork/project-catalog/internal/user"
)

type app struct {
	db  *sqlx.DB
	srv *httptest.Server
}

func newApp(t *testing.T) *app {
	t.Helper()
	db := testutil.NewDB(t)
	mgr, err := session.NewManager(session.Config{
		Secret: []byte("this-is-a-test-secret-with-32-bytes!"),
		TTL:    time.Hour,
	}, session.NewSQLStore(db))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	h, err := RegisterRoutes(Deps{
		Logger:   testutil.Logger(),
		DB:       db,
		Sessions: mgr,
		Hasher:   user.BcryptHasher{Cost: bcrypt.MinCost},
	})
	if err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &app{db: db, srv: srv}
}

func (a *app) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := a.db.Get(&n, "SELECT COUNT(*) FROM "+table); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func (a *app) userID(t *testing.T, username string) int64 {
	t.Helper()
	var id int64
	if err := a.db.Get(&id, a.db.Rebind(`SELECT id FROM users WHERE username = ?`), username); err != nil {
		t.Fatalf("user %s: %v", username, err)
	}
	return id
}

func (a *app) projectID(t *testing.T, name string) int64 {
	t.Helper()
	var id int64
	if err := a.db.Get(&id, a.db.Rebind(`SELECT id FROM projects WHERE name = ?`), name); err != nil {
		t.Fatalf("project %s: %v", name, err)
	}
	return id
}

// browser is a cookie-keeping client that follows redirects.
type browser struct {
	t    *testing.T
	app  *app
	http *http.Client
}

type page struct {
	status int
	path   string
	body   string
}

func (a *app) browser(t *testing.T) *browser {
	t.Helper()
	jar, _ := cookiejar.New(nil)
	return &browser{t: t, app: a, http: &http.Client{Jar: jar}}
}

func (b *browser) do(req *http.Request) page {
	b.t.Helper()
	resp, err := b.http.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return page{status: resp.StatusCode, path: resp.Request.URL.Path, body: string(body)}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	req, _ := http.NewRequest(http.MethodGet, b.app.srv.URL+path, nil)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) page {
	b.t.Helper()
	req, _ := http.NewRequest(http.MethodPost, b.app.srv.URL+path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) register(username, email, password string) page {
	b.t.Helper()
	return b.post("/register", url.Values{"username": {username}, "email": {email}, "phone": {""}, "password": {password}})
}

func (b *browser) login(username, password string) page {
	b.t.Helper()
	return b.post("/login", url.Values{"username": {username}, "password": {password}})
}

// signedIn registers and logs in a fresh browser.
func (a *app) signedIn(t *testing.T, username, email string) *browser {
	t.Helper()
	b := a.browser(t)
	if p := b.register(username, email, "pwd"); p.path != "/login" {
		t.Fatalf("register %s ended at %s (%d)", username, p.path, p.status)
	}
	if p := b.login(username, "pwd"); p.path != "/" || p.status != http.StatusOK {
		t.Fatalf("login %s ended at %s (%d)", username, p.path, p.status)
	}
	return b
}

func expect(t *testing.T, p page, status int, path, contains string) {
	t.Helper()
	if p.status != status || p.path != path {
		t.Fatalf("got %d %s, want %d %s\n%s", p.status, p.path, status, path, p.body)
	}
	if contains != "" && !strings.Contains(p.body, contains) {
		t.Fatalf("page %s does not contain %q\n%s", p.path, contains, p.body)
	}
}

func TestEndToEndProjectRequest(t *testing.T) {
	a := newApp(t)
	admin := a.signedIn(t, "admin", "admin@x.com")
	alice := a.signedIn(t, "alice", "a@x.com")

	p := admin.post("/admin/add_project", url.Values{"image": {"/static/p1.png"}, "name": {"P1"}, "details": {"first project"}})
	expect(t, p, http.StatusOK, "/admin", "Project created successfully")

	p = alice.get("/")
	expect(t, p, http.StatusOK, "/", "P1")
	if !strings.Contains(p.body, "visitor number") {
		t.Fatalf("dashboard missing visitor counter:\n%s", p.body)
	}

	pid := a.projectID(t, "P1")
	p = alice.get(fmt.Sprintf("/request_project/%d", pid))
	expect(t, p, http.StatusOK, fmt.Sprintf("/request_project/%d", pid), "Request P1")

	p = alice.post(fmt.Sprintf("/request_project/%d", pid), url.Values{"message": {"please"}})
	expect(t, p, http.StatusOK, "/", "Project request submitted successfully")

	p = admin.get("/admin/project_requests")
	expect(t, p, http.StatusOK, "/admin/project_requests", "please")
	for _, want := range []string{"alice", "a@x.com", "P1"} {
		if !strings.Contains(p.body, want) {
			t.Fatalf("request list missing %q", want)
		}
	}

	var rows []struct {
		UserID    int64  `db:"user_id"`
		ProjectID int64  `db:"project_id"`
		Message   string `db:"message"`
	}
	if err := a.db.Select(&rows, `SELECT user_id, project_id, message FROM project_requests`); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].UserID != a.userID(t, "alice") || rows[0].ProjectID != pid || rows[0].Message != "please" {
		t.Fatalf("unexpected row %+v", rows[0])
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)
	expect(t, b.register("alice", "a@x.com", "pwd"), http.StatusOK, "/login", "Registration successful")

	p := b.register("alice", "other@x.com", "pwd")
	expect(t, p, http.StatusConflict, "/register", "Username already exists")

	p = b.register("bob", "a@x.com", "pwd")
	expect(t, p, http.StatusConflict, "/register", "Email already registered")

	p = b.register("carol", "", "pwd")
	expect(t, p, http.StatusBadRequest, "/register", "required")

	p = b.register("bob", "b@x.com", strings.Repeat("x", 80))
	expect(t, p, http.StatusBadRequest, "/register", "Password must be at most 72 bytes")

	if n := a.count(t, "users"); n != 1 {
		t.Fatalf("users = %d, want 1", n)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)
	b.register("alice", "a@x.com", "pwd")

	expect(t, b.login("alice", "nope"), http.StatusUnauthorized, "/login", "Invalid username or password")
	expect(t, b.login("ghost", "pwd"), http.StatusUnauthorized, "/login", "Invalid username or password")
}

func TestLogoutEndsSession(t *testing.T) {
	a := newApp(t)
	alice := a.signedIn(t, "alice", "a@x.com")
	if n := a.count(t, "sessions"); n != 1 {
		t.Fatalf("sessions = %d, want 1", n)
	}

	srvURL, _ := url.Parse(a.srv.URL)
	old := alice.http.Jar.Cookies(srvURL)

	expect(t, alice.get("/logout"), http.StatusOK, "/login", "You have been logged out")
	if n := a.count(t, "sessions"); n != 0 {
		t.Fatalf("sessions = %d after logout", n)
	}
	expect(t, alice.get("/"), http.StatusOK, "/login", "Please log in to access this page.")

	// replaying the pre-logout cookie must not authenticate
	replay := a.browser(t)
	replay.http.Jar.SetCookies(srvURL, old)
	expect(t, replay.get("/"), http.StatusOK, "/login", "Please log in to access this page.")
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)
	for _, path := range []string{"/", "/admin", "/users", "/request_project/1", "/logout"} {
		expect(t, b.get(path), http.StatusOK, "/login", "Please log in to access this page.")
	}
}

func TestNonAdminCannotMutate(t *testing.T) {
	a := newApp(t)
	admin := a.signedIn(t, "admin", "admin@x.com")
	admin.post("/admin/add_project", url.Values{"image": {"/i.png"}, "name": {"P1"}, "details": {"d"}})
	pid := a.projectID(t, "P1")
	alice := a.signedIn(t, "alice", "a@x.com")
	adminID := a.userID(t, "admin")

	denied := "You do not have permission to access this page."
	expect(t, alice.get("/admin"), http.StatusOK, "/", denied)
	expect(t, alice.get("/users"), http.StatusOK, "/", denied)
	expect(t, alice.get("/admin/project_requests"), http.StatusOK, "/", denied)
	expect(t, alice.post("/admin/add_project", url.Values{"image": {"/x.png"}, "name": {"X"}, "details": {"x"}}), http.StatusOK, "/", denied)
	expect(t, alice.post(fmt.Sprintf("/admin/modify_project/%d", pid), url.Values{"image": {"/x.png"}, "name": {"X"}, "details": {"x"}}), http.StatusOK, "/", denied)
	expect(t, alice.post(fmt.Sprintf("/admin/delete_project/%d", pid), nil), http.StatusOK, "/", denied)
	expect(t, alice.post(fmt.Sprintf("/delete_user/%d", adminID), nil), http.StatusOK, "/", denied)

	if n := a.count(t, "projects"); n != 1 {
		t.Fatalf("projects = %d, want 1", n)
	}
	if n := a.count(t, "users"); n != 2 {
		t.Fatalf("users = %d, want 2", n)
	}
	var name string
	_ = a.db.Get(&name, `SELECT name FROM projects`)
	if name != "P1" {
		t.Fatalf("project renamed to %q", name)
	}
}

func TestAdminUserManagement(t *testing.T) {
	a := newApp(t)
	admin := a.signedIn(t, "admin", "admin@x.com")
	a.signedIn(t, "alice", "a@x.com")
	adminID := a.userID(t, "admin")
	aliceID := a.userID(t, "alice")

	expect(t, admin.get("/users"), http.StatusOK, "/users", "a@x.com")

	expect(t, admin.post(fmt.Sprintf("/delete_user/%d", adminID), nil), http.StatusOK, "/users", "You cannot delete your own account.")
	if n := a.count(t, "users"); n != 2 {
		t.Fatalf("users = %d after self delete", n)
	}

	expect(t, admin.post("/delete_user/9999", nil), http.StatusOK, "/users", "User not found.")
	expect(t, admin.post("/delete_user/abc", nil), http.StatusOK, "/users", "User not found.")

	expect(t, admin.post(fmt.Sprintf("/delete_user/%d", aliceID), nil), http.StatusOK, "/users", "User deleted successfully.")
	if n := a.count(t, "users"); n != 1 {
		t.Fatalf("users = %d, want 1", n)
	}
	// alice's session went with her account
	if n := a.count(t, "sessions"); n != 1 {
		t.Fatalf("sessions = %d, want 1", n)
	}
}

func TestAdminProjectLifecycle(t *testing.T) {
	a := newApp(t)
	admin := a.signedIn(t, "admin", "admin@x.com")
	alice := a.signedIn(t, "alice", "a@x.com")

	expect(t, admin.post("/admin/add_project", url.Values{"image": {"/i.png"}, "name": {""}, "details": {"d"}}),
		http.StatusBadRequest, "/admin/add_project", "required")
	if n := a.count(t, "projects"); n != 0 {
		t.Fatalf("projects = %d after invalid create", n)
	}

	admin.post("/admin/add_project", url.Values{"image": {"/i.png"}, "name": {"P1"}, "details": {"d"}})
	pid := a.projectID(t, "P1")
	expect(t, admin.get("/admin/list_projects"), http.StatusOK, "/admin/list_projects", "P1")

	edit := fmt.Sprintf("/admin/modify_project/%d", pid)
	expect(t, admin.get(edit), http.StatusOK, edit, `value="P1"`)
	expect(t, admin.post(edit, url.Values{"image": {"/j.png"}, "name": {"P2"}, "details": {"e"}}),
		http.StatusOK, "/admin/list_projects", "Project updated successfully")
	expect(t, admin.get("/admin/modify_project/9999"), http.StatusOK, "/admin/list_projects", "Project not found.")
	expect(t, admin.post("/admin/modify_project/9999", url.Values{"image": {""}, "name": {""}, "details": {""}}),
		http.StatusOK, "/admin/list_projects", "Project not found.")

	alice.post(fmt.Sprintf("/request_project/%d", pid), url.Values{"message": {"hi"}})
	if n := a.count(t, "project_requests"); n != 1 {
		t.Fatalf("requests = %d, want 1", n)
	}

	expect(t, admin.post(fmt.Sprintf("/admin/delete_project/%d", pid), nil),
		http.StatusOK, "/admin/list_projects", "Project deleted successfully")
	if n := a.count(t, "project_requests"); n != 0 {
		t.Fatalf("requests = %d after project delete", n)
	}
	expect(t, admin.post(fmt.Sprintf("/admin/delete_project/%d", pid), nil),
		http.StatusOK, "/admin/list_projects", "Project not found.")
}

func TestRequestUnknownProject(t *testing.T) {
	a := newApp(t)
	alice := a.signedIn(t, "alice", "a@x.com")

	expect(t, alice.post("/request_project/9999", url.Values{"message": {"please"}}), http.StatusOK, "/", "Project not found.")
	expect(t, alice.get("/request_project/abc"), http.StatusOK, "/", "Project not found.")
	if n := a.count(t, "project_requests"); n != 0 {
		t.Fatalf("requests = %d, want 0", n)
	}
}

func TestRequestRequiresMessage(t *testing.T) {
	a := newApp(t)
	admin := a.signedIn(t, "admin", "admin@x.com")
	admin.post("/admin/add_project", url.Values{"image": {"/i.png"}, "name": {"P1"}, "details": {"d"}})
	alice := a.signedIn(t, "alice", "a@x.com")

	path := fmt.Sprintf("/request_project/%d", a.projectID(t, "P1"))
	expect(t, alice.post(path, url.Values{"message": {"  "}}), http.StatusBadRequest, path, "Please enter a message")
	if n := a.count(t, "project_requests"); n != 0 {
		t.Fatalf("requests = %d, want 0", n)
	}
}

func TestOpsEndpoints(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)
	expect(t, b.get("/health"), http.StatusOK, "/health", "ok")
	b.get("/login")
	expect(t, b.get("/metrics"), http.StatusOK, "/metrics", `route="GET /login"`)
}

func TestMiddlewareHeaders(t *testing.T) {
	a := newApp(t)
	resp, err := http.Get(a.srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing security headers")
	}

	req, _ := http.NewRequest(http.MethodGet, a.srv.URL+"/health", nil)
	req.Header.Set(requestIDHeader, "abc")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(requestIDHeader); got != "abc" {
		t.Fatalf("request id = %q, want abc", got)
	}
}
