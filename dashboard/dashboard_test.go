package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adonese/folio/analytics"
	gateway "github.com/adonese/folio/apigateway"
	"github.com/adonese/folio/cms_fields"
	"github.com/adonese/folio/store"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testPassword = "Sup3r$ecret"

type testEnv struct {
	App    *fiber.App
	Store  *store.Store
	Admin  *cms_fields.User
	Editor *cms_fields.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.OpenFromConfig("", filepath.Join(t.TempDir(), "dashboard.db"), "sqlite")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	env := &testEnv{}
	env.mount(store.New(db, store.WithDataKey("test-data-key")))
	env.Admin = env.addUser(t, "admin@example.com", cms_fields.RoleAdmin)
	env.Editor = env.addUser(t, "editor@example.com", cms_fields.RoleEditor)
	return env
}

// mount serves the admin API over st, replacing any previous app.
func (e *testEnv) mount(st *store.Store) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := &Service{
		Store:     st,
		Auth:      &gateway.JWTAuth{Key: []byte("test-secret"), TTL: time.Hour},
		Analytics: &analytics.Service{Store: st, Counter: analytics.NewCounter(nil), Logger: logger},
		Logger:    logger,
	}
	app := fiber.New(fiber.Config{
		ErrorHandler: gateway.ErrorHandler(logger),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	svc.Routes(app.Group("/api/admin"))
	e.App, e.Store = app, st
}

func (e *testEnv) addUser(t *testing.T, email, role string) *cms_fields.User {
	t.Helper()
	u := &cms_fields.User{Email: email, Name: strings.Split(email, "@")[0], Role: role}
	require.NoError(t, u.HashPassword(testPassword))
	require.NoError(t, e.Store.CreateUser(context.Background(), u))
	return u
}

type response struct {
	Status int
	Header http.Header
	Body   map[string]any
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/api/admin"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := e.App.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	out := response{Status: res.StatusCode, Header: res.Header}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.Body), string(raw))
	}
	return out
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	res := e.do(t, http.MethodPost, "/auth/login", "", fmt.Sprintf(`{"email":%q,"password":%q}`, email, testPassword))
	require.Equal(t, http.StatusOK, res.Status, res.Body)
	return res.Body["authorization"].(string)
}

func result(t *testing.T, res response) map[string]any {
	t.Helper()
	out, ok := res.Body["result"].(map[string]any)
	require.True(t, ok, res.Body)
	return out
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	res := env.do(t, http.MethodPost, "/auth/login", "", `{"email":"admin@example.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, res.Status)
	require.Equal(t, "invalid_credentials", res.Body["code"])

	res = env.do(t, http.MethodPost, "/auth/login", "", `{"email":"nobody@example.com","password":"wrong"}`)
	require.Equal(t, http.StatusUnauthorized, res.Status)
	require.Equal(t, "invalid_credentials", res.Body["code"])

	res = env.do(t, http.MethodPost, "/auth/login", "", `{"email":"not-an-email"}`)
	require.Equal(t, http.StatusBadRequest, res.Status)

	res = env.do(t, http.MethodPost, "/auth/login", "", `{"email":"ADMIN@example.com","password":"Sup3r$ecret"}`)
	require.Equal(t, http.StatusOK, res.Status)
	token := res.Body["authorization"].(string)
	require.Equal(t, token, res.Header.Get("Authorization"))
	require.Contains(t, res.Header.Get("Set-Cookie"), gateway.SessionCookie+"="+token)
	require.Contains(t, strings.ToLower(res.Header.Get("Set-Cookie")), "httponly")
	user := res.Body["user"].(map[string]any)
	require.NotContains(t, user, "password")
	require.NotContains(t, user, "totp_secret")

	res = env.do(t, http.MethodGet, "/auth/me", token, "")
	require.Equal(t, http.StatusOK, res.Status)
	me := result(t, res)
	require.Equal(t, "admin@example.com", me["email"])
	require.NotNil(t, me["last_login_at"])

	res = env.do(t, http.MethodPost, "/auth/refresh", token, "")
	require.Equal(t, http.StatusOK, res.Status)
	require.NotEmpty(t, res.Body["authorization"])

	res = env.do(t, http.MethodGet, "/auth/me", "", "")
	require.Equal(t, http.StatusUnauthorized, res.Status)

	res = env.do(t, http.MethodPost, "/auth/logout", "", "")
	require.Equal(t, http.StatusOK, res.Status)
	require.Contains(t, res.Header.Get("Set-Cookie"), gateway.SessionCookie+"=;")
}

func TestTOTP(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin@example.com")

	res := env.do(t, http.MethodPost, "/auth/totp/setup", token, "")
	require.Equal(t, http.StatusOK, res.Status)
	secret := res.Body["secret"].(string)
	require.True(t, strings.HasPrefix(res.Body["url"].(string), "otpauth://totp/"))
	require.True(t, strings.HasPrefix(res.Body["qr"].(string), "data:image/png;base64,"))

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}

	res = env.do(t, http.MethodPost, "/auth/totp/enable", token, `{"code":"`+wrong+`"}`)
	require.Equal(t, "invalid_totp", res.Body["code"])
	res = env.do(t, http.MethodPost, "/auth/totp/enable", token, `{"code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, res.Status)

	stored, err := env.Store.GetUserByID(context.Background(), env.Admin.ID)
	require.NoError(t, err)
	require.True(t, stored.TOTPEnabled)
	require.Equal(t, secret, stored.TOTPSecret)

	res = env.do(t, http.MethodPost, "/auth/login", "", `{"email":"admin@example.com","password":"Sup3r$ecret"}`)
	require.Equal(t, http.StatusUnauthorized, res.Status)
	require.Equal(t, "totp_required", res.Body["code"])

	res = env.do(t, http.MethodPost, "/auth/login", "", `{"email":"admin@example.com","password":"Sup3r$ecret","code":"`+wrong+`"}`)
	require.Equal(t, "invalid_totp", res.Body["code"])

	res = env.do(t, http.MethodPost, "/auth/login", "", `{"email":"admin@example.com","password":"Sup3r$ecret","code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, res.Status)

	res = env.do(t, http.MethodPost, "/auth/totp/setup", token, "")
	require.Equal(t, http.StatusConflict, res.Status)

	res = env.do(t, http.MethodPost, "/auth/totp/disable", token, `{"code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, res.Status)
	env.login(t, "admin@example.com")
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "editor@example.com")

	res := env.do(t, http.MethodPost, "/auth/password", token, `{"old_password":"Sup3r$ecret","new_password":"weakpass"}`)
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.Contains(t, res.Body["fields"], "new_password")

	res = env.do(t, http.MethodPost, "/auth/password", token, `{"old_password":"nope","new_password":"N3w$ecret!"}`)
	require.Equal(t, http.StatusUnauthorized, res.Status)

	res = env.do(t, http.MethodPost, "/auth/password", token, `{"old_password":"Sup3r$ecret","new_password":"N3w$ecret!"}`)
	require.Equal(t, http.StatusOK, res.Status)

	res = env.do(t, http.MethodPost, "/auth/login", "", `{"email":"editor@example.com","password":"N3w$ecret!"}`)
	require.Equal(t, http.StatusOK, res.Status)
}

func TestPosts(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "editor@example.com")

	res := env.do(t, http.MethodPost, "/categories", token, `{"name":"Go Notes"}`)
	require.Equal(t, http.StatusCreated, res.Status)
	catID := int64(result(t, res)["id"].(float64))

	res = env.do(t, http.MethodPost, "/posts", token, `{"title":"Hi","content":"x","category_id":999}`)
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.Contains(t, res.Body["fields"], "category_id")

	res = env.do(t, http.MethodPost, "/posts", token, fmt.Sprintf(`{"title":"Hello World","content":"# Hello\n\nbody text","tags":["Go"," go ","SQL"],"category_id":%d}`, catID))
	require.Equal(t, http.StatusCreated, res.Status)
	post := result(t, res)
	id := int64(post["id"].(float64))
	require.Equal(t, "hello-world", post["slug"])
	require.Equal(t, "draft", post["status"])
	require.Equal(t, "editor", post["author_name"])
	require.Equal(t, []any{"go", "sql"}, post["tags"])
	require.Nil(t, post["published_at"])

	res = env.do(t, http.MethodPost, "/posts", token, `{"title":"Hello World","content":"again"}`)
	require.Equal(t, http.StatusCreated, res.Status)
	otherID := int64(result(t, res)["id"].(float64))
	require.Equal(t, "hello-world-2", result(t, res)["slug"])

	res = env.do(t, http.MethodPut, fmt.Sprintf("/posts/%d", otherID), token, `{"title":"Renamed","slug":"hello-world","content":"again"}`)
	require.Equal(t, http.StatusConflict, res.Status)
	require.Contains(t, res.Body["fields"], "slug")

	res = env.do(t, http.MethodPut, fmt.Sprintf("/posts/%d", otherID), token, `{"title":"Renamed","content":"again"}`)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "hello-world-2", result(t, res)["slug"])
	require.Equal(t, "Renamed", result(t, res)["title"])

	res = env.do(t, http.MethodPost, fmt.Sprintf("/posts/%d/publish", id), token, "")
	require.Equal(t, http.StatusOK, res.Status)
	published := result(t, res)
	require.Equal(t, "published", published["status"])
	require.NotNil(t, published["published_at"])

	res = env.do(t, http.MethodPost, fmt.Sprintf("/posts/%d/unpublish", id), token, "")
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "draft", result(t, res)["status"])
	require.Equal(t, published["published_at"], result(t, res)["published_at"])

	res = env.do(t, http.MethodGet, "/posts?status=draft", token, "")
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, float64(2), res.Body["total"])

	res = env.do(t, http.MethodGet, "/posts?status=bogus", token, "")
	require.Equal(t, http.StatusBadRequest, res.Status)

	res = env.do(t, http.MethodGet, fmt.Sprintf("/posts/%d", id), token, "")
	require.Equal(t, http.StatusOK, res.Status)
	require.Contains(t, result(t, res)["content_html"], "<h1")

	res = env.do(t, http.MethodGet, "/categories", token, "")
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, float64(1), res.Body["result"].([]any)[0].(map[string]any)["post_count"])

	res = env.do(t, http.MethodDelete, fmt.Sprintf("/categories/%d", catID), token, "")
	require.Equal(t, http.StatusOK, res.Status)
	res = env.do(t, http.MethodGet, fmt.Sprintf("/posts/%d", id), token, "")
	require.Nil(t, result(t, res)["category_id"])

	res = env.do(t, http.MethodDelete, fmt.Sprintf("/posts/%d", id), token, "")
	require.Equal(t, http.StatusOK, res.Status)
	res = env.do(t, http.MethodGet, fmt.Sprintf("/posts/%d", id), token, "")
	require.Equal(t, http.StatusNotFound, res.Status)
	res = env.do(t, http.MethodGet, "/posts/abc", token, "")
	require.Equal(t, http.StatusBadRequest, res.Status)
}

func TestProjects(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "editor@example.com")

	var ids []int64
	for _, title := range []string{"One", "Two", "Three"} {
		res := env.do(t, http.MethodPost, "/projects", token, `{"title":"`+title+`","tech_stack":["go","sqlite"],"published":true,"repo_url":"https://github.com/example/x"}`)
		require.Equal(t, http.StatusCreated, res.Status)
		ids = append(ids, int64(result(t, res)["id"].(float64)))
	}

	res := env.do(t, http.MethodPost, "/projects", token, `{"title":"Bad","repo_url":"not a url"}`)
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.Contains(t, res.Body["fields"], "repo_url")

	res = env.do(t, http.MethodPut, "/projects/order", token, fmt.Sprintf(`{"ids":[%d,%d,%d]}`, ids[2], ids[0], ids[1]))
	require.Equal(t, http.StatusOK, res.Status)
	list := res.Body["result"].([]any)
	require.Equal(t, "Three", list[0].(map[string]any)["title"])
	require.Equal(t, "One", list[1].(map[string]any)["title"])

	res = env.do(t, http.MethodPut, "/projects/order", token, fmt.Sprintf(`{"ids":[%d,9999]}`, ids[1]))
	require.Equal(t, http.StatusNotFound, res.Status)
	res = env.do(t, http.MethodPut, "/projects/order", token, fmt.Sprintf(`{"ids":[%d,%d]}`, ids[1], ids[1]))
	require.Equal(t, http.StatusBadRequest, res.Status)

	res = env.do(t, http.MethodGet, fmt.Sprintf("/projects/%d", ids[2]), token, "")
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, float64(0), result(t, res)["sort_order"])

	res = env.do(t, http.MethodPut, fmt.Sprintf("/projects/%d", ids[0]), token, `{"title":"One Renamed","featured":true}`)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "one", result(t, res)["slug"])
	require.Equal(t, true, result(t, res)["featured"])

	res = env.do(t, http.MethodDelete, fmt.Sprintf("/projects/%d", ids[0]), token, "")
	require.Equal(t, http.StatusOK, res.Status)
	res = env.do(t, http.MethodDelete, fmt.Sprintf("/projects/%d", ids[0]), token, "")
	require.Equal(t, http.StatusNotFound, res.Status)
}

func TestContacts(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "editor@example.com")
	ctx := context.Background()

	first := &cms_fields.Contact{Name: "Ada", Email: "ada@example.com", Message: "hello there friend"}
	require.NoError(t, env.Store.CreateContact(ctx, first, "10.0.0.1"))
	require.NoError(t, env.Store.CreateContact(ctx, &cms_fields.Contact{Name: "Bob", Email: "bob@example.com", Message: "another message"}, ""))

	res := env.do(t, http.MethodGet, "/contacts", token, "")
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, float64(2), res.Body["total"])
	counts := res.Body["counts"].(map[string]any)
	require.Equal(t, float64(2), counts["new"])
	require.Equal(t, float64(0), counts["archived"])
	require.NotContains(t, res.Body["result"].([]any)[0], "ip_hash")

	res = env.do(t, http.MethodGet, fmt.Sprintf("/contacts/%d", first.ID), token, "")
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "read", result(t, res)["status"])

	res = env.do(t, http.MethodGet, "/contacts?status=read", token, "")
	require.Equal(t, float64(1), res.Body["total"])
	res = env.do(t, http.MethodGet, "/contacts?status=spam", token, "")
	require.Equal(t, http.StatusBadRequest, res.Status)

	res = env.do(t, http.MethodPatch, fmt.Sprintf("/contacts/%d", first.ID), token, `{"status":"archived"}`)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "archived", result(t, res)["status"])

	// archived messages stay archived when opened
	res = env.do(t, http.MethodGet, fmt.Sprintf("/contacts/%d", first.ID), token, "")
	require.Equal(t, "archived", result(t, res)["status"])

	res = env.do(t, http.MethodPatch, fmt.Sprintf("/contacts/%d", first.ID), token, `{"status":"gone"}`)
	require.Equal(t, http.StatusBadRequest, res.Status)

	res = env.do(t, http.MethodDelete, fmt.Sprintf("/contacts/%d", first.ID), token, "")
	require.Equal(t, http.StatusOK, res.Status)
	res = env.do(t, http.MethodGet, fmt.Sprintf("/contacts/%d", first.ID), token, "")
	require.Equal(t, http.StatusNotFound, res.Status)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "editor@example.com")
	ctx := context.Background()

	for _, p := range []string{"/", "/blog/a", "/blog/a"} {
		require.NoError(t, env.Store.RecordView(ctx, &cms_fields.PageView{Path: p, VisitorHash: "v1"}))
	}
	require.NoError(t, env.Store.CreatePost(ctx, &cms_fields.Post{Title: "Draft", Content: "x"}))

	res := env.do(t, http.MethodGet, "/stats?days=0", token, "")
	require.Equal(t, http.StatusBadRequest, res.Status)
	res = env.do(t, http.MethodGet, "/stats?days=366", token, "")
	require.Equal(t, http.StatusBadRequest, res.Status)

	res = env.do(t, http.MethodGet, "/stats?days=7", token, "")
	require.Equal(t, http.StatusOK, res.Status)
	out := result(t, res)
	summary := out["analytics"].(map[string]any)
	require.Equal(t, float64(3), summary["total"])
	require.Equal(t, float64(1), summary["unique"])
	require.Equal(t, float64(7), summary["days"])
	require.Len(t, summary["daily"], 7)
	require.Equal(t, "/blog/a", summary["top_pages"].([]any)[0].(map[string]any)["key"])
	require.Equal(t, float64(1), out["posts"].(map[string]any)["draft"])
	require.Equal(t, float64(0), out["projects"])

	res = env.do(t, http.MethodGet, "/stats", token, "")
	require.Equal(t, float64(30), result(t, res)["analytics"].(map[string]any)["days"])
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin@example.com")
	editor := env.login(t, "editor@example.com")

	res := env.do(t, http.MethodGet, "/users", editor, "")
	require.Equal(t, http.StatusForbidden, res.Status)
	res = env.do(t, http.MethodGet, "/settings", editor, "")
	require.Equal(t, http.StatusForbidden, res.Status)

	res = env.do(t, http.MethodGet, "/users", admin, "")
	require.Equal(t, http.StatusOK, res.Status)
	require.Len(t, res.Body["result"], 2)

	res = env.do(t, http.MethodPost, "/users", admin, `{"email":"new@example.com","name":"New","role":"editor","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.Contains(t, res.Body["fields"], "password")

	res = env.do(t, http.MethodPost, "/users", admin, `{"email":"Editor@example.com","name":"Dup","role":"editor","password":"Val1d!pass"}`)
	require.Equal(t, http.StatusConflict, res.Status)
	require.Contains(t, res.Body["fields"], "email")

	res = env.do(t, http.MethodPost, "/users", admin, `{"email":"new@example.com","name":"New","role":"editor","password":"Val1d!pass"}`)
	require.Equal(t, http.StatusCreated, res.Status)
	newID := int64(result(t, res)["id"].(float64))

	res = env.do(t, http.MethodPut, fmt.Sprintf("/users/%d", env.Admin.ID), admin, `{"email":"admin@example.com","name":"Admin","role":"editor"}`)
	require.Equal(t, http.StatusConflict, res.Status)
	require.Equal(t, "last_admin", res.Body["code"])

	res = env.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", env.Admin.ID), admin, "")
	require.Equal(t, http.StatusConflict, res.Status)

	res = env.do(t, http.MethodPut, fmt.Sprintf("/users/%d", newID), admin, `{"email":"new@example.com","name":"Promoted","role":"admin"}`)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, "admin", result(t, res)["role"])

	// with a second admin the first may step down
	res = env.do(t, http.MethodPut, fmt.Sprintf("/users/%d", env.Admin.ID), admin, `{"email":"admin@example.com","name":"Admin","role":"editor"}`)
	require.Equal(t, http.StatusOK, res.Status)

	// the old token no longer carries admin rights
	res = env.do(t, http.MethodPut, "/settings", admin, `{"site_title":"Mine"}`)
	require.Equal(t, http.StatusForbidden, res.Status)
	res = env.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", env.Editor.ID), admin, "")
	require.Equal(t, http.StatusForbidden, res.Status)
	res = env.do(t, http.MethodGet, "/posts", admin, "")
	require.Equal(t, http.StatusOK, res.Status)

	res = env.do(t, http.MethodPost, "/auth/login", "", `{"email":"new@example.com","password":"Val1d!pass"}`)
	require.Equal(t, http.StatusOK, res.Status)
	promoted := res.Body["authorization"].(string)

	res = env.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", env.Editor.ID), promoted, "")
	require.Equal(t, http.StatusOK, res.Status)
	res = env.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", env.Editor.ID), promoted, "")
	require.Equal(t, http.StatusNotFound, res.Status)

	// a deleted account's token is dead
	res = env.do(t, http.MethodGet, "/posts", editor, "")
	require.Equal(t, http.StatusUnauthorized, res.Status)
	require.Equal(t, "session_expired", res.Body["code"])
	res = env.do(t, http.MethodGet, "/auth/me", editor, "")
	require.Equal(t, http.StatusUnauthorized, res.Status)
}

func TestLogin_unreadableTOTPSecret(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.Store.SetTOTP(ctx, env.Admin.ID, "JBSWY3DPEHPK3PXP", true))
	env.Editor.Role = cms_fields.RoleAdmin
	require.NoError(t, env.Store.UpdateUser(ctx, env.Editor))

	// same database, different data key
	env.mount(store.New(env.Store.DB, store.WithDataKey("rotated-data-key")))

	emptyKeyCode, err := totp.GenerateCode("", time.Now())
	require.NoError(t, err)
	res := env.do(t, http.MethodPost, "/auth/login", "", `{"email":"admin@example.com","password":"Sup3r$ecret","code":"`+emptyKeyCode+`"}`)
	require.Equal(t, http.StatusUnauthorized, res.Status)
	require.Equal(t, "invalid_totp", res.Body["code"])

	other := env.login(t, "editor@example.com")
	res = env.do(t, http.MethodDelete, fmt.Sprintf("/users/%d/totp", env.Admin.ID), other, "")
	require.Equal(t, http.StatusOK, res.Status)
	env.login(t, "admin@example.com")
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin@example.com")

	res := env.do(t, http.MethodPut, "/settings", admin, `{"posts_per_page":"500","contact_enabled":"maybe","Bad Key":"x"}`)
	require.Equal(t, http.StatusBadRequest, res.Status)
	fields := res.Body["fields"].(map[string]any)
	require.Contains(t, fields, "posts_per_page")
	require.Contains(t, fields, "contact_enabled")
	require.Contains(t, fields, "Bad Key")

	res = env.do(t, http.MethodPut, "/settings", admin, `{"site_title":"Ada's Notes","footer_note":"hand made"}`)
	require.Equal(t, http.StatusOK, res.Status)

	public, err := env.Store.PublicSettings(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Ada's Notes", public[cms_fields.SettingSiteTitle])
	require.NotContains(t, public, "footer_note")

	res = env.do(t, http.MethodGet, "/settings", admin, "")
	require.Equal(t, http.StatusOK, res.Status)
	require.Len(t, res.Body["result"], len(cms_fields.DefaultSettings)+1)
}
