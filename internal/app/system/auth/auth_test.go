package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const goodKey = "xK8nP2mQ9rT5vW7yB3cF6hJ0lN4sU1wZ"

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(goodKey, "", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager() error = %v", err)
	}
	return sm
}

func TestNewSessionManager(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		secure  bool
		wantErr bool
	}{
		{"valid key dev", goodKey, false, false},
		{"valid key prod", goodKey, true, false},
		{"empty key", "", false, true},
		{"weak key dev", "short", false, false},
		{"weak key prod", "short", true, true},
		{"default key prod", "dev-only-session-key-not-for-production", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm, err := NewSessionManager(tt.key, "test-session", "", time.Hour, tt.secure, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSessionManager() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && sm == nil {
				t.Error("NewSessionManager() returned nil")
			}
		})
	}
}

func TestSessionName_Default(t *testing.T) {
	if got := newTestManager(t).SessionName(); got != DefaultSessionName {
		t.Errorf("SessionName() = %q, want %q", got, DefaultSessionName)
	}
}

func TestSessionUser(t *testing.T) {
	id := primitive.NewObjectID()
	u := &SessionUser{ID: id.Hex(), Role: "Coordinator"}
	if u.UserID() != id {
		t.Errorf("UserID() = %v, want %v", u.UserID(), id)
	}
	if !u.HasRole("admin", "coordinator") {
		t.Error("HasRole should match case-insensitively")
	}
	if u.HasRole("faculty") {
		t.Error("HasRole(faculty) = true for a coordinator")
	}
	if (&SessionUser{ID: "junk"}).UserID() != primitive.NilObjectID {
		t.Error("malformed ID should give the zero ObjectID")
	}
}

func TestRequireSignedIn(t *testing.T) {
	sm := newTestManager(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name     string
		user     *SessionUser
		header   map[string]string
		wantCode int
		wantLoc  string
	}{
		{"signed in", &SessionUser{ID: "u1", Role: "faculty"}, nil, http.StatusOK, ""},
		{"browser", nil, map[string]string{"Accept": "text/html"}, http.StatusSeeOther, "/login?return=%2Fmanuals%3Fq%3Dnaac"},
		{"api", nil, nil, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/manuals?q=naac", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if tt.user != nil {
				req = WithTestUser(req, tt.user)
			}
			rec := httptest.NewRecorder()
			sm.RequireSignedIn(ok).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantLoc != "" && rec.Header().Get("Location") != tt.wantLoc {
				t.Errorf("Location = %q, want %q", rec.Header().Get("Location"), tt.wantLoc)
			}
		})
	}
}

func TestRequireSignedIn_HTMX(t *testing.T) {
	sm := newTestManager(t)
	req := httptest.NewRequest("GET", "/institutions", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()

	sm.RequireSignedIn(http.NotFoundHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("HX-Redirect"); !strings.HasPrefix(got, "/login?return=") {
		t.Errorf("HX-Redirect = %q", got)
	}
}

func TestRequireRole(t *testing.T) {
	sm := newTestManager(t)

	tests := []struct {
		role    string
		allowed bool
	}{
		{"admin", true},
		{"coordinator", true},
		{"ADMIN", true},
		{"faculty", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			called := false
			h := sm.RequireRole("admin", "coordinator")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))
			req := WithTestUser(httptest.NewRequest("GET", "/criteria", nil), &SessionUser{ID: "u", Role: tt.role})
			req.Header.Set("Accept", "text/html")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if called != tt.allowed {
				t.Errorf("handler called = %v, want %v", called, tt.allowed)
			}
			if !tt.allowed && rec.Header().Get("Location") != "/forbidden" {
				t.Errorf("Location = %q, want /forbidden", rec.Header().Get("Location"))
			}
		})
	}
}

func TestRequireRole_Anonymous(t *testing.T) {
	sm := newTestManager(t)
	rec := httptest.NewRecorder()
	sm.RequireRole("admin")(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/auditlog", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// fetchNone behaves like a store where the user has been disabled.
type fetchNone struct{}

func (fetchNone) FetchUser(context.Context, string) *SessionUser { return nil }

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestManager(t)
	id := primitive.NewObjectID()

	// sign in
	rec := httptest.NewRecorder()
	if err := sm.CreateSession(rec, httptest.NewRequest("POST", "/login", nil), id, "Admin"); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie written")
	}

	load := func(sm *SessionManager) (*SessionUser, bool) {
		req := httptest.NewRequest("GET", "/dashboard", nil)
		for _, c := range cookies {
			req.AddCookie(c)
		}
		var (
			got *SessionUser
			ok  bool
		)
		sm.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok = CurrentUser(r)
		})).ServeHTTP(httptest.NewRecorder(), req)
		return got, ok
	}

	u, ok := load(sm)
	if !ok || u.ID != id.Hex() || u.Role != "admin" {
		t.Fatalf("loaded user = %+v, %v", u, ok)
	}

	sm.SetUserFetcher(fetchNone{})
	if _, ok := load(sm); ok {
		t.Error("a disabled user should not be loaded")
	}
}

func TestIsDefaultKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"dev-only-key", true},
		{"change-me-please", true},
		{"password123", true},
		{goodKey, false},
		{"secure-random-key-that-is-long-enough", false},
	}
	for _, tt := range tests {
		if got := isDefaultKey(tt.key); got != tt.want {
			t.Errorf("isDefaultKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

type mockCookieError struct {
	msg    string
	decode bool
}

func (e mockCookieError) Error() string    { return e.msg }
func (e mockCookieError) IsUsage() bool    { return false }
func (e mockCookieError) IsDecode() bool   { return e.decode }
func (e mockCookieError) IsInternal() bool { return !e.decode }
func (e mockCookieError) Cause() error     { return nil }

func TestClassifySessionError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{errors.New("redis down"), "backend"},
		{mockCookieError{"securecookie: expired timestamp", true}, "expired"},
		{mockCookieError{"securecookie: the value is not valid (mac)", true}, "mac_invalid"},
		{mockCookieError{"securecookie: error - caused by: base64 decode", true}, "decode_failed"},
		{mockCookieError{"securecookie: hash key is not set", false}, "backend"},
	}
	for _, tt := range tests {
		if got := classifySessionError(tt.err); got != tt.want {
			t.Errorf("classifySessionError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWantsHTML(t *testing.T) {
	tests := []struct {
		accept, hx string
		want       bool
	}{
		{"text/html", "", true},
		{"application/json", "", false},
		{"application/json", "true", true},
		{"", "", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		if tt.accept != "" {
			req.Header.Set("Accept", tt.accept)
		}
		if tt.hx != "" {
			req.Header.Set("HX-Request", tt.hx)
		}
		if got := wantsHTML(req); got != tt.want {
			t.Errorf("wantsHTML(accept=%q hx=%q) = %v, want %v", tt.accept, tt.hx, got, tt.want)
		}
	}
}
