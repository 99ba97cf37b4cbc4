package uiflags

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(bytes.Repeat([]byte("k"), 32), "ui", false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	return m
}

func TestNewManager_ShortKey(t *testing.T) {
	if _, err := NewManager([]byte("short"), "ui", false, zap.NewNop()); !errors.Is(err, ErrShortKey) {
		t.Errorf("NewManager(short) = %v, want ErrShortKey", err)
	}
}

func TestContext(t *testing.T) {
	if FromContext(context.Background()).SidebarFolded {
		t.Error("empty context should give zero flags")
	}
	ctx := WithFlags(context.Background(), Flags{SidebarFolded: true})
	if !FromContext(ctx).SidebarFolded {
		t.Error("flags lost in context")
	}
}

func TestWriteThenLoad(t *testing.T) {
	m := newManager(t)

	rec := httptest.NewRecorder()
	if err := m.Write(rec, Flags{SidebarFolded: true}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	req := httptest.NewRequest("GET", "/dashboard", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	var seen Flags
	m.Load(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = From(r)
	})).ServeHTTP(httptest.NewRecorder(), req)

	if !seen.SidebarFolded {
		t.Error("SidebarFolded = false after round trip")
	}
}

func TestRead_TamperedCookie(t *testing.T) {
	m := newManager(t)
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "ui", Value: "not-a-signed-value"})

	if m.Read(req).SidebarFolded {
		t.Error("tampered cookie should read as zero flags")
	}
}

func TestToggleSidebar_Redirect(t *testing.T) {
	m := newManager(t)
	form := url.Values{"return": {"/manuals"}}
	req := httptest.NewRequest("POST", "/ui/sidebar", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(WithFlags(req.Context(), Flags{}))

	rec := httptest.NewRecorder()
	m.ToggleSidebar(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/manuals" {
		t.Errorf("Location = %q, want /manuals", loc)
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Errorf("cookies set = %d, want 1", len(rec.Result().Cookies()))
	}
}

func TestToggleSidebar_HTMX(t *testing.T) {
	m := newManager(t)
	req := httptest.NewRequest("POST", "/ui/sidebar", nil)
	req.Header.Set("HX-Request", "true")
	req = req.WithContext(WithFlags(req.Context(), Flags{SidebarFolded: true}))

	rec := httptest.NewRecorder()
	m.ToggleSidebar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got Flags
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if got.SidebarFolded {
		t.Error("toggle from folded should unfold")
	}
}
