package logout

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/strataportal/internal/app/store/audit"
	"github.com/dalemusser/strataportal/internal/app/system/auditlog"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/testutil"
	"go.uber.org/zap"
)

func newSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sessionMgr, err := auth.NewSessionManager(
		"test-session-key-for-testing-1234567890",
		"test-session",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sessionMgr
}

func TestLogout_RedirectsToRoot(t *testing.T) {
	// auditLogger can be nil - it's nil-safe
	h := NewHandler(newSessionManager(t), nil, zap.NewNop())

	req := testutil.NewAuthenticatedRequest(http.MethodPost, "/logout", testutil.AdminUser())
	rec := testutil.NewRecorder()
	h.handleLogout(rec, req)

	rec.AssertRedirect(t, "/")
	if rec.Header().Get("Set-Cookie") == "" {
		t.Error("expected the session cookie to be expired")
	}
}

func TestLogout_Anonymous(t *testing.T) {
	h := NewHandler(newSessionManager(t), nil, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := testutil.NewRecorder()
	h.handleLogout(rec, req)

	rec.AssertRedirect(t, "/")
}

func TestLogout_Audited(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	h := NewHandler(newSessionManager(t), auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.ModeDB}), zap.NewNop())

	user := testutil.CoordinatorUser()
	h.handleLogout(testutil.NewRecorder(), testutil.NewAuthenticatedRequest(http.MethodPost, "/logout", user))

	ctx, cancel := testutil.TestContext()
	defer cancel()
	events, err := store.Query(ctx, audit.QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 || events[0].EventType != audit.EventLogout {
		t.Fatalf("events = %+v, want one logout", events)
	}
	if events[0].UserID == nil || events[0].UserID.Hex() != user.ID {
		t.Errorf("UserID = %v, want %s", events[0].UserID, user.ID)
	}
}

func TestRoutes_GETNotAllowed(t *testing.T) {
	h := NewHandler(newSessionManager(t), nil, zap.NewNop())
	router := Routes(h)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
