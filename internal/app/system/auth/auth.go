// internal/app/system/auth/auth.go
package auth

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DefaultSessionName is used when no cookie name is configured.
const DefaultSessionName = "strataportal-session"

// Keys stored in the session cookie. Everything else about the user is
// fetched fresh on each request.
const (
	isAuthKey   = "is_authenticated"
	userIDKey   = "user_id"
	userRoleKey = "user_role"
	signedInKey = "signed_in_at"
)

// ErrNoSessionKey is returned by NewSessionManager for an empty key.
var ErrNoSessionKey = errors.New("session key is empty; provide ≥32 random chars")

// SessionConfigError is returned when session configuration is invalid.
type SessionConfigError struct {
	Message string
}

func (e *SessionConfigError) Error() string { return e.Message }

/*─────────────────────────────────────────────────────────────────────────────*
| SessionManager                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the cookie store and the auth middleware.
type SessionManager struct {
	store       *sessions.CookieStore
	logger      *zap.Logger
	name        string
	userFetcher UserFetcher
}

// UserFetcher loads the current state of a signed-in user. It returns nil
// when the user is gone or disabled, which ends the session.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// NewSessionManager builds a SessionManager. In secure (production) mode a
// short or placeholder key is an error; in dev mode it only logs a warning.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, ErrNoSessionKey
	}

	weak := len(sessionKey) < 32 || isDefaultKey(sessionKey)
	switch {
	case weak && secure:
		return nil, &SessionConfigError{
			Message: "session key is too weak for production; provide ≥32 random chars (not the default dev key)",
		}
	case weak:
		logger.Warn("session key is weak; 32+ random chars required in production",
			zap.Int("length", len(sessionKey)),
			zap.Bool("is_default", isDefaultKey(sessionKey)))
	}

	if name == "" {
		name = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session manager initialized",
		zap.Bool("secure", secure),
		zap.String("name", name),
		zap.String("domain", domain))

	return &SessionManager{store: store, logger: logger, name: name}, nil
}

// SessionName returns the configured session cookie name.
func (sm *SessionManager) SessionName() string { return sm.name }

// SetUserFetcher must be called once the database is available.
func (sm *SessionManager) SetUserFetcher(uf UserFetcher) { sm.userFetcher = uf }

/*─────────────────────────────────────────────────────────────────────────────*
| Current user                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the signed-in user as seen by handlers and templates.
type SessionUser struct {
	ID         string
	Name       string
	LoginID    string
	Role       string
	Department string
}

// UserID returns the user's ObjectID, or the zero id if ID is malformed.
func (u *SessionUser) UserID() primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// HasRole reports whether the user holds one of roles.
func (u *SessionUser) HasRole(roles ...string) bool {
	mine := normalize.Role(u.Role)
	for _, r := range roles {
		if normalize.Role(r) == mine {
			return true
		}
	}
	return false
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and whether one is signed in.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// WithTestUser injects a SessionUser into the request context for testing.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadSessionUser puts the signed-in user, if any, into the request context.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			sm.logSessionError(r, err)
		}

		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			userID := getString(sess, userIDKey)
			switch {
			case userID == "":
			case sm.userFetcher == nil:
				r = withUser(r, &SessionUser{ID: userID, Role: getString(sess, userRoleKey)})
			default:
				if u := sm.userFetcher.FetchUser(r.Context(), userID); u != nil {
					r = withUser(r, u)
				} else {
					sm.logger.Info("session invalidated: user not found or disabled",
						zap.String("user_id", userID),
						zap.String("path", r.URL.Path))
					clearSession(sess)
					_ = sess.Save(r, w)
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (sm *SessionManager) logSessionError(r *http.Request, err error) {
	kind := classifySessionError(err)
	fields := []zap.Field{zap.String("category", kind), zap.String("path", r.URL.Path)}
	switch kind {
	case "expired":
		sm.logger.Debug("session expired, starting fresh session", fields...)
	case "mac_invalid":
		sm.logger.Warn("session MAC validation failed (possible tampering)",
			append(fields, zap.String("remote_addr", r.RemoteAddr))...)
	case "backend":
		sm.logger.Error("session store error, starting fresh session", append(fields, zap.Error(err))...)
	default:
		sm.logger.Info("session decode failed, starting fresh session", fields...)
	}
}

// RequireSignedIn sends anonymous users to the login page.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			toLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole allows only users holding one of the given roles. Anonymous
// users go to the login page; signed-in users without the role get /forbidden.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				toLogin(w, r)
				return
			}
			if !u.HasRole(allowed...) {
				sm.logger.Debug("role denied",
					zap.String("user_id", u.ID),
					zap.String("role", u.Role),
					zap.String("path", r.URL.Path))
				deny(w, r, "/forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func toLogin(w http.ResponseWriter, r *http.Request) {
	deny(w, r, "/login?return="+url.QueryEscape(r.URL.RequestURI()), http.StatusUnauthorized)
}

// deny answers HTMX with a full-page client redirect, browsers with a 303,
// and everything else with a bare status.
func deny(w http.ResponseWriter, r *http.Request, target string, status int) {
	switch {
	case r.Header.Get("HX-Request") == "true":
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(status)
	case wantsHTML(r):
		http.Redirect(w, r, target, http.StatusSeeOther)
	default:
		http.Error(w, strings.ToLower(http.StatusText(status)), status)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Sign in / sign out                                                          |
*─────────────────────────────────────────────────────────────────────────────*/

// CreateSession marks the browser as signed in as userID.
func (sm *SessionManager) CreateSession(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, role string) error {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sess, _ = sm.store.New(r, sm.name)
	}
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = userID.Hex()
	sess.Values[userRoleKey] = normalize.Role(role)
	sess.Values[signedInKey] = time.Now().UTC().Unix()
	return sess.Save(r, w)
}

// DestroySession signs the browser out and expires the cookie.
func (sm *SessionManager) DestroySession(w http.ResponseWriter, r *http.Request) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		return
	}
	clearSession(sess)
	sess.Options.MaxAge = -1
	_ = sess.Save(r, w)
}

func clearSession(sess *sessions.Session) {
	sess.Values[isAuthKey] = false
	delete(sess.Values, userIDKey)
	delete(sess.Values, userRoleKey)
	delete(sess.Values, signedInKey)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

var placeholderKeys = []string{
	"dev-only", "change-me", "placeholder", "default",
	"example", "insecure", "test-key", "secret123", "password",
}

func isDefaultKey(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range placeholderKeys {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// classifySessionError names the failure for logging: expired, mac_invalid,
// decode_failed or backend.
func classifySessionError(err error) string {
	var sc securecookie.Error
	if err == nil {
		return "none"
	}
	if !errors.As(err, &sc) || !sc.IsDecode() {
		return "backend"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "expired timestamp"):
		return "expired"
	case strings.Contains(msg, "mac") || strings.Contains(msg, "hash"):
		return "mac_invalid"
	default:
		return "decode_failed"
	}
}
