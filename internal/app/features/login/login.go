// internal/app/features/login/login.go
package login

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/strataportal/internal/app/features/errors"
	"github.com/dalemusser/strataportal/internal/app/store/audit"
	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/store/throttle"
	userstore "github.com/dalemusser/strataportal/internal/app/store/users"
	"github.com/dalemusser/strataportal/internal/app/system/auditlog"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/authutil"
	"github.com/dalemusser/strataportal/internal/app/system/timeouts"
	"github.com/dalemusser/strataportal/internal/app/system/viewdata"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Messages shown on the sign-in form.
const (
	msgMissingLogin = "Please enter your login ID."
	msgInvalid      = "Invalid login ID or password."
	msgDisabled     = "Account is disabled."
	msgTrustOff     = "This account has no password and trust sign-in is turned off."
	msgUnavailable  = "Service temporarily unavailable. Please try again."
)

// Handler provides login handlers.
type Handler struct {
	userStore   *userstore.Store
	sessionMgr  *auth.SessionManager
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	lockout     *throttle.Store // nil disables lockout
	// trustLoginEnabled lets trust-method accounts sign in without a
	// password. Only enable in development.
	trustLoginEnabled bool
	logger            *zap.Logger
}

// NewHandler creates a new login Handler.
// Set trustLoginEnabled to true only in development mode.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	errLog *errorsfeature.ErrorLogger,
	auditLogger *auditlog.Logger,
	failures *throttle.Store,
	trustLoginEnabled bool,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userStore:         userstore.New(db),
		sessionMgr:        sessionMgr,
		errLog:            errLog,
		auditLogger:       auditLogger,
		lockout:           failures,
		trustLoginEnabled: trustLoginEnabled,
		logger:            logger,
	}
}

// LoginVM is the view model for the login page.
type LoginVM struct {
	viewdata.BaseVM
	Error        string
	LoginID      string
	ReturnURL    string
	TrustEnabled bool
}

// Routes returns a chi.Router with login routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.showLogin)
	r.Post("/", h.handleLogin)
	return r
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, loginID, returnURL, msg string) {
	vm := LoginVM{
		BaseVM:       viewdata.New(r),
		Error:        msg,
		LoginID:      loginID,
		ReturnURL:    returnURL,
		TrustEnabled: h.trustLoginEnabled,
	}
	vm.Title = "Sign in"
	templates.Render(w, r, "login/index", vm)
}

// showLogin displays the sign-in form. Users who are already signed in go
// straight to where they were headed.
func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	returnURL := query.Get(r, "return")
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/dashboard"), http.StatusSeeOther)
		return
	}
	h.render(w, r, "", returnURL, "")
}

// handleLogin checks the credentials and starts a session.
//
// Password accounts must present the right password. Trust accounts sign in
// on login ID alone, and only while trust login is enabled.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.errLog.Log(r, "failed to parse form", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	loginID := strings.TrimSpace(r.FormValue("login_id"))
	password := r.FormValue("password")
	returnURL := r.FormValue("return")

	if loginID == "" {
		h.render(w, r, "", returnURL, msgMissingLogin)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "login lookup")
	defer cancel()

	if until, locked, err := h.lockout.Locked(ctx, loginID); err != nil {
		h.errLog.Log(r, "lockout check failed", err)
	} else if locked {
		h.auditLogger.LoginFailed(ctx, r, nil, loginID, audit.EventLoginLockedOut, "locked out")
		h.render(w, r, loginID, returnURL, lockedMessage(time.Until(until)))
		return
	}

	user, err := h.userStore.GetByLoginID(ctx, loginID)
	if err != nil {
		if errors.Is(err, storeutil.ErrNotFound) {
			h.auditLogger.LoginFailed(ctx, r, nil, loginID, audit.EventLoginFailedUserNotFound, "user not found")
			h.fail(ctx, w, r, loginID, returnURL, msgInvalid)
			return
		}
		h.errLog.Log(r, "database error during login lookup", err)
		h.render(w, r, loginID, returnURL, msgUnavailable)
		return
	}

	if user.Status != models.StatusActive {
		h.auditLogger.LoginFailed(ctx, r, &user.ID, loginID, audit.EventLoginFailedUserDisabled, "user disabled")
		h.render(w, r, loginID, returnURL, msgDisabled)
		return
	}

	switch user.AuthMethod {
	case models.AuthTrust:
		if !h.trustLoginEnabled {
			h.auditLogger.LoginFailed(ctx, r, &user.ID, loginID, audit.EventLoginFailedWrongPassword, "trust login disabled")
			h.render(w, r, loginID, returnURL, msgTrustOff)
			return
		}
	default:
		if user.PasswordHash == nil || !authutil.CheckPassword(password, *user.PasswordHash) {
			h.auditLogger.LoginFailed(ctx, r, &user.ID, loginID, audit.EventLoginFailedWrongPassword, "wrong password")
			h.fail(ctx, w, r, loginID, returnURL, msgInvalid)
			return
		}
	}

	if err := h.sessionMgr.CreateSession(w, r, user.ID, user.Role); err != nil {
		h.errLog.Log(r, "failed to create session", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if err := h.lockout.Clear(ctx, loginID); err != nil {
		h.errLog.Log(r, "failed to clear sign-in failures", err)
	}
	h.auditLogger.LoginSuccess(ctx, r, user.ID, user.AuthMethod, user.LoginID)
	h.logger.Info("user signed in", zap.String("login_id", user.LoginID), zap.String("role", user.Role))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/dashboard"), http.StatusSeeOther)
}

// fail counts a bad credential against loginID and re-renders the form.
// The failure that reaches the limit reports the lockout instead of msg.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, r *http.Request, loginID, returnURL, msg string) {
	until, locked, err := h.lockout.Fail(ctx, loginID)
	switch {
	case err != nil:
		h.errLog.Log(r, "failed to record sign-in failure", err)
	case locked:
		h.logger.Warn("login ID locked out", zap.String("login_id", loginID), zap.Time("until", until))
		msg = lockedMessage(time.Until(until))
	}
	h.render(w, r, loginID, returnURL, msg)
}

func lockedMessage(left time.Duration) string {
	mins := int(math.Ceil(left.Minutes()))
	if mins < 1 {
		mins = 1
	}
	unit := "minutes"
	if mins == 1 {
		unit = "minute"
	}
	return fmt.Sprintf("Too many failed sign-ins. Try again in %d %s.", mins, unit)
}
