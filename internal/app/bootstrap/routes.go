// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	auditlogfeature "github.com/dalemusser/strataportal/internal/app/features/auditlog"
	criteriafeature "github.com/dalemusser/strataportal/internal/app/features/criteria"
	dashboardfeature "github.com/dalemusser/strataportal/internal/app/features/dashboard"
	datalabelsfeature "github.com/dalemusser/strataportal/internal/app/features/datalabels"
	errorsfeature "github.com/dalemusser/strataportal/internal/app/features/errors"
	examinationsfeature "github.com/dalemusser/strataportal/internal/app/features/examinations"
	healthfeature "github.com/dalemusser/strataportal/internal/app/features/health"
	homefeature "github.com/dalemusser/strataportal/internal/app/features/home"
	institutionsfeature "github.com/dalemusser/strataportal/internal/app/features/institutions"
	loginfeature "github.com/dalemusser/strataportal/internal/app/features/login"
	logoutfeature "github.com/dalemusser/strataportal/internal/app/features/logout"
	manualsfeature "github.com/dalemusser/strataportal/internal/app/features/manuals"
	obefeature "github.com/dalemusser/strataportal/internal/app/features/obe"
	schedulesfeature "github.com/dalemusser/strataportal/internal/app/features/schedules"
	usersfeature "github.com/dalemusser/strataportal/internal/app/features/users"
	appresources "github.com/dalemusser/strataportal/internal/app/resources"
	"github.com/dalemusser/strataportal/internal/app/store/audit"
	"github.com/dalemusser/strataportal/internal/app/store/throttle"
	userstore "github.com/dalemusser/strataportal/internal/app/store/users"
	"github.com/dalemusser/strataportal/internal/app/system/auditlog"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/listpage"
	"github.com/dalemusser/strataportal/internal/app/system/uiflags"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Every screen is session-authenticated and
// CSRF-protected; only the health probes and assets are public besides the
// landing and login pages.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fetch fresh user data on each request so role changes and disabled
	// accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(userstore.New(deps.MongoDatabase), logger))

	uiFlags, err := uiflags.NewManager([]byte(appCfg.UICookieKey), "strataportal_ui", secure, logger)
	if err != nil {
		logger.Error("ui flags init failed", zap.Error(err))
		return nil, err
	}

	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	errLog := errorsfeature.NewErrorLogger(logger)

	auditLogger := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	// Every list screen shares the configured page sizes, collation and memo.
	tableOpts := listpage.Options{
		PageSizes:       appCfg.PageSizes,
		DefaultPageSize: appCfg.DefaultPageSize,
		Locale:          appCfg.SortLocale,
		MemoSize:        appCfg.TableMemoSize,
	}.TableOptions(logger)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)
	r.Use(uiFlags.Load)

	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("strataportal_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			if req.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/login")
				w.WriteHeader(http.StatusForbidden)
				return
			}
			http.Error(w, "CSRF token invalid or missing", http.StatusForbidden)
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	r.Use(csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...))

	// ─────────────────────────────────────────────────────────────────────────────
	// Public
	// ─────────────────────────────────────────────────────────────────────────────

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// /assets/* serves embedded assets (bundled into the binary)
	r.Handle("/assets/*", appresources.AssetsHandler("/assets"))
	if appCfg.StaticDir != "" {
		r.Handle("/static/*", fileserver.Handler("/static", appCfg.StaticDir))
	}

	r.Mount("/", homefeature.Routes(homefeature.NewHandler(logger)))

	// Trust login is only enabled in dev mode - it allows passwordless login.
	trustLoginEnabled := coreCfg.Env == "dev"
	failures := throttle.New(deps.MongoDatabase, throttle.Config{
		MaxFailures: appCfg.LoginMaxFailures,
		Window:      appCfg.LoginWindow,
		Lockout:     appCfg.LoginLockout,
	})
	loginHandler := loginfeature.NewHandler(deps.MongoDatabase, sessionMgr, errLog, auditLogger, failures, trustLoginEnabled, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))
	r.Mount("/logout", logoutfeature.Routes(logoutfeature.NewHandler(sessionMgr, auditLogger, logger)))

	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Sidebar fold preference; a cookie, so it works before sign-in too.
	r.Post("/ui/sidebar", uiFlags.ToggleSidebar)

	// ─────────────────────────────────────────────────────────────────────────────
	// Screens (each router enforces its own role rules)
	// ─────────────────────────────────────────────────────────────────────────────

	db := deps.MongoDatabase

	r.Mount("/dashboard", dashboardfeature.Routes(dashboardfeature.NewHandler(db, nil, logger), sessionMgr))

	r.Mount("/institutions", institutionsfeature.Routes(
		institutionsfeature.NewHandler(db, errLog, auditLogger, logger, tableOpts...), sessionMgr))
	r.Mount("/manuals", manualsfeature.Routes(
		manualsfeature.NewHandler(db, errLog, auditLogger, logger, tableOpts...), sessionMgr))
	r.Mount("/criteria", criteriafeature.Routes(
		criteriafeature.NewHandler(db, errLog, auditLogger, logger, tableOpts...), sessionMgr))
	r.Mount("/datalabels", datalabelsfeature.Routes(
		datalabelsfeature.NewHandler(db, errLog, auditLogger, logger, tableOpts...), sessionMgr))
	r.Mount("/examinations", examinationsfeature.Routes(
		examinationsfeature.NewHandler(db, errLog, auditLogger, logger, tableOpts...), sessionMgr))
	r.Mount("/schedules", schedulesfeature.Routes(
		schedulesfeature.NewHandler(db, errLog, auditLogger, logger, tableOpts...), sessionMgr))
	r.Mount("/obe", obefeature.Routes(obefeature.NewHandler(db, errLog, auditLogger, logger), sessionMgr))

	r.Mount("/users", usersfeature.Routes(
		usersfeature.NewHandler(db, errLog, auditLogger, logger, tableOpts...), sessionMgr))
	r.Mount("/auditlog", auditlogfeature.Routes(
		auditlogfeature.NewHandler(db, errLog, logger, tableOpts...), sessionMgr))

	// 404 catch-all for unmatched routes
	r.NotFound(errorsHandler.NotFound)

	return r, nil
}
