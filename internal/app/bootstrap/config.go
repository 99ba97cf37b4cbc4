// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/strataportal/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATAPORTAL"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STRATAPORTAL_MONGO_URI, STRATAPORTAL_PAGE_SIZES, etc.
//   - Command-line flags: --mongo_uri, --page_sizes, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "strataportal", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "strataportal-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	{Name: "login_max_failures", Default: 5, Desc: "Failed sign-ins that lock a login ID (0 disables)"},
	{Name: "login_window", Default: "15m", Desc: "Failed sign-ins older than this are forgotten"},
	{Name: "login_lockout", Default: "15m", Desc: "How long a locked login ID stays locked"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},
	{Name: "ui_cookie_key", Default: "dev-only-ui-cookie-key-change-me-0123456789", Desc: "UI flags cookie signing key (32+ chars)"},

	// Branding
	{Name: "site_name", Default: "", Desc: "Site name shown in the header (blank keeps the built-in name)"},
	{Name: "site_footer", Default: "", Desc: "Footer HTML (sanitized)"},
	{Name: "static_dir", Default: "", Desc: "Directory served at /static, e.g. logos used by the footer (blank disables)"},

	// Tables
	{Name: "page_sizes", Default: "5,10,20,50", Desc: "Comma-separated page sizes offered by list screens"},
	{Name: "default_page_size", Default: 10, Desc: "Initial page size; must be one of page_sizes"},
	{Name: "sort_locale", Default: "en", Desc: "Locale used to collate text columns when sorting"},
	{Name: "table_memo_size", Default: 8, Desc: "Filtered/sorted results memoized per table (0 disables)"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_retention", Default: "2160h", Desc: "Delete audit events older than this (0 keeps them)"},

	// Seeding
	{Name: "seed_admin_login", Default: "admin", Desc: "Login ID of the admin user created on startup (blank skips)"},
	{Name: "seed_admin_name", Default: "Administrator", Desc: "Name of the seeded admin user"},
	{Name: "seed_admin_password", Default: "", Desc: "Password for the seeded admin (blank uses trust login)"},
	{Name: "seed_demo", Default: false, Desc: "Load demo institutions, manuals and schedules into an empty database"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-record store calls"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for list loads"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for seeding and bulk work"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges, with precedence
// flags > env > files > defaults, the WAFFLE_* core keys and the
// STRATAPORTAL_* keys declared above.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	sizes, err := parsePageSizes(appValues.String("page_sizes"))
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		LoginMaxFailures: appValues.Int("login_max_failures"),
		LoginWindow:      appValues.Duration("login_window", 15*time.Minute),
		LoginLockout:     appValues.Duration("login_lockout", 15*time.Minute),

		CSRFKey:     appValues.String("csrf_key"),
		UICookieKey: appValues.String("ui_cookie_key"),

		SiteName:   appValues.String("site_name"),
		SiteFooter: appValues.String("site_footer"),
		StaticDir:  appValues.String("static_dir"),

		// Tables
		PageSizes:       sizes,
		DefaultPageSize: appValues.Int("default_page_size"),
		SortLocale:      appValues.String("sort_locale"),
		TableMemoSize:   appValues.Int("table_memo_size"),

		// Audit logging
		AuditLogAuth:   appValues.String("audit_log_auth"),
		AuditLogAdmin:  appValues.String("audit_log_admin"),
		AuditRetention: appValues.Duration("audit_retention", 90*24*time.Hour),

		// Seeding
		SeedAdminLogin:    appValues.String("seed_admin_login"),
		SeedAdminName:     appValues.String("seed_admin_name"),
		SeedAdminPassword: appValues.String("seed_admin_password"),
		SeedDemo:          appValues.Bool("seed_demo"),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),
	}

	return coreCfg, appCfg, nil
}

// parsePageSizes reads a list like "5,10,20,50". Sizes must be positive;
// duplicates are dropped and the result is ascending.
func parsePageSizes(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("page_sizes: %q is not a positive integer", part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("page_sizes: no sizes given")
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// ValidateConfig performs app-specific config validation.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateAppConfig(appCfg)
}

func validateAppConfig(appCfg AppConfig) error {
	if !slices.Contains(appCfg.PageSizes, appCfg.DefaultPageSize) {
		return fmt.Errorf("default_page_size %d is not one of page_sizes %v", appCfg.DefaultPageSize, appCfg.PageSizes)
	}
	if _, err := language.Parse(appCfg.SortLocale); err != nil {
		return fmt.Errorf("sort_locale %q: %w", appCfg.SortLocale, err)
	}
	if appCfg.TableMemoSize < 0 {
		return fmt.Errorf("table_memo_size must not be negative")
	}
	if appCfg.LoginMaxFailures < 0 {
		return fmt.Errorf("login_max_failures must not be negative")
	}
	if appCfg.AuditRetention < 0 {
		return fmt.Errorf("audit_retention must not be negative")
	}
	for name, mode := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_admin": appCfg.AuditLogAdmin} {
		switch mode {
		case auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
		default:
			return fmt.Errorf("%s: unknown mode %q", name, mode)
		}
	}
	if len(appCfg.UICookieKey) < 32 {
		return fmt.Errorf("ui_cookie_key must be at least 32 characters")
	}
	return nil
}
