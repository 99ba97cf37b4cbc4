// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds portal-specific configuration for this WAFFLE app.
//
// Values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS, body limits); this
// struct carries everything the portal itself needs.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: strataportal-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 24h)

	// Sign-in lockout; LoginMaxFailures 0 disables it
	LoginMaxFailures int
	LoginWindow      time.Duration
	LoginLockout     time.Duration

	CSRFKey     string // CSRF token signing key
	UICookieKey string // HMAC key for the UI flags cookie (sidebar fold)

	// Branding
	SiteName   string
	SiteFooter string // HTML, sanitized before display
	StaticDir  string // served at /static when set

	// Tables
	PageSizes       []int  // page-size menu offered by every list screen
	DefaultPageSize int    // must be one of PageSizes
	SortLocale      string // BCP 47 tag for text collation
	TableMemoSize   int    // derived-result memo entries per table (0 disables)

	// Audit logging: 'all' (db+log), 'db', 'log', or 'off'
	AuditLogAuth   string
	AuditLogAdmin  string
	AuditRetention time.Duration // 0 keeps audit events forever

	// Seeding
	SeedAdminLogin    string
	SeedAdminName     string
	SeedAdminPassword string // blank seeds a trust-login admin
	SeedDemo          bool

	// Store call timeouts
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
