// internal/app/system/auditlog/logger.go
package auditlog

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"net/http"

	"github.com/dalemusser/strataportal/internal/app/store/audit"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/network"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination settings for Config fields.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout).
	Auth string
	// Admin controls logging for record changes and workflow transitions.
	Admin string
}

// Logger records audit events to MongoDB (via audit.Store) and zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.Entity != "" {
		fields = append(fields, zap.String("entity", event.Entity), zap.String("entity_id", event.EntityID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil Logger is a no-op so handlers under test may omit it.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = ModeAll
	}
	if setting == "" {
		setting = ModeAll
	}

	if setting == ModeOff {
		return
	}
	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}
	if (setting == ModeAll || setting == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, authMethod, loginID string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryAuth,
		EventType:  audit.EventLoginSuccess,
		UserID:     &userID,
		ActorLogin: loginID,
		IP:         network.ClientIP(r),
		UserAgent:  r.UserAgent(),
		Success:    true,
		Details:    map[string]string{"auth_method": authMethod},
	})
}

// LoginFailed logs a failed login. eventType is one of the
// audit.EventLoginFailed* constants; userID may be nil for unknown accounts.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, userID *primitive.ObjectID, loginID, eventType, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		ActorLogin:    loginID,
		IP:            network.ClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: reason,
	})
}

// Logout logs a user logout.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		IP:        network.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Admin Events ---

// adminEvent fills in the actor from the signed-in user.
func adminEvent(r *http.Request, eventType, entity, entityID string, details map[string]string) audit.Event {
	e := audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		Entity:    entity,
		EntityID:  entityID,
		IP:        network.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   details,
	}
	if u, ok := auth.CurrentUser(r); ok {
		id := u.UserID()
		e.ActorID = &id
		e.ActorLogin = u.LoginID
	}
	return e
}

// RecordCreated logs creation of an entity record.
func (l *Logger) RecordCreated(ctx context.Context, r *http.Request, entity, entityID, label string) {
	l.Log(ctx, adminEvent(r, audit.EventRecordCreated, entity, entityID, map[string]string{"label": label}))
}

// RecordUpdated logs an edit of an entity record.
func (l *Logger) RecordUpdated(ctx context.Context, r *http.Request, entity, entityID, label string) {
	l.Log(ctx, adminEvent(r, audit.EventRecordUpdated, entity, entityID, map[string]string{"label": label}))
}

// RecordDeleted logs deletion of an entity record.
func (l *Logger) RecordDeleted(ctx context.Context, r *http.Request, entity, entityID, label string) {
	l.Log(ctx, adminEvent(r, audit.EventRecordDeleted, entity, entityID, map[string]string{"label": label}))
}

// StatusChanged logs a workflow transition.
func (l *Logger) StatusChanged(ctx context.Context, r *http.Request, entity, entityID, from, to string) {
	l.Log(ctx, adminEvent(r, audit.EventStatusChanged, entity, entityID, map[string]string{"from": from, "to": to}))
}
