// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/strataportal/internal/app/resources"
	"github.com/dalemusser/strataportal/internal/app/store/audit"
	draftstore "github.com/dalemusser/strataportal/internal/app/store/drafts"
	"github.com/dalemusser/strataportal/internal/app/system/navigation"
	"github.com/dalemusser/strataportal/internal/app/system/seeding"
	"github.com/dalemusser/strataportal/internal/app/system/tasks"
	"github.com/dalemusser/strataportal/internal/app/system/timeouts"
	"github.com/dalemusser/strataportal/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It registers the shared templates, installs site branding and timeouts,
// seeds the admin (and optionally demo data), and starts background tasks.
// Returning a non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	viewdata.Init(viewdata.Site{
		Name:       appCfg.SiteName,
		FooterHTML: appCfg.SiteFooter,
		Nav:        navigation.Default(),
	})

	seedCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	err := seeding.SeedAll(seedCtx, deps.MongoDatabase, seeding.Config{
		AdminLoginID:  appCfg.SeedAdminLogin,
		AdminName:     appCfg.SeedAdminName,
		AdminPassword: appCfg.SeedAdminPassword,
		Demo:          appCfg.SeedDemo,
	}, logger)
	if err != nil {
		logger.Error("failed to seed data", zap.Error(err))
		return err
	}

	startTaskRunner(deps.MongoDatabase, appCfg, logger)
	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner registers the cleanup jobs and starts them.
func startTaskRunner(db *mongo.Database, appCfg AppConfig, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	taskRunner.Register(tasks.DraftCleanupJob(draftstore.New(db), logger))
	if appCfg.AuditRetention > 0 {
		taskRunner.Register(tasks.AuditRetentionJob(audit.New(db), appCfg.AuditRetention, logger))
	}

	taskRunner.Start()
}
