//go:build wireinject
// +build wireinject

package di

import (
	"cftracker/internal"
	"cftracker/internal/codeforces"
	"cftracker/internal/controllers"
	"cftracker/internal/mail"
	"cftracker/internal/providers"
	"cftracker/internal/scheduler"
	"cftracker/internal/services"
	"cftracker/internal/services/interfaces"
	"cftracker/internal/storage"
	"cftracker/internal/structures"

	wire "github.com/google/wire"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		codeforces.NewClient,
		wire.Bind(new(interfaces.CodeforcesClientInterface), new(*codeforces.Client)),
		scheduler.NewZstdCompressor,
		storage.NewSyncLogArchiveProvider,
		storage.NewRepository,
		mail.NewNotifier,

		services.NewSyncService,
		wire.Bind(new(services.SyncServiceInterface), new(*services.SyncService)),
		services.NewNotificationGate,
		wire.Bind(new(services.NotificationGateInterface), new(*services.NotificationGate)),
		services.NewBatchService,
		wire.Bind(new(services.BatchServiceInterface), new(*services.BatchService)),
		services.NewStudentService,
		wire.Bind(new(services.StudentServiceInterface), new(*services.StudentService)),

		scheduler.NewFileManager,
		scheduler.NewScheduler,
		controllers.NewApiController,
		controllers.NewSyncController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewHandler,
		internal.NewApp,
	)

	return nil, nil
}
