package storage

import (
	"cftracker/internal/providers"
	"cftracker/internal/services/interfaces"
	"cftracker/internal/structures"
	"fmt"
)

// NewSyncLogArchiveProvider returns nil when no archive directory is configured.
func NewSyncLogArchiveProvider(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) (*SyncLogArchive, error) {
	if conf.Persistence.ArchiveDir == "" || conf.Storage.Driver != "memory" {
		return nil, nil
	}
	archive := NewSyncLogArchive(conf.Persistence.ArchiveDir, conf.Persistence.ArchiveRetention, compressor, logger)
	if err := archive.RestoreIndex(); err != nil {
		return nil, fmt.Errorf("restore sync log archive: %w", err)
	}
	return archive, nil
}

// NewRepository builds the repository selected by storage.driver.
func NewRepository(conf *structures.Config, logger providers.Logger, archive *SyncLogArchive) (interfaces.RepositoryInterface, error) {
	switch conf.Storage.Driver {
	case "postgres":
		db, err := OpenPostgres(conf)
		if err != nil {
			return nil, err
		}
		if conf.Storage.AutoMigrate {
			if err := AutoMigrate(db); err != nil {
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
		}
		logger.Infof(providers.TypeApp, "Storage: postgres")
		return NewGormRepository(db, logger), nil
	case "memory", "":
		logger.Infof(providers.TypeApp, "Storage: memory, %d sync logs kept per student", conf.Storage.MaxSyncLogs)
		if archive == nil {
			return NewMemoryRepository(conf.Storage.MaxSyncLogs, nil), nil
		}
		return NewMemoryRepository(conf.Storage.MaxSyncLogs, archive), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
}
