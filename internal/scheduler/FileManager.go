package scheduler

import (
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/services/interfaces"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
)

// Snapshotter is a repository whose whole content can be dumped and loaded.
type Snapshotter interface {
	Snapshot() *models.Storage
	Restore(st *models.Storage)
}

// FileManager writes repository snapshots as compressed JSON. Repositories
// that are durable on their own (postgres) are not snapshotted.
type FileManager struct {
	store      Snapshotter
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

func NewFileManager(compressor interfaces.CompressorInterface, repo interfaces.RepositoryInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *FileManager {
	fm := &FileManager{
		compressor: compressor,
		logger:     logger,
		metrics:    metrics,
	}
	if store, ok := repo.(Snapshotter); ok {
		fm.store = store
	}
	return fm
}

func (f *FileManager) Enabled() bool {
	return f.store != nil
}

func (f *FileManager) SaveToFile(fileName string) error {
	if f.store == nil {
		return nil
	}
	start := time.Now()
	defer func() { f.metrics.ObservePersistenceDuration(time.Since(start)) }()

	jsonData, err := json.Marshal(f.store.Snapshot())
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fileName), 0755); err != nil {
		return err
	}
	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

// LoadFromFile restores the snapshot. A missing file means a fresh start.
func (f *FileManager) LoadFromFile(fileName string) error {
	if f.store == nil {
		return nil
	}
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			f.logger.Infof(providers.TypeApp, "No snapshot at %s, starting empty", fileName)
			return nil
		}
		return err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	var storage models.Storage
	if err := json.Unmarshal(decompressedData, &storage); err != nil {
		return err
	}
	if storage.Version > models.SnapshotVersion {
		return fmt.Errorf("snapshot version %d is newer than supported %d", storage.Version, models.SnapshotVersion)
	}
	f.store.Restore(&storage)
	f.logger.Infof(providers.TypeApp, "Restored %d students from %s", len(storage.Students), fileName)
	return nil
}
