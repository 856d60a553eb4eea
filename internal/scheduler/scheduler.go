package scheduler

import (
	"cftracker/internal/providers"
	"cftracker/internal/services"
	"cftracker/internal/services/interfaces"
	"cftracker/internal/storage"
	"cftracker/internal/structures"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/roylee0704/gron"
)

type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	batch       services.BatchServiceInterface
	fileManager *FileManager
	archive     *storage.SyncLogArchive
	cron        *gron.Cron
	opsMu       sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// syncSchedule pins the batch to sync.at when the interval is a whole
// number of days; gron only supports At on such periods.
func (s *Scheduler) syncSchedule() gron.Schedule {
	interval := s.config.Sync.Interval
	every := gron.Every(interval)
	if s.config.Sync.At == "" {
		return every
	}
	if interval < 24*time.Hour || interval%(24*time.Hour) != 0 {
		s.logger.Warnf(providers.TypeSync, "sync.at %q ignored, interval %s is not a whole number of days", s.config.Sync.At, interval)
		return every
	}
	return every.At(s.config.Sync.At)
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	if s.fileManager.Enabled() || s.archive != nil {
		s.cron.AddFunc(gron.Every(s.config.Persistence.SaveInterval), func() {
			if err := s.Persist(); err == nil {
				s.logger.Debugf(providers.TypeApp, "Persisted data to %s", s.config.Persistence.FilePath)
			}
		})
	}

	if s.config.Sync.Enabled {
		s.cron.AddFunc(s.syncSchedule(), s.RunBatch)
		s.logger.Infof(providers.TypeSync, "Scheduled batch sync every %s", s.config.Sync.Interval)
	} else {
		s.logger.Infof(providers.TypeSync, "Scheduled batch sync disabled")
	}

	s.cron.Start()
}

// RunBatch runs one scheduled batch over all students. An overlapping
// batch is skipped.
func (s *Scheduler) RunBatch() {
	s.logger.Infof(providers.TypeSync, "Scheduled batch sync starting")
	res, err := s.batch.SyncAll(s.ctx)
	switch {
	case errors.Is(err, services.ErrBatchRunning):
		s.logger.Warnf(providers.TypeSync, "Scheduled batch skipped, previous batch still running")
	case err != nil:
		s.logger.Errorf(providers.TypeSync, "Scheduled batch failed: %s", err)
	default:
		s.logger.Infof(providers.TypeSync, "Scheduled batch done: %d ok, %d failed, %d reminders",
			res.SuccessCount, res.ErrorCount, res.NotificationsSent)
	}
}

// Stop halts the cron and cancels a running batch between students.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	return s.fileManager.LoadFromFile(s.config.Persistence.FilePath)
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	var errs []error
	if err := s.fileManager.SaveToFile(s.config.Persistence.FilePath); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		errs = append(errs, err)
	}
	if s.archive != nil {
		if err := s.archive.Flush(); err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while flushing sync log archive: %s", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func NewScheduler(config *structures.Config, logger providers.Logger, batch services.BatchServiceInterface, fileManager *FileManager, archive *storage.SyncLogArchive) interfaces.SchedulerInterface {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		config:      config,
		logger:      logger,
		batch:       batch,
		fileManager: fileManager,
		archive:     archive,
		ctx:         ctx,
		cancel:      cancel,
	}
}
