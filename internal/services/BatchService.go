package services

import (
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/services/interfaces"
	"cftracker/internal/structures"
	"context"
	"errors"
	"time"

	"go.uber.org/atomic"
)

var ErrBatchRunning = errors.New("batch sync already running")

type BatchServiceInterface interface {
	RunAll(ctx context.Context, students []*models.Student, trigger models.SyncTrigger) (models.BatchResult, error)
	SyncAll(ctx context.Context) (models.BatchResult, error)
	IsRunning() bool
}

// BatchService syncs students one after another with a pause between them
// so the upstream budget is shared fairly. Only one batch runs at a time.
type BatchService struct {
	repo    interfaces.RepositoryInterface
	sync    SyncServiceInterface
	gate    NotificationGateInterface
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	delay   time.Duration
	running atomic.Bool
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewBatchService(conf *structures.Config, repo interfaces.RepositoryInterface, syncService SyncServiceInterface, gate NotificationGateInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *BatchService {
	return &BatchService{
		repo:    repo,
		sync:    syncService,
		gate:    gate,
		logger:  logger,
		metrics: metrics,
		delay:   conf.Sync.StudentDelay,
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (b *BatchService) IsRunning() bool {
	return b.running.Load()
}

// RunAll syncs the given students in order. One failure never stops the
// batch; a cancelled context stops it between students and the rest are
// counted as skipped.
func (b *BatchService) RunAll(ctx context.Context, students []*models.Student, trigger models.SyncTrigger) (models.BatchResult, error) {
	if !b.running.CompareAndSwap(false, true) {
		return models.BatchResult{}, ErrBatchRunning
	}
	defer b.running.Store(false)

	start := b.now()
	var res models.BatchResult
	b.logger.Infof(providers.TypeSync, "Batch sync started: %d students", len(students))

	for i, student := range students {
		if ctx.Err() != nil {
			res.Skipped = len(students) - i
			break
		}

		log, err := b.sync.SyncStudent(ctx, student, trigger)
		if err != nil || !log.Succeeded() {
			res.ErrorCount++
		} else {
			res.SuccessCount++
			if b.notify(ctx, student.ID) {
				res.NotificationsSent++
			}
		}

		if i < len(students)-1 {
			if err := b.sleep(ctx, b.delay); err != nil {
				res.Skipped = len(students) - i - 1
				break
			}
		}
	}

	res.Duration = b.now().Sub(start)
	b.metrics.ObserveBatchDuration(res.Duration)
	b.logger.Infof(providers.TypeSync, "Batch sync finished: %d ok, %d failed, %d skipped, %d reminders in %s",
		res.SuccessCount, res.ErrorCount, res.Skipped, res.NotificationsSent, res.Duration)
	return res, nil
}

// notify evaluates the gate against the stored post-sync state.
func (b *BatchService) notify(ctx context.Context, studentID string) bool {
	fresh, err := b.repo.FindStudent(ctx, studentID)
	if err != nil {
		b.logger.Errorf(providers.TypeSync, "Unable to reload %s for reminder check: %s", studentID, err)
		return false
	}
	return b.gate.Notify(ctx, fresh)
}

// SyncAll runs a scheduled batch over every student in creation order.
func (b *BatchService) SyncAll(ctx context.Context) (models.BatchResult, error) {
	if b.IsRunning() {
		return models.BatchResult{}, ErrBatchRunning
	}
	students, err := b.repo.ListStudents(ctx)
	if err != nil {
		return models.BatchResult{}, err
	}
	b.metrics.SetStudentsTotal(len(students))
	return b.RunAll(ctx, students, models.TriggerScheduled)
}
