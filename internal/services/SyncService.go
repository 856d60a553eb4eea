package services

import (
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/services/interfaces"
	"cftracker/internal/structures"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SyncServiceInterface interface {
	SyncStudent(ctx context.Context, student *models.Student, trigger models.SyncTrigger) (*models.SyncLog, error)
	SyncOne(ctx context.Context, studentID string) (*models.SyncLog, error)
	RecountContests(ctx context.Context, studentID string) (*RecountResult, error)
}

// RecountResult summarizes a recount of solved problems per contest.
type RecountResult struct {
	Updated          int      `json:"updatedCount"`
	Failed           int      `json:"errorCount"`
	Errors           []string `json:"errors,omitempty"`
	TotalSubmissions int      `json:"totalSubmissions"`
}

// SyncService pulls a student's remote activity and merges it into storage.
// Every step is an idempotent upsert, so a failed run leaves partial data
// that the next run completes.
type SyncService struct {
	repo       interfaces.RepositoryInterface
	client     interfaces.CodeforcesClientInterface
	cache      providers.CacheProviderInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
	activeDays int
	now        func() time.Time
}

func NewSyncService(conf *structures.Config, repo interfaces.RepositoryInterface, client interfaces.CodeforcesClientInterface, cache providers.CacheProviderInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *SyncService {
	activeDays := conf.Sync.ActiveDays
	if activeDays <= 0 {
		activeDays = 7
	}
	return &SyncService{
		repo:       repo,
		client:     client,
		cache:      cache,
		logger:     logger,
		metrics:    metrics,
		activeDays: activeDays,
		now:        time.Now,
	}
}

type syncStats struct {
	contests       int
	submissions    int
	newSubmissions int
}

// SyncStudent runs one sync attempt and appends its log. The returned error
// is only set when the log itself could not be stored; sync failures are
// reported through the log status.
func (s *SyncService) SyncStudent(ctx context.Context, student *models.Student, trigger models.SyncTrigger) (*models.SyncLog, error) {
	start := s.now()
	var stats syncStats
	err := s.run(ctx, student, &stats)
	duration := s.now().Sub(start)

	log := &models.SyncLog{
		ID:                 uuid.NewString(),
		StudentID:          student.ID,
		Trigger:            trigger,
		Timestamp:          start,
		ContestsFetched:    stats.contests,
		SubmissionsFetched: stats.submissions,
		NewSubmissions:     stats.newSubmissions,
		Duration:           duration,
	}
	if err != nil {
		log.Status = models.SyncFailure
		log.Message = err.Error()
		s.logger.Warnf(providers.TypeSync, "Sync of %s (%s) failed: %s", student.Handle, student.ID, err)
	} else {
		log.Status = models.SyncSuccess
		log.Message = fmt.Sprintf("Synced %d contests and %d submissions (%d new)", stats.contests, stats.submissions, stats.newSubmissions)
		s.logger.Infof(providers.TypeSync, "Sync of %s: %s", student.Handle, log.Message)
	}

	s.metrics.IncSyncAttempts(string(trigger), string(log.Status))
	s.metrics.ObserveSyncDuration(duration)

	// cached reads must include this attempt, so purge after the append
	err = s.repo.AppendSyncLog(context.WithoutCancel(ctx), log)
	s.cache.Purge()
	if err != nil {
		s.logger.Errorf(providers.TypeSync, "Unable to store sync log for %s: %s", student.ID, err)
		return log, fmt.Errorf("append sync log: %w", err)
	}
	return log, nil
}

func (s *SyncService) SyncOne(ctx context.Context, studentID string) (*models.SyncLog, error) {
	student, err := s.repo.FindStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return s.SyncStudent(ctx, student, models.TriggerManual)
}

func (s *SyncService) run(ctx context.Context, student *models.Student, stats *syncStats) error {
	profile, err := s.client.UserInfo(ctx, student.Handle)
	if err != nil {
		return fmt.Errorf("fetch profile: %w", err)
	}
	current, maxRating := profile.Rating, max(profile.MaxRating, student.MaxRating)
	if err := s.repo.UpdateStudent(ctx, student.ID, models.StudentUpdate{CurrentRating: &current, MaxRating: &maxRating}); err != nil {
		return fmt.Errorf("update rating: %w", err)
	}

	events, err := s.client.UserStatus(ctx, student.Handle, 0)
	if err != nil {
		return fmt.Errorf("fetch submissions: %w", err)
	}
	stats.submissions = len(events)

	solved := solvedByContest(events)
	latest := student.LastSubmissionAt
	for _, ev := range events {
		created, err := s.repo.UpsertSubmission(ctx, ev.ToSubmission(student.ID))
		if err != nil {
			return fmt.Errorf("store submission %d: %w", ev.ID, err)
		}
		if created {
			stats.newSubmissions++
		}
		if latest == nil || ev.CreatedAt.After(*latest) {
			t := ev.CreatedAt
			latest = &t
		}
	}

	history, err := s.client.UserRating(ctx, student.Handle)
	if err != nil {
		return fmt.Errorf("fetch rating history: %w", err)
	}
	stats.contests = len(history)
	for _, rc := range history {
		contest := &models.Contest{
			StudentID:      student.ID,
			ContestID:      rc.ContestID,
			ContestName:    rc.ContestName,
			ParticipatedAt: rc.UpdatedAt,
			Rank:           rc.Rank,
			RatingChange:   rc.Delta(),
			NewRating:      rc.NewRating,
			ProblemsSolved: len(solved[rc.ContestID]),
			TotalProblems:  EstimateProblemCount(rc.ContestName),
		}
		if err := s.repo.UpsertContest(ctx, contest); err != nil {
			return fmt.Errorf("store contest %d: %w", rc.ContestID, err)
		}
	}

	now := s.now()
	active := IsActive(latest, now, s.activeDays)
	update := models.StudentUpdate{IsActive: &active, LastSyncedAt: &now}
	if latest != nil {
		update.LastSubmissionAt = latest
	}
	if err := s.repo.UpdateStudent(ctx, student.ID, update); err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return nil
}

// solvedByContest collects the distinct accepted problem indices per contest.
func solvedByContest(events []models.SubmissionEvent) map[int]map[string]struct{} {
	solved := make(map[int]map[string]struct{})
	for _, ev := range events {
		if ev.Verdict != models.VerdictAccepted || ev.ContestID == 0 {
			continue
		}
		if solved[ev.ContestID] == nil {
			solved[ev.ContestID] = make(map[string]struct{})
		}
		solved[ev.ContestID][ev.ProblemIndex] = struct{}{}
	}
	return solved
}

// RecountContests recomputes ProblemsSolved and TotalProblems of every
// stored contest of a student from a fresh submission fetch. Contests that
// fail to store are reported without stopping the recount.
func (s *SyncService) RecountContests(ctx context.Context, studentID string) (*RecountResult, error) {
	student, err := s.repo.FindStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	contests, err := s.repo.ListContests(ctx, studentID, time.Time{})
	if err != nil {
		return nil, err
	}
	res := &RecountResult{}
	if len(contests) == 0 {
		return res, nil
	}

	events, err := s.client.UserStatus(ctx, student.Handle, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch submissions: %w", err)
	}
	res.TotalSubmissions = len(events)
	solved := solvedByContest(events)

	for _, c := range contests {
		c.ProblemsSolved = len(solved[c.ContestID])
		c.TotalProblems = EstimateProblemCount(c.ContestName)
		if err := s.repo.UpsertContest(ctx, c); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("contest %s: %s", c.ContestName, err))
			continue
		}
		res.Updated++
	}
	s.cache.Purge()
	s.logger.Infof(providers.TypeSync, "Recount for %s: %d contests updated, %d errors", student.Handle, res.Updated, res.Failed)
	return res, nil
}
