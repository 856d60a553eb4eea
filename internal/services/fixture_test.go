package services

import (
	"cftracker/internal/models"
	"cftracker/internal/storage"
	"cftracker/internal/structures"
	"cftracker/internal/testutil"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testConfig() *structures.Config {
	return &structures.Config{
		Sync: structures.SyncConfig{
			Enabled:      true,
			Interval:     24 * time.Hour,
			StudentDelay: 2 * time.Second,
			ActiveDays:   7,
		},
		Reminder: structures.ReminderConfig{
			Enabled:      true,
			InactiveDays: 7,
		},
	}
}

type fixture struct {
	conf     *structures.Config
	repo     *storage.MemoryRepository
	mockRepo *testutil.MockRepository
	client   *testutil.MockCodeforcesClient
	notifier *testutil.MockNotifier
	cache    *testutil.MockCache
	logger   *testutil.MockLogger
	metrics  *testutil.MockMetrics
	sync     *SyncService
	gate     *NotificationGate
	batch    *BatchService

	mu     sync.Mutex
	sleeps []time.Duration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		conf:     testConfig(),
		repo:     storage.NewMemoryRepository(0, nil),
		client:   testutil.NewMockCodeforcesClient(),
		notifier: &testutil.MockNotifier{Result: true},
		cache:    testutil.NewMockCache(),
		logger:   &testutil.MockLogger{},
		metrics:  &testutil.MockMetrics{},
	}
	f.mockRepo = &testutil.MockRepository{RepositoryInterface: f.repo}
	clock := func() time.Time { return testNow }

	f.sync = NewSyncService(f.conf, f.mockRepo, f.client, f.cache, f.logger, f.metrics)
	f.sync.now = clock
	f.gate = NewNotificationGate(f.conf, f.mockRepo, f.notifier, f.logger, f.metrics)
	f.gate.now = clock
	f.batch = NewBatchService(f.conf, f.mockRepo, f.sync, f.gate, f.logger, f.metrics)
	f.batch.now = clock
	f.batch.sleep = func(ctx context.Context, d time.Duration) error {
		f.mu.Lock()
		f.sleeps = append(f.sleeps, d)
		f.mu.Unlock()
		return ctx.Err()
	}
	return f
}

func (f *fixture) addStudent(t *testing.T, handle string, emailEnabled bool) *models.Student {
	t.Helper()
	s := &models.Student{Name: handle, Handle: handle, Email: handle + "@example.com", EmailEnabled: emailEnabled}
	require.NoError(t, f.repo.CreateStudent(ctx, s))
	f.client.Profiles[handle] = &models.Profile{Handle: handle, Rating: 1500, MaxRating: 1600}
	return s
}

func (f *fixture) student(t *testing.T, id string) *models.Student {
	t.Helper()
	s, err := f.repo.FindStudent(ctx, id)
	require.NoError(t, err)
	return s
}

func daysAgo(d float64) time.Time {
	return testNow.Add(-time.Duration(d * float64(24*time.Hour)))
}

func event(id int64, contestID int, index string, verdict models.Verdict, at time.Time) models.SubmissionEvent {
	return models.SubmissionEvent{
		ID:           id,
		ContestID:    contestID,
		ProblemIndex: index,
		ProblemName:  "Problem " + index,
		Verdict:      verdict,
		CreatedAt:    at,
	}
}

func ratingChange(contestID int, name string, oldRating, newRating int, at time.Time) models.RatingChange {
	return models.RatingChange{
		ContestID:   contestID,
		ContestName: name,
		Rank:        100 + contestID,
		OldRating:   oldRating,
		NewRating:   newRating,
		UpdatedAt:   at,
	}
}
