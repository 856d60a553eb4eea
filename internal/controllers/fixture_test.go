package controllers

import (
	"cftracker/internal/models"
	"cftracker/internal/services"
	"cftracker/internal/storage"
	"cftracker/internal/structures"
	"cftracker/internal/testutil"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

type fixture struct {
	conf     *structures.Config
	repo     *storage.MemoryRepository
	mockRepo *testutil.MockRepository
	client   *testutil.MockCodeforcesClient
	notifier *testutil.MockNotifier
	cache    *testutil.MockCache
	logger   *testutil.MockLogger
	students *services.StudentService
	batch    *services.BatchService
	api      *ApiController
	syncCtl  *SyncController
	health   *HealthController
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conf := &structures.Config{
		Sync:     structures.SyncConfig{ActiveDays: 7},
		Reminder: structures.ReminderConfig{Enabled: true, InactiveDays: 7},
		Security: structures.SecurityConfig{CronSecret: "s3cret"},
	}
	f := &fixture{
		conf:     conf,
		repo:     storage.NewMemoryRepository(0, nil),
		client:   testutil.NewMockCodeforcesClient(),
		notifier: &testutil.MockNotifier{Result: true},
		cache:    testutil.NewMockCache(),
		logger:   &testutil.MockLogger{},
	}
	f.mockRepo = &testutil.MockRepository{RepositoryInterface: f.repo}
	metrics := &testutil.MockMetrics{}

	syncService := services.NewSyncService(conf, f.mockRepo, f.client, f.cache, f.logger, metrics)
	gate := services.NewNotificationGate(conf, f.mockRepo, f.notifier, f.logger, metrics)
	f.batch = services.NewBatchService(conf, f.mockRepo, syncService, gate, f.logger, metrics)
	f.students = services.NewStudentService(f.mockRepo, f.client, f.notifier, syncService, f.logger)

	f.api = NewApiController(f.logger, f.mockRepo, f.students, f.cache)
	f.syncCtl = NewSyncController(conf, f.logger, syncService, f.batch, f.client)
	f.health = NewHealthController(f.mockRepo, f.batch, f.logger)
	return f
}

func (f *fixture) addStudent(t *testing.T, handle string) *models.Student {
	t.Helper()
	s := &models.Student{Name: handle, Handle: handle, Email: handle + "@example.com"}
	require.NoError(t, f.repo.CreateStudent(ctx, s))
	f.client.Profiles[handle] = &models.Profile{Handle: handle, Rating: 1500, MaxRating: 1600}
	return s
}

func do(handler http.HandlerFunc, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func hoursAgo(h int) time.Time {
	return time.Now().Add(-time.Duration(h) * time.Hour)
}
