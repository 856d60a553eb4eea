package internal

import (
	"cftracker/internal/controllers"
	"cftracker/internal/models"
	"cftracker/internal/services"
	"cftracker/internal/storage"
	"cftracker/internal/structures"
	"cftracker/internal/testutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeFixture struct {
	repo    *storage.MemoryRepository
	client  *testutil.MockCodeforcesClient
	metrics *testutil.MockMetrics
	handler http.Handler
	router  interface{ GetRoutes() []structures.Route }
}

func newRouteFixture(t *testing.T) *routeFixture {
	t.Helper()
	conf := &structures.Config{
		Sync:     structures.SyncConfig{ActiveDays: 7},
		Reminder: structures.ReminderConfig{InactiveDays: 7},
		Security: structures.SecurityConfig{CronSecret: "s3cret"},
	}
	logger := &testutil.MockLogger{}
	f := &routeFixture{
		repo:    storage.NewMemoryRepository(0, nil),
		client:  testutil.NewMockCodeforcesClient(),
		metrics: &testutil.MockMetrics{},
	}
	cache := testutil.NewMockCache()
	notifier := &testutil.MockNotifier{Result: true}

	syncService := services.NewSyncService(conf, f.repo, f.client, cache, logger, f.metrics)
	gate := services.NewNotificationGate(conf, f.repo, notifier, logger, f.metrics)
	batch := services.NewBatchService(conf, f.repo, syncService, gate, logger, f.metrics)
	students := services.NewStudentService(f.repo, f.client, notifier, syncService, logger)

	ac := controllers.NewApiController(logger, f.repo, students, cache)
	sc := controllers.NewSyncController(conf, logger, syncService, batch, f.client)
	hc := controllers.NewHealthController(f.repo, batch, logger)

	router := InitRoutes(ac, sc)
	f.router = router
	f.handler = NewHandler(hc, conf, logger, router, f.metrics)
	return f
}

func (f *routeFixture) serve(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func TestInitRoutes_RegistersRoutes(t *testing.T) {
	f := newRouteFixture(t)

	routes := f.router.GetRoutes()
	urls := make([]string, len(routes))
	for i, r := range routes {
		urls[i] = r.Url
	}

	assert.ElementsMatch(t, []string{
		"/students", "/student", "/students/contests", "/students/submissions", "/students/sync-logs",
		"/students/recalculate-contests", "/sync", "/sync/all", "/codeforces/test-handle", "/codeforces/status",
	}, urls)
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	f := newRouteFixture(t)

	assert.Equal(t, http.StatusMethodNotAllowed, f.serve(http.MethodGet, "/sync", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.serve(http.MethodDelete, "/students", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.serve(http.MethodPost, "/codeforces/status", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, f.serve(http.MethodPost, "/student?id=x", "").Code)
	assert.Equal(t, http.StatusNotFound, f.serve(http.MethodDelete, "/student?id=missing", "").Code)
	assert.Equal(t, http.StatusNotFound, f.serve(http.MethodGet, "/nowhere", "").Code)
}

func TestHandler_SharedPathDispatchesByMethod(t *testing.T) {
	f := newRouteFixture(t)
	f.client.Profiles["tourist"] = &models.Profile{Handle: "tourist", Rating: 3800}

	rr := f.serve(http.MethodPost, "/students", `{"name":"Gennady","email":"g@example.com","codeforcesHandle":"tourist"}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = f.serve(http.MethodGet, "/students", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"codeforcesHandle":"tourist"`)
}

func TestHandler_HealthIsNotInstrumented(t *testing.T) {
	f := newRouteFixture(t)

	assert.Equal(t, http.StatusOK, f.serve(http.MethodGet, "/health", "").Code)
	assert.Zero(t, f.metrics.Requests)

	f.serve(http.MethodGet, "/codeforces/status", "")
	assert.Equal(t, 1, f.metrics.Requests)
}

func TestHandler_MetricsEndpointDisabled(t *testing.T) {
	f := newRouteFixture(t)

	assert.Equal(t, http.StatusNotFound, f.serve(http.MethodGet, "/metrics", "").Code)
}
