package testutil

import (
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/services/interfaces"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (e LogEntry) Message() string {
	return fmt.Sprintf(e.Format, e.Args...)
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries of the given level and type were logged.
func (m *MockLogger) Count(level string, t providers.TypeEnum) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == level && e.Type == t {
			n++
		}
	}
	return n
}

// Contains reports whether any formatted message of the level contains substr.
func (m *MockLogger) Contains(level, substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Logs {
		if e.Level == level && strings.Contains(e.Message(), substr) {
			return true
		}
	}
	return false
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu               sync.Mutex
	UpstreamRequests map[string]int // "method:outcome"
	UpstreamRetries  map[string]int // "method:reason"
	SyncAttempts     map[string]int // "trigger:status"
	RemindersSent    int
	StudentsTotal    int
	CacheHits        int
	CacheMisses      int
	Requests         int
}

func (m *MockMetrics) inc(target *map[string]int, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if *target == nil {
		*target = make(map[string]int)
	}
	(*target)[key]++
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	m.Requests++
	m.mu.Unlock()
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	m.CacheHits++
	m.mu.Unlock()
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	m.CacheMisses++
	m.mu.Unlock()
}
func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {}
func (m *MockMetrics) IncUpstreamRequests(method, outcome string) {
	m.inc(&m.UpstreamRequests, method+":"+outcome)
}
func (m *MockMetrics) IncUpstreamRetries(method, reason string) {
	m.inc(&m.UpstreamRetries, method+":"+reason)
}
func (m *MockMetrics) IncSyncAttempts(trigger, status string) {
	m.inc(&m.SyncAttempts, trigger+":"+status)
}
func (m *MockMetrics) ObserveSyncDuration(_ time.Duration)  {}
func (m *MockMetrics) ObserveBatchDuration(_ time.Duration) {}
func (m *MockMetrics) IncRemindersSent() {
	m.mu.Lock()
	m.RemindersSent++
	m.mu.Unlock()
}
func (m *MockMetrics) SetStudentsTotal(count int) {
	m.mu.Lock()
	m.StudentsTotal = count
	m.mu.Unlock()
}

// Get reads a counter map entry under the lock.
func (m *MockMetrics) Get(counter map[string]int, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return counter[key]
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	Purges int
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *MockCache) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	m.Purges++
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// MockNotifier implements interfaces.NotifierInterface.
type MockNotifier struct {
	mu        sync.Mutex
	Reminders []string // student ids
	Welcomes  []string
	Result    bool
	ResultFn  func(student *models.Student) bool
}

func (m *MockNotifier) result(s *models.Student) bool {
	if m.ResultFn != nil {
		return m.ResultFn(s)
	}
	return m.Result
}

func (m *MockNotifier) SendReminder(_ context.Context, s *models.Student) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reminders = append(m.Reminders, s.ID)
	return m.result(s)
}

func (m *MockNotifier) SendWelcome(_ context.Context, s *models.Student) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Welcomes = append(m.Welcomes, s.ID)
	return m.result(s)
}

func (m *MockNotifier) ReminderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Reminders)
}

// MockCodeforcesClient implements interfaces.CodeforcesClientInterface.
// Data is keyed by handle; Err* maps inject failures per handle.
type MockCodeforcesClient struct {
	mu          sync.Mutex
	Profiles    map[string]*models.Profile
	Ratings     map[string][]models.RatingChange
	Submissions map[string][]models.SubmissionEvent
	InfoErr     map[string]error
	RatingErr   map[string]error
	StatusErr   map[string]error
	Available   bool
	Calls       []string // "method:handle"
}

func NewMockCodeforcesClient() *MockCodeforcesClient {
	return &MockCodeforcesClient{
		Profiles:    make(map[string]*models.Profile),
		Ratings:     make(map[string][]models.RatingChange),
		Submissions: make(map[string][]models.SubmissionEvent),
		InfoErr:     make(map[string]error),
		RatingErr:   make(map[string]error),
		StatusErr:   make(map[string]error),
		Available:   true,
	}
}

func (m *MockCodeforcesClient) call(name, handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, name+":"+handle)
}

func (m *MockCodeforcesClient) UserInfo(_ context.Context, handle string) (*models.Profile, error) {
	m.call("user.info", handle)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.InfoErr[handle]; err != nil {
		return nil, err
	}
	p, ok := m.Profiles[handle]
	if !ok {
		return nil, fmt.Errorf("handle %s: %w", handle, models.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *MockCodeforcesClient) UserRating(_ context.Context, handle string) ([]models.RatingChange, error) {
	m.call("user.rating", handle)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.RatingErr[handle]; err != nil {
		return nil, err
	}
	return append([]models.RatingChange(nil), m.Ratings[handle]...), nil
}

func (m *MockCodeforcesClient) UserStatus(_ context.Context, handle string, _ int) ([]models.SubmissionEvent, error) {
	m.call("user.status", handle)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.StatusErr[handle]; err != nil {
		return nil, err
	}
	return append([]models.SubmissionEvent(nil), m.Submissions[handle]...), nil
}

func (m *MockCodeforcesClient) IsAvailable(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Available
}

func (m *MockCodeforcesClient) CallCount(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// MockRepository wraps a real repository and lets tests override single
// operations to inject storage failures.
type MockRepository struct {
	interfaces.RepositoryInterface

	UpsertContestFn    func(ctx context.Context, c *models.Contest) error
	UpsertSubmissionFn func(ctx context.Context, s *models.Submission) (bool, error)
	AppendSyncLogFn    func(ctx context.Context, l *models.SyncLog) error
	UpdateStudentFn    func(ctx context.Context, id string, u models.StudentUpdate) error
	ListStudentsFn     func(ctx context.Context) ([]*models.Student, error)
}

func (m *MockRepository) UpsertContest(ctx context.Context, c *models.Contest) error {
	if m.UpsertContestFn != nil {
		return m.UpsertContestFn(ctx, c)
	}
	return m.RepositoryInterface.UpsertContest(ctx, c)
}

func (m *MockRepository) UpsertSubmission(ctx context.Context, s *models.Submission) (bool, error) {
	if m.UpsertSubmissionFn != nil {
		return m.UpsertSubmissionFn(ctx, s)
	}
	return m.RepositoryInterface.UpsertSubmission(ctx, s)
}

func (m *MockRepository) AppendSyncLog(ctx context.Context, l *models.SyncLog) error {
	if m.AppendSyncLogFn != nil {
		return m.AppendSyncLogFn(ctx, l)
	}
	return m.RepositoryInterface.AppendSyncLog(ctx, l)
}

func (m *MockRepository) UpdateStudent(ctx context.Context, id string, u models.StudentUpdate) error {
	if m.UpdateStudentFn != nil {
		return m.UpdateStudentFn(ctx, id, u)
	}
	return m.RepositoryInterface.UpdateStudent(ctx, id, u)
}

func (m *MockRepository) ListStudents(ctx context.Context) ([]*models.Student, error) {
	if m.ListStudentsFn != nil {
		return m.ListStudentsFn(ctx)
	}
	return m.RepositoryInterface.ListStudents(ctx)
}
