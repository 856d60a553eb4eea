package storage

import (
	"cftracker/internal/models"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SyncLogArchiver receives sync logs evicted from the hot set.
type SyncLogArchiver interface {
	Evict(studentID string, logs []*models.SyncLog)
	Load(studentID string) ([]*models.SyncLog, error)
	Drop(studentID string)
}

// MemoryRepository keeps every record in process memory. Durability comes
// from periodic snapshots taken by the scheduler.
type MemoryRepository struct {
	mu          sync.RWMutex
	students    map[string]*models.Student
	order       []string
	handles     map[string]string // lower(handle) -> id
	contests    map[string]map[int]*models.Contest
	submissions map[string]map[int64]*models.Submission
	syncLogs    map[string][]*models.SyncLog // oldest first

	maxSyncLogs int
	archive     SyncLogArchiver
	now         func() time.Time
}

func NewMemoryRepository(maxSyncLogs int, archive SyncLogArchiver) *MemoryRepository {
	return &MemoryRepository{
		students:    make(map[string]*models.Student),
		handles:     make(map[string]string),
		contests:    make(map[string]map[int]*models.Contest),
		submissions: make(map[string]map[int64]*models.Submission),
		syncLogs:    make(map[string][]*models.SyncLog),
		maxSyncLogs: maxSyncLogs,
		archive:     archive,
		now:         time.Now,
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
}

func (r *MemoryRepository) FindStudent(_ context.Context, id string) (*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.students[id]
	if !ok {
		return nil, notFound("student", id)
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) FindStudentByHandle(_ context.Context, handle string) (*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.handles[strings.ToLower(handle)]
	if !ok {
		return nil, notFound("handle", handle)
	}
	return r.students[id].Clone(), nil
}

func (r *MemoryRepository) FindStudentByEmail(_ context.Context, email string) (*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if s := r.students[id]; strings.EqualFold(s.Email, email) {
			return s.Clone(), nil
		}
	}
	return nil, notFound("email", email)
}

// ListStudents returns students in creation order.
func (r *MemoryRepository) ListStudents(_ context.Context) ([]*models.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Student, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.students[id].Clone())
	}
	return out, nil
}

func (r *MemoryRepository) CountStudents(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.students), nil
}

func (r *MemoryRepository) CreateStudent(_ context.Context, student *models.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(student.Handle)
	if _, ok := r.handles[key]; ok {
		return models.NewStorageError("create student", fmt.Errorf("handle %s: %w", student.Handle, models.ErrAlreadyExists))
	}
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if _, ok := r.students[student.ID]; ok {
		return models.NewStorageError("create student", fmt.Errorf("id %s: %w", student.ID, models.ErrAlreadyExists))
	}
	now := r.now()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now

	r.students[student.ID] = student.Clone()
	r.handles[key] = student.ID
	r.order = append(r.order, student.ID)
	return nil
}

func (r *MemoryRepository) UpdateStudent(_ context.Context, id string, update models.StudentUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[id]
	if !ok {
		return models.NewStorageError("update student", notFound("student", id))
	}
	oldKey := strings.ToLower(s.Handle)
	if update.Handle != nil {
		key := strings.ToLower(*update.Handle)
		if owner, taken := r.handles[key]; taken && owner != id {
			return models.NewStorageError("update student", fmt.Errorf("handle %s: %w", *update.Handle, models.ErrAlreadyExists))
		}
		delete(r.handles, oldKey)
		r.handles[key] = id
	}
	update.Apply(s)
	s.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) DeleteStudent(_ context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.students[id]
	if !ok {
		r.mu.Unlock()
		return models.NewStorageError("delete student", notFound("student", id))
	}
	delete(r.students, id)
	delete(r.handles, strings.ToLower(s.Handle))
	delete(r.contests, id)
	delete(r.submissions, id)
	delete(r.syncLogs, id)
	for i, sid := range r.order {
		if sid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	archive := r.archive
	r.mu.Unlock()

	if archive != nil {
		archive.Drop(id)
	}
	return nil
}

func (r *MemoryRepository) IncReminderCount(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.students[id]
	if !ok {
		return models.NewStorageError("increment reminders", notFound("student", id))
	}
	s.ReminderCount++
	s.LastReminderAt = &at
	s.UpdatedAt = r.now()
	return nil
}

func (r *MemoryRepository) UpsertContest(_ context.Context, contest *models.Contest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.students[contest.StudentID]; !ok {
		return models.NewStorageError("upsert contest", notFound("student", contest.StudentID))
	}
	byID, ok := r.contests[contest.StudentID]
	if !ok {
		byID = make(map[int]*models.Contest)
		r.contests[contest.StudentID] = byID
	}
	c := *contest
	c.UpdatedAt = r.now()
	byID[contest.ContestID] = &c
	return nil
}

// UpsertSubmission stores the submission and reports whether it was new.
// A record whose stored verdict is final is left as it is.
func (r *MemoryRepository) UpsertSubmission(_ context.Context, submission *models.Submission) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.students[submission.StudentID]; !ok {
		return false, models.NewStorageError("upsert submission", notFound("student", submission.StudentID))
	}
	byID, ok := r.submissions[submission.StudentID]
	if !ok {
		byID = make(map[int64]*models.Submission)
		r.submissions[submission.StudentID] = byID
	}
	existing, found := byID[submission.SubmissionID]
	byID[submission.SubmissionID] = existing.Merge(submission)
	return !found, nil
}

func (r *MemoryRepository) AppendSyncLog(_ context.Context, log *models.SyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	l := *log
	logs := append(r.syncLogs[log.StudentID], &l)

	if r.maxSyncLogs > 0 && len(logs) > r.maxSyncLogs {
		overflow := len(logs) - r.maxSyncLogs
		if r.archive != nil {
			r.archive.Evict(log.StudentID, append([]*models.SyncLog(nil), logs[:overflow]...))
		}
		logs = append([]*models.SyncLog(nil), logs[overflow:]...)
	}
	r.syncLogs[log.StudentID] = logs
	return nil
}

// ListContests returns contests participated at or after since, newest first.
func (r *MemoryRepository) ListContests(_ context.Context, studentID string, since time.Time) ([]*models.Contest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Contest, 0, len(r.contests[studentID]))
	for _, c := range r.contests[studentID] {
		if c.ParticipatedAt.Before(since) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ParticipatedAt.Equal(out[j].ParticipatedAt) {
			return out[i].ContestID > out[j].ContestID
		}
		return out[i].ParticipatedAt.After(out[j].ParticipatedAt)
	})
	return out, nil
}

// ListSubmissions returns submissions made at or after since, newest first.
func (r *MemoryRepository) ListSubmissions(_ context.Context, studentID string, since time.Time) ([]*models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Submission, 0, len(r.submissions[studentID]))
	for _, s := range r.submissions[studentID] {
		if s.SubmittedAt.Before(since) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmissionID > out[j].SubmissionID
		}
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

// ListSyncLogs returns up to limit logs, newest first, reaching into the
// archive once the hot set is exhausted. limit <= 0 means no limit.
func (r *MemoryRepository) ListSyncLogs(_ context.Context, studentID string, limit int) ([]*models.SyncLog, error) {
	r.mu.RLock()
	hot := r.syncLogs[studentID]
	out := make([]*models.SyncLog, 0, len(hot))
	for i := len(hot) - 1; i >= 0; i-- {
		cp := *hot[i]
		out = append(out, &cp)
	}
	archive := r.archive
	r.mu.RUnlock()

	if limit > 0 && len(out) >= limit {
		return out[:limit], nil
	}
	if archive != nil {
		cold, err := archive.Load(studentID)
		if err != nil {
			return nil, models.NewStorageError("list sync logs", err)
		}
		out = append(out, cold...)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Snapshot copies the whole store for persistence.
func (r *MemoryRepository) Snapshot() *models.Storage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := &models.Storage{
		Version:  models.SnapshotVersion,
		Students: make([]*models.Student, 0, len(r.order)),
	}
	for _, id := range r.order {
		st.Students = append(st.Students, r.students[id].Clone())
		for _, c := range r.contests[id] {
			cp := *c
			st.Contests = append(st.Contests, &cp)
		}
		for _, s := range r.submissions[id] {
			cp := *s
			st.Submissions = append(st.Submissions, &cp)
		}
		for _, l := range r.syncLogs[id] {
			cp := *l
			st.SyncLogs = append(st.SyncLogs, &cp)
		}
	}
	return st
}

// Restore replaces the store content with a snapshot. Records referring to
// unknown students are dropped.
func (r *MemoryRepository) Restore(st *models.Storage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.students = make(map[string]*models.Student, len(st.Students))
	r.handles = make(map[string]string, len(st.Students))
	r.order = make([]string, 0, len(st.Students))
	r.contests = make(map[string]map[int]*models.Contest)
	r.submissions = make(map[string]map[int64]*models.Submission)
	r.syncLogs = make(map[string][]*models.SyncLog)

	for _, s := range st.Students {
		if s == nil || s.ID == "" {
			continue
		}
		if _, dup := r.students[s.ID]; dup {
			continue
		}
		r.students[s.ID] = s.Clone()
		r.handles[strings.ToLower(s.Handle)] = s.ID
		r.order = append(r.order, s.ID)
	}
	sort.SliceStable(r.order, func(i, j int) bool {
		return r.students[r.order[i]].CreatedAt.Before(r.students[r.order[j]].CreatedAt)
	})

	for _, c := range st.Contests {
		if c == nil || r.students[c.StudentID] == nil {
			continue
		}
		if r.contests[c.StudentID] == nil {
			r.contests[c.StudentID] = make(map[int]*models.Contest)
		}
		cp := *c
		r.contests[c.StudentID][c.ContestID] = &cp
	}
	for _, s := range st.Submissions {
		if s == nil || r.students[s.StudentID] == nil {
			continue
		}
		if r.submissions[s.StudentID] == nil {
			r.submissions[s.StudentID] = make(map[int64]*models.Submission)
		}
		cp := *s
		r.submissions[s.StudentID][s.SubmissionID] = &cp
	}
	for _, l := range st.SyncLogs {
		if l == nil || r.students[l.StudentID] == nil {
			continue
		}
		cp := *l
		r.syncLogs[l.StudentID] = append(r.syncLogs[l.StudentID], &cp)
	}
	for id, logs := range r.syncLogs {
		sort.SliceStable(logs, func(i, j int) bool { return logs[i].Timestamp.Before(logs[j].Timestamp) })
		r.syncLogs[id] = logs
	}
}
