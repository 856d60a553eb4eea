package interfaces

import (
	"cftracker/internal/models"
	"context"
	"time"
)

// RepositoryInterface is the storage port of the sync engine. Upserts are
// idempotent by natural key; sync logs are append-only.
type RepositoryInterface interface {
	FindStudent(ctx context.Context, id string) (*models.Student, error)
	FindStudentByHandle(ctx context.Context, handle string) (*models.Student, error)
	FindStudentByEmail(ctx context.Context, email string) (*models.Student, error)
	ListStudents(ctx context.Context) ([]*models.Student, error)
	CountStudents(ctx context.Context) (int, error)
	CreateStudent(ctx context.Context, student *models.Student) error
	UpdateStudent(ctx context.Context, id string, update models.StudentUpdate) error
	IncReminderCount(ctx context.Context, id string, at time.Time) error
	// DeleteStudent removes the student with its contests, submissions and
	// sync logs.
	DeleteStudent(ctx context.Context, id string) error

	UpsertContest(ctx context.Context, contest *models.Contest) error
	UpsertSubmission(ctx context.Context, submission *models.Submission) (created bool, err error)
	AppendSyncLog(ctx context.Context, log *models.SyncLog) error

	ListContests(ctx context.Context, studentID string, since time.Time) ([]*models.Contest, error)
	ListSubmissions(ctx context.Context, studentID string, since time.Time) ([]*models.Submission, error)
	ListSyncLogs(ctx context.Context, studentID string, limit int) ([]*models.SyncLog, error)
}
