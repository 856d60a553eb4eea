package storage

import (
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/structures"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"
)

// GormRepository stores records in Postgres. Natural keys are composite
// primary keys, so upserts map onto ON CONFLICT clauses.
type GormRepository struct {
	db     *gorm.DB
	logger providers.Logger
}

func OpenPostgres(conf *structures.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(conf.Storage.DSN), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Student{}, &models.Contest{}, &models.Submission{}, &models.SyncLog{})
}

func NewGormRepository(db *gorm.DB, logger providers.Logger) *GormRepository {
	return &GormRepository{db: db, logger: logger}
}

func (r *GormRepository) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	var s models.Student
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("student", id)
		}
		return nil, models.NewStorageError("find student", err)
	}
	return &s, nil
}

func (r *GormRepository) FindStudentByHandle(ctx context.Context, handle string) (*models.Student, error) {
	var s models.Student
	if err := r.db.WithContext(ctx).First(&s, "lower(handle) = ?", strings.ToLower(handle)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("handle", handle)
		}
		return nil, models.NewStorageError("find student", err)
	}
	return &s, nil
}

func (r *GormRepository) FindStudentByEmail(ctx context.Context, email string) (*models.Student, error) {
	var s models.Student
	if err := r.db.WithContext(ctx).First(&s, "lower(email) = ?", strings.ToLower(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("email", email)
		}
		return nil, models.NewStorageError("find student", err)
	}
	return &s, nil
}

func (r *GormRepository) ListStudents(ctx context.Context) ([]*models.Student, error) {
	var out []*models.Student
	if err := r.db.WithContext(ctx).Order("created_at asc, id asc").Find(&out).Error; err != nil {
		return nil, models.NewStorageError("list students", err)
	}
	return out, nil
}

func (r *GormRepository) CountStudents(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Student{}).Count(&n).Error; err != nil {
		return 0, models.NewStorageError("count students", err)
	}
	return int(n), nil
}

func (r *GormRepository) CreateStudent(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if _, err := r.FindStudentByHandle(ctx, student.Handle); err == nil {
		return models.NewStorageError("create student", fmt.Errorf("handle %s: %w", student.Handle, models.ErrAlreadyExists))
	}
	if err := r.db.WithContext(ctx).Create(student).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = fmt.Errorf("%s: %w", err, models.ErrAlreadyExists)
		}
		return models.NewStorageError("create student", err)
	}
	return nil
}

func (r *GormRepository) UpdateStudent(ctx context.Context, id string, update models.StudentUpdate) error {
	fields := map[string]any{"updated_at": time.Now()}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Email != nil {
		fields["email"] = *update.Email
	}
	if update.Phone != nil {
		fields["phone"] = *update.Phone
	}
	if update.Handle != nil {
		if owner, err := r.FindStudentByHandle(ctx, *update.Handle); err == nil && owner.ID != id {
			return models.NewStorageError("update student", fmt.Errorf("handle %s: %w", *update.Handle, models.ErrAlreadyExists))
		}
		fields["handle"] = *update.Handle
	}
	if update.EmailEnabled != nil {
		fields["email_enabled"] = *update.EmailEnabled
	}
	if update.CurrentRating != nil {
		fields["current_rating"] = *update.CurrentRating
	}
	if update.MaxRating != nil {
		fields["max_rating"] = *update.MaxRating
	}
	if update.LastSyncedAt != nil {
		fields["last_synced_at"] = *update.LastSyncedAt
	}
	if update.LastSubmissionAt != nil {
		fields["last_submission_at"] = *update.LastSubmissionAt
	}
	if update.IsActive != nil {
		fields["is_active"] = *update.IsActive
	}

	res := r.db.WithContext(ctx).Model(&models.Student{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		err := res.Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			err = fmt.Errorf("%s: %w", err, models.ErrAlreadyExists)
		}
		return models.NewStorageError("update student", err)
	}
	if res.RowsAffected == 0 {
		return models.NewStorageError("update student", notFound("student", id))
	}
	return nil
}

func (r *GormRepository) IncReminderCount(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Student{}).Where("id = ?", id).Updates(map[string]any{
		"reminder_count":   gorm.Expr("reminder_count + 1"),
		"last_reminder_at": at,
		"updated_at":       time.Now(),
	})
	if res.Error != nil {
		return models.NewStorageError("increment reminders", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewStorageError("increment reminders", notFound("student", id))
	}
	return nil
}

func (r *GormRepository) DeleteStudent(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Contest{}, &models.Submission{}, &models.SyncLog{}} {
			if err := tx.Where("student_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&models.Student{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFound("student", id)
		}
		return nil
	})
	if err != nil {
		return models.NewStorageError("delete student", err)
	}
	r.logger.Infof(providers.TypeApp, "Deleted student %s with related records", id)
	return nil
}

func (r *GormRepository) UpsertContest(ctx context.Context, contest *models.Contest) error {
	c := *contest
	c.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "student_id"}, {Name: "contest_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"contest_name",
			"participated_at",
			"rank",
			"rating_change",
			"new_rating",
			"problems_solved",
			"total_problems",
			"updated_at",
		}),
	}).Create(&c).Error
	if err != nil {
		return models.NewStorageError("upsert contest", err)
	}
	return nil
}

// UpsertSubmission runs read-merge-write in a transaction with a row lock so
// a stored final verdict survives concurrent updates.
func (r *GormRepository) UpsertSubmission(ctx context.Context, submission *models.Submission) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Submission
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&existing, "student_id = ? AND submission_id = ?", submission.StudentID, submission.SubmissionID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(submission)
			if res.Error != nil {
				return res.Error
			}
			// zero rows: a concurrent insert of the same id won the race
			created = res.RowsAffected > 0
			if !created {
				r.logger.Debugf(providers.TypeSync, "Submission %d of %s inserted concurrently", submission.SubmissionID, submission.StudentID)
			}
			return nil
		case err != nil:
			return err
		}
		return tx.Save(existing.Merge(submission)).Error
	})
	if err != nil {
		return false, models.NewStorageError("upsert submission", err)
	}
	return created, nil
}

func (r *GormRepository) AppendSyncLog(ctx context.Context, log *models.SyncLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return models.NewStorageError("append sync log", err)
	}
	return nil
}

func (r *GormRepository) ListContests(ctx context.Context, studentID string, since time.Time) ([]*models.Contest, error) {
	var out []*models.Contest
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND participated_at >= ?", studentID, since).
		Order("participated_at desc, contest_id desc").
		Find(&out).Error
	if err != nil {
		return nil, models.NewStorageError("list contests", err)
	}
	return out, nil
}

func (r *GormRepository) ListSubmissions(ctx context.Context, studentID string, since time.Time) ([]*models.Submission, error) {
	var out []*models.Submission
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND submitted_at >= ?", studentID, since).
		Order("submitted_at desc, submission_id desc").
		Find(&out).Error
	if err != nil {
		return nil, models.NewStorageError("list submissions", err)
	}
	return out, nil
}

func (r *GormRepository) ListSyncLogs(ctx context.Context, studentID string, limit int) ([]*models.SyncLog, error) {
	var out []*models.SyncLog
	q := r.db.WithContext(ctx).Where("student_id = ?", studentID).Order(`"timestamp" desc`)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, models.NewStorageError("list sync logs", err)
	}
	return out, nil
}
