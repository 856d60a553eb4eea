package models

import "time"

type SyncTrigger string

const (
	TriggerManual    SyncTrigger = "manual"
	TriggerScheduled SyncTrigger = "scheduled"
)

type SyncStatus string

const (
	SyncSuccess SyncStatus = "success"
	SyncFailure SyncStatus = "failure"
)

// SyncLog records one sync attempt for one student. It is append-only.
type SyncLog struct {
	ID                 string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	StudentID          string        `json:"studentId" gorm:"type:varchar(36);index"`
	Trigger            SyncTrigger   `json:"syncType" gorm:"size:16"`
	Status             SyncStatus    `json:"status" gorm:"size:16"`
	Message            string        `json:"message"`
	Timestamp          time.Time     `json:"timestamp" gorm:"index"`
	ContestsFetched    int           `json:"contestsFetched"`
	SubmissionsFetched int           `json:"submissionsFetched"`
	NewSubmissions     int           `json:"newSubmissions"`
	Duration           time.Duration `json:"durationNs"`
}

func (l *SyncLog) Succeeded() bool {
	return l != nil && l.Status == SyncSuccess
}

type BatchResult struct {
	SuccessCount      int           `json:"success"`
	ErrorCount        int           `json:"errors"`
	NotificationsSent int           `json:"remindersSent"`
	Skipped           int           `json:"skipped"`
	Duration          time.Duration `json:"durationNs"`
}
