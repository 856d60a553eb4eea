package models

import "time"

// Student is a tracked individual whose Codeforces handle is synchronized.
// Rating and activity fields are owned by the sync engine; contact fields
// and the handle are edited through the student service.
type Student struct {
	ID               string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name             string     `json:"name" gorm:"size:120;not null"`
	Email            string     `json:"email" gorm:"size:255;index"`
	Phone            string     `json:"phone" gorm:"size:32"`
	Handle           string     `json:"codeforcesHandle" gorm:"size:64;uniqueIndex;not null"`
	CurrentRating    int        `json:"currentRating"`
	MaxRating        int        `json:"maxRating"`
	LastSyncedAt     *time.Time `json:"lastSyncedAt,omitempty"`
	LastSubmissionAt *time.Time `json:"lastSubmissionAt,omitempty"`
	IsActive         bool       `json:"isActive"`
	ReminderCount    int        `json:"reminderCount"`
	LastReminderAt   *time.Time `json:"lastReminderAt,omitempty"`
	EmailEnabled     bool       `json:"emailEnabled"`
	CreatedAt        time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// StudentUpdate carries a partial update; nil fields are left untouched.
type StudentUpdate struct {
	Name         *string
	Email        *string
	Phone        *string
	Handle       *string
	EmailEnabled *bool

	CurrentRating    *int
	MaxRating        *int
	LastSyncedAt     *time.Time
	LastSubmissionAt *time.Time
	IsActive         *bool
}

func (u StudentUpdate) Apply(s *Student) {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Email != nil {
		s.Email = *u.Email
	}
	if u.Phone != nil {
		s.Phone = *u.Phone
	}
	if u.Handle != nil {
		s.Handle = *u.Handle
	}
	if u.EmailEnabled != nil {
		s.EmailEnabled = *u.EmailEnabled
	}
	if u.CurrentRating != nil {
		s.CurrentRating = *u.CurrentRating
	}
	if u.MaxRating != nil {
		s.MaxRating = *u.MaxRating
	}
	if u.LastSyncedAt != nil {
		t := *u.LastSyncedAt
		s.LastSyncedAt = &t
	}
	if u.LastSubmissionAt != nil {
		t := *u.LastSubmissionAt
		s.LastSubmissionAt = &t
	}
	if u.IsActive != nil {
		s.IsActive = *u.IsActive
	}
}

func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}
	c := *s
	c.LastSyncedAt = cloneTime(s.LastSyncedAt)
	c.LastSubmissionAt = cloneTime(s.LastSubmissionAt)
	c.LastReminderAt = cloneTime(s.LastReminderAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
