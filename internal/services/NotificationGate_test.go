package services

import (
	"cftracker/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNotificationGate_ShouldNotify(t *testing.T) {
	tests := []struct {
		name    string
		student models.Student
		want    bool
	}{
		{"inactive eight days", models.Student{EmailEnabled: true, LastSubmissionAt: ptr(daysAgo(8))}, true},
		{"inactive exactly seven days", models.Student{EmailEnabled: true, LastSubmissionAt: ptr(daysAgo(7))}, true},
		{"never submitted", models.Student{EmailEnabled: true}, true},
		{"email disabled", models.Student{EmailEnabled: false, LastSubmissionAt: ptr(daysAgo(30))}, false},
		{"active", models.Student{EmailEnabled: true, IsActive: true, LastSubmissionAt: ptr(daysAgo(30))}, false},
		{"recent submission", models.Student{EmailEnabled: true, LastSubmissionAt: ptr(daysAgo(6.9))}, false},
	}
	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.student
			assert.Equal(t, tt.want, f.gate.ShouldNotify(&s))
		})
	}
	assert.False(t, f.gate.ShouldNotify(nil))
}

func TestNotificationGate_DisabledGlobally(t *testing.T) {
	f := newFixture(t)
	f.gate.enabled = false
	assert.False(t, f.gate.ShouldNotify(&models.Student{EmailEnabled: true}))
}

func TestNotificationGate_MinInterval(t *testing.T) {
	f := newFixture(t)
	f.gate.minInterval = 72 * time.Hour
	s := &models.Student{EmailEnabled: true, LastReminderAt: ptr(daysAgo(1))}

	assert.False(t, f.gate.ShouldNotify(s))

	s.LastReminderAt = ptr(daysAgo(4))
	assert.True(t, f.gate.ShouldNotify(s))
}

func TestNotificationGate_NotifyIncrementsOnSuccess(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "sleepy", true)

	assert.True(t, f.gate.Notify(ctx, f.student(t, s.ID)))

	stored := f.student(t, s.ID)
	assert.Equal(t, 1, stored.ReminderCount)
	require.NotNil(t, stored.LastReminderAt)
	assert.Equal(t, testNow, *stored.LastReminderAt)
	assert.Equal(t, 1, f.metrics.RemindersSent)
}

func TestNotificationGate_NotifyFailureKeepsCounter(t *testing.T) {
	f := newFixture(t)
	f.notifier.Result = false
	s := f.addStudent(t, "bounce", true)

	assert.False(t, f.gate.Notify(ctx, f.student(t, s.ID)))

	assert.Equal(t, 1, f.notifier.ReminderCount())
	assert.Zero(t, f.student(t, s.ID).ReminderCount)
	assert.Zero(t, f.metrics.RemindersSent)
}

func TestNotificationGate_NotifyIneligibleSendsNothing(t *testing.T) {
	f := newFixture(t)
	s := f.addStudent(t, "optout", false)

	assert.False(t, f.gate.Notify(ctx, f.student(t, s.ID)))
	assert.Zero(t, f.notifier.ReminderCount())
}
