package services

import (
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/services/interfaces"
	"cftracker/internal/structures"
	"context"
	"time"
)

type NotificationGateInterface interface {
	ShouldNotify(student *models.Student) bool
	Notify(ctx context.Context, student *models.Student) bool
}

// NotificationGate decides whether an inactive student gets a reminder and
// records the reminder once the notifier accepted it.
type NotificationGate struct {
	repo         interfaces.RepositoryInterface
	notifier     interfaces.NotifierInterface
	logger       providers.Logger
	metrics      providers.MetricsProviderInterface
	enabled      bool
	inactiveDays int
	minInterval  time.Duration
	now          func() time.Time
}

func NewNotificationGate(conf *structures.Config, repo interfaces.RepositoryInterface, notifier interfaces.NotifierInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *NotificationGate {
	inactiveDays := conf.Reminder.InactiveDays
	if inactiveDays <= 0 {
		inactiveDays = 7
	}
	return &NotificationGate{
		repo:         repo,
		notifier:     notifier,
		logger:       logger,
		metrics:      metrics,
		enabled:      conf.Reminder.Enabled,
		inactiveDays: inactiveDays,
		minInterval:  conf.Reminder.MinInterval,
		now:          time.Now,
	}
}

func (g *NotificationGate) ShouldNotify(student *models.Student) bool {
	if !g.enabled || student == nil || !student.EmailEnabled || student.IsActive {
		return false
	}
	now := g.now()
	if days, ok := DaysSince(student.LastSubmissionAt, now); ok && days < g.inactiveDays {
		return false
	}
	if g.minInterval > 0 && student.LastReminderAt != nil && now.Sub(*student.LastReminderAt) < g.minInterval {
		return false
	}
	return true
}

// Notify sends a reminder when the student is eligible. The reminder counter
// is only incremented after the notifier reports success.
func (g *NotificationGate) Notify(ctx context.Context, student *models.Student) bool {
	if !g.ShouldNotify(student) {
		return false
	}
	if !g.notifier.SendReminder(ctx, student) {
		g.logger.Warnf(providers.TypeMail, "Reminder to %s (%s) was not delivered", student.Handle, student.ID)
		return false
	}

	g.metrics.IncRemindersSent()
	if err := g.repo.IncReminderCount(ctx, student.ID, g.now()); err != nil {
		g.logger.Errorf(providers.TypeSync, "Reminder sent to %s but counter update failed: %s", student.ID, err)
	}
	g.logger.Infof(providers.TypeMail, "Reminder sent to %s", student.Handle)
	return true
}
