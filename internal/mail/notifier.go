package mail

import (
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/services/interfaces"
	"cftracker/internal/structures"
	"context"
	"fmt"
)

// LogNotifier renders emails and writes them to the mail log instead of
// sending them. Delivery always succeeds.
type LogNotifier struct {
	renderer *Renderer
	logger   providers.Logger
}

func NewLogNotifier(conf *structures.Config, logger providers.Logger) *LogNotifier {
	return &LogNotifier{renderer: NewRenderer(conf.Reminder.InactiveDays, conf.Mail.FromName), logger: logger}
}

func (n *LogNotifier) SendReminder(_ context.Context, student *models.Student) bool {
	return n.write(n.renderer.Reminder(student))
}

func (n *LogNotifier) SendWelcome(_ context.Context, student *models.Student) bool {
	return n.write(n.renderer.Welcome(student))
}

func (n *LogNotifier) write(msg *Message, err error) bool {
	if err != nil {
		n.logger.Errorf(providers.TypeMail, "Unable to render email: %s", err)
		return false
	}
	n.logger.Infof(providers.TypeMail, "Email to %s <%s>: %s", msg.ToName, msg.To, msg.Subject)
	n.logger.Debugf(providers.TypeMail, "%s", msg.HTML)
	return true
}

// noopNotifier is used when mail is disabled. Nothing is delivered, so
// reminder counters never move.
type noopNotifier struct {
	logger providers.Logger
}

func (n *noopNotifier) SendReminder(_ context.Context, student *models.Student) bool {
	n.logger.Debugf(providers.TypeMail, "Mail disabled, reminder to %s skipped", student.ID)
	return false
}

func (n *noopNotifier) SendWelcome(_ context.Context, student *models.Student) bool {
	n.logger.Debugf(providers.TypeMail, "Mail disabled, welcome to %s skipped", student.ID)
	return false
}

// NewNotifier builds the notifier selected by mail.driver.
func NewNotifier(conf *structures.Config, logger providers.Logger) (interfaces.NotifierInterface, error) {
	switch conf.Mail.Driver {
	case "sendgrid":
		logger.Infof(providers.TypeApp, "Mail: sendgrid, from %s", conf.Mail.FromEmail)
		n, err := NewSendgridNotifier(conf, logger)
		if err != nil {
			return nil, err
		}
		return n, nil
	case "log", "":
		logger.Infof(providers.TypeApp, "Mail: log only")
		return NewLogNotifier(conf, logger), nil
	case "none":
		logger.Warnf(providers.TypeApp, "Mail: disabled, reminders will not be sent")
		return &noopNotifier{logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown mail driver %q", conf.Mail.Driver)
	}
}
