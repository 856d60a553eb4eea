package interfaces

import (
	"cftracker/internal/models"
	"context"
)

// NotifierInterface delivers emails. The boolean reports whether the
// message was accepted by the transport; failures are logged, not returned.
type NotifierInterface interface {
	SendReminder(ctx context.Context, student *models.Student) bool
	SendWelcome(ctx context.Context, student *models.Student) bool
}
