package interfaces

import (
	"cftracker/internal/models"
	"context"
)

type CodeforcesClientInterface interface {
	UserInfo(ctx context.Context, handle string) (*models.Profile, error)
	UserRating(ctx context.Context, handle string) ([]models.RatingChange, error)
	UserStatus(ctx context.Context, handle string, count int) ([]models.SubmissionEvent, error)
	IsAvailable(ctx context.Context) bool
}
