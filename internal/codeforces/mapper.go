package codeforces

import (
	"cftracker/internal/models"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

func MapProfile(raw RawUser) (*models.Profile, error) {
	if raw.Handle == "" {
		return nil, &MalformedPayloadError{Entity: "user", Field: "handle"}
	}
	return &models.Profile{
		Handle:    raw.Handle,
		Rating:    raw.Rating,
		MaxRating: raw.MaxRating,
		Rank:      raw.Rank,
		MaxRank:   raw.MaxRank,
	}, nil
}

func MapRatingChange(raw RawRatingChange) (models.RatingChange, error) {
	switch {
	case raw.ContestID == 0:
		return models.RatingChange{}, &MalformedPayloadError{Entity: "rating change", Field: "contestId"}
	case raw.ContestName == "":
		return models.RatingChange{}, &MalformedPayloadError{Entity: "rating change", Field: "contestName"}
	case raw.RatingUpdateTimeSeconds == 0:
		return models.RatingChange{}, &MalformedPayloadError{Entity: "rating change", Field: "ratingUpdateTimeSeconds"}
	}
	return models.RatingChange{
		ContestID:   raw.ContestID,
		ContestName: raw.ContestName,
		Rank:        raw.Rank,
		OldRating:   raw.OldRating,
		NewRating:   raw.NewRating,
		UpdatedAt:   time.Unix(raw.RatingUpdateTimeSeconds, 0).UTC(),
	}, nil
}

func MapSubmission(raw RawSubmission) (models.SubmissionEvent, error) {
	switch {
	case raw.ID == 0:
		return models.SubmissionEvent{}, &MalformedPayloadError{Entity: "submission", Field: "id"}
	case raw.CreationTimeSeconds == 0:
		return models.SubmissionEvent{}, &MalformedPayloadError{Entity: "submission", Field: "creationTimeSeconds"}
	case raw.Problem.Index == "":
		return models.SubmissionEvent{}, &MalformedPayloadError{Entity: "submission", Field: "problem.index"}
	}

	contestID := raw.ContestID
	if contestID == 0 {
		contestID = raw.Problem.ContestID
	}

	return models.SubmissionEvent{
		ID:            raw.ID,
		ContestID:     contestID,
		ProblemIndex:  raw.Problem.Index,
		ProblemName:   raw.Problem.Name,
		ProblemRating: raw.Problem.Rating,
		Verdict:       MapVerdict(raw.Verdict),
		RawVerdict:    raw.Verdict,
		CreatedAt:     time.Unix(raw.CreationTimeSeconds, 0).UTC(),
		Language:      raw.ProgrammingLanguage,
	}, nil
}

// MapVerdict folds the upstream verdict into the three local buckets.
// A missing verdict means the submission is still queued.
func MapVerdict(v string) models.Verdict {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "OK":
		return models.VerdictAccepted
	case "", "TESTING":
		return models.VerdictOther
	default:
		return models.VerdictRejected
	}
}

func decodeResult[T any](entity string, payload []byte) (T, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, &MalformedPayloadError{Entity: entity, Err: err}
	}
	return out, nil
}
