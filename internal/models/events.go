package models

import "time"

// Profile, RatingChange and SubmissionEvent are the upstream records after
// mapping, before they are attached to a student.

type Profile struct {
	Handle    string `json:"handle"`
	Rating    int    `json:"rating"`
	MaxRating int    `json:"maxRating"`
	Rank      string `json:"rank,omitempty"`
	MaxRank   string `json:"maxRank,omitempty"`
}

type RatingChange struct {
	ContestID   int
	ContestName string
	Rank        int
	OldRating   int
	NewRating   int
	UpdatedAt   time.Time
}

func (r RatingChange) Delta() int {
	return r.NewRating - r.OldRating
}

type SubmissionEvent struct {
	ID            int64
	ContestID     int
	ProblemIndex  string
	ProblemName   string
	ProblemRating int
	Verdict       Verdict
	RawVerdict    string
	CreatedAt     time.Time
	Language      string
}

func (e SubmissionEvent) ToSubmission(studentID string) *Submission {
	return &Submission{
		StudentID:     studentID,
		SubmissionID:  e.ID,
		ContestID:     e.ContestID,
		ProblemIndex:  e.ProblemIndex,
		ProblemName:   e.ProblemName,
		ProblemRating: e.ProblemRating,
		Verdict:       e.Verdict,
		RawVerdict:    e.RawVerdict,
		SubmittedAt:   e.CreatedAt,
		Language:      e.Language,
	}
}
