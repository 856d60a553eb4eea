package models

import "time"

type Verdict string

const (
	VerdictAccepted Verdict = "accepted"
	VerdictRejected Verdict = "rejected"
	VerdictOther    Verdict = "other"
)

// IsFinal reports whether the judge has finished with the submission.
func (v Verdict) IsFinal() bool {
	return v == VerdictAccepted || v == VerdictRejected
}

type Submission struct {
	StudentID     string    `json:"studentId" gorm:"primaryKey;type:varchar(36)"`
	SubmissionID  int64     `json:"submissionId" gorm:"primaryKey;autoIncrement:false"`
	ContestID     int       `json:"contestId,omitempty" gorm:"index"`
	ProblemIndex  string    `json:"problemIndex" gorm:"size:8"`
	ProblemName   string    `json:"problemName" gorm:"size:255"`
	ProblemRating int       `json:"problemRating,omitempty"`
	Verdict       Verdict   `json:"verdict" gorm:"size:16"`
	RawVerdict    string    `json:"rawVerdict" gorm:"size:48"`
	SubmittedAt   time.Time `json:"submissionTime" gorm:"index"`
	Language      string    `json:"programmingLanguage" gorm:"size:64"`
}

// Merge returns the record to store when incoming replaces existing.
// A stored final verdict is immutable: later upserts of the same id never
// replace it, whatever verdict they carry.
func (s *Submission) Merge(incoming *Submission) *Submission {
	if s != nil && s.Verdict.IsFinal() {
		kept := *s
		return &kept
	}
	merged := *incoming
	return &merged
}
