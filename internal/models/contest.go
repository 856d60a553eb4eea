package models

import "time"

// Contest is one rated participation of a student. TotalProblems is an
// estimate and may be overwritten in place when better data is available.
type Contest struct {
	StudentID      string    `json:"studentId" gorm:"primaryKey;type:varchar(36)"`
	ContestID      int       `json:"contestId" gorm:"primaryKey;autoIncrement:false"`
	ContestName    string    `json:"contestName" gorm:"size:255"`
	ParticipatedAt time.Time `json:"participationDate" gorm:"index"`
	Rank           int       `json:"rank"`
	RatingChange   int       `json:"ratingChange"`
	NewRating      int       `json:"newRating"`
	ProblemsSolved int       `json:"problemsSolved"`
	TotalProblems  int       `json:"totalProblems"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
