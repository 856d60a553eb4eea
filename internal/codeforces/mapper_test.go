package codeforces

import (
	"cftracker/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapVerdict(t *testing.T) {
	cases := map[string]models.Verdict{
		"OK":                    models.VerdictAccepted,
		"":                      models.VerdictOther,
		"TESTING":               models.VerdictOther,
		"WRONG_ANSWER":          models.VerdictRejected,
		"TIME_LIMIT_EXCEEDED":   models.VerdictRejected,
		"COMPILATION_ERROR":     models.VerdictRejected,
		"CHALLENGED":            models.VerdictRejected,
		"MEMORY_LIMIT_EXCEEDED": models.VerdictRejected,
	}
	for raw, want := range cases {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, want, MapVerdict(raw))
		})
	}
}

func TestMapProfile(t *testing.T) {
	p, err := MapProfile(RawUser{Handle: "tourist", Rating: 3800, MaxRating: 3979, Rank: "legendary grandmaster"})
	require.NoError(t, err)
	assert.Equal(t, "tourist", p.Handle)
	assert.Equal(t, 3979, p.MaxRating)

	_, err = MapProfile(RawUser{Rating: 1500})
	var mp *MalformedPayloadError
	require.ErrorAs(t, err, &mp)
	assert.Equal(t, "handle", mp.Field)
}

func TestMapProfile_UnratedUser(t *testing.T) {
	p, err := MapProfile(RawUser{Handle: "fresh"})
	require.NoError(t, err)
	assert.Zero(t, p.Rating)
	assert.Zero(t, p.MaxRating)
}

func TestMapRatingChange_RequiredFields(t *testing.T) {
	valid := RawRatingChange{ContestID: 1, ContestName: "Round 1", RatingUpdateTimeSeconds: 1700000000, OldRating: 1500, NewRating: 1550}

	tests := []struct {
		name  string
		edit  func(r *RawRatingChange)
		field string
	}{
		{"contestId", func(r *RawRatingChange) { r.ContestID = 0 }, "contestId"},
		{"contestName", func(r *RawRatingChange) { r.ContestName = "" }, "contestName"},
		{"time", func(r *RawRatingChange) { r.RatingUpdateTimeSeconds = 0 }, "ratingUpdateTimeSeconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := valid
			tt.edit(&raw)
			_, err := MapRatingChange(raw)
			var mp *MalformedPayloadError
			require.ErrorAs(t, err, &mp)
			assert.Equal(t, tt.field, mp.Field)
		})
	}

	rc, err := MapRatingChange(valid)
	require.NoError(t, err)
	assert.Equal(t, 50, rc.Delta())
}

func TestMapSubmission(t *testing.T) {
	ev, err := MapSubmission(RawSubmission{
		ID:                  42,
		ContestID:           1900,
		CreationTimeSeconds: 1700000000,
		Problem:             RawProblem{Index: "C", Name: "Trees", Rating: 1600},
		ProgrammingLanguage: "GNU C++17",
		Verdict:             "WRONG_ANSWER",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), ev.ID)
	assert.Equal(t, "C", ev.ProblemIndex)
	assert.Equal(t, 1600, ev.ProblemRating)
	assert.Equal(t, models.VerdictRejected, ev.Verdict)
	assert.Equal(t, "WRONG_ANSWER", ev.RawVerdict)
	assert.Equal(t, int64(1700000000), ev.CreatedAt.Unix())

	sub := ev.ToSubmission("student-1")
	assert.Equal(t, "student-1", sub.StudentID)
	assert.Equal(t, ev.CreatedAt, sub.SubmittedAt)
}

func TestMapSubmission_MissingFields(t *testing.T) {
	_, err := MapSubmission(RawSubmission{CreationTimeSeconds: 1, Problem: RawProblem{Index: "A"}})
	var mp *MalformedPayloadError
	require.ErrorAs(t, err, &mp)
	assert.Equal(t, "id", mp.Field)

	_, err = MapSubmission(RawSubmission{ID: 1, Problem: RawProblem{Index: "A"}})
	require.ErrorAs(t, err, &mp)
	assert.Equal(t, "creationTimeSeconds", mp.Field)
}

func TestDecodeResult_Malformed(t *testing.T) {
	_, err := decodeResult[[]RawUser]("user", []byte(`{"not":"a list"}`))
	var mp *MalformedPayloadError
	require.ErrorAs(t, err, &mp)
	assert.Equal(t, "user", mp.Entity)
	assert.Contains(t, err.Error(), "malformed user payload")
}
