package model

import (
	"encoding/json"
	"time"

	"github.com/stemsi/exstem-scores/internal/results"
)

// Score is one submission of a user against an exercise. Results and
// UserResults are stored exactly as the grader sent them; their shape is only
// resolved when the score is read.
type Score struct {
	ID          int             `json:"id"`
	UserID      int             `json:"user_id"`
	ExerciseID  int             `json:"exercise_id"`
	Answer      *string         `json:"answer"`
	Results     json.RawMessage `json:"results"`
	UserResults json.RawMessage `json:"user_results"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RawResults implements results.Holder.
func (s *Score) RawResults() results.Raw {
	return results.FromJSON(s.Results)
}

// ScoreView is the normalized representation returned by the API.
type ScoreView struct {
	ID          int             `json:"id"`
	UserID      int             `json:"user_id"`
	ExerciseID  int             `json:"exercise_id"`
	Answer      *string         `json:"answer"`
	Results     []bool          `json:"results"`
	UserResults []string        `json:"user_results"`
	AllCorrect  bool            `json:"all_correct"`
	Summary     results.Summary `json:"summary"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewScoreView normalizes a stored score for display.
func NewScoreView(s *Score) ScoreView {
	raw := s.RawResults()
	summary := results.Summarize(raw)
	return ScoreView{
		ID:          s.ID,
		UserID:      s.UserID,
		ExerciseID:  s.ExerciseID,
		Answer:      s.Answer,
		Results:     results.Normalize(raw),
		UserResults: results.NormalizeText(s.UserResults),
		AllCorrect:  summary.AllCorrect,
		Summary:     summary,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// NewScoreViews normalizes a list of stored scores, never returning nil.
func NewScoreViews(scores []Score) []ScoreView {
	views := make([]ScoreView, 0, len(scores))
	for i := range scores {
		views = append(views, NewScoreView(&scores[i]))
	}
	return views
}

// CreateScoreRequest is the payload for recording a submission.
type CreateScoreRequest struct {
	ExerciseID  int             `json:"exercise_id" binding:"required,min=1"`
	Answer      *string         `json:"answer" binding:"omitempty,max=65535"`
	Results     json.RawMessage `json:"results"`
	UserResults json.RawMessage `json:"user_results"`
}

// UpdateScoreRequest is the payload for a partial score update. A nil field
// is left unchanged; a JSON null for results/user_results is treated the same.
type UpdateScoreRequest struct {
	Answer      *string         `json:"answer" binding:"omitempty,max=65535"`
	Results     json.RawMessage `json:"results"`
	UserResults json.RawMessage `json:"user_results"`
}

// Empty reports whether the update carries no field at all.
func (r *UpdateScoreRequest) Empty() bool {
	return r.Answer == nil && isNullJSON(r.Results) && isNullJSON(r.UserResults)
}

func isNullJSON(b json.RawMessage) bool {
	return len(b) == 0 || string(b) == "null"
}

// ScoreEventType names a change published on the activity feed.
type ScoreEventType string

const (
	ScoreEventCreated ScoreEventType = "score.created"
	ScoreEventUpdated ScoreEventType = "score.updated"
	ScoreEventDeleted ScoreEventType = "score.deleted"
)

// ScoreEvent is published to Redis whenever a score changes.
type ScoreEvent struct {
	Type       ScoreEventType `json:"type"`
	ScoreID    int            `json:"score_id"`
	UserID     int            `json:"user_id"`
	ExerciseID int            `json:"exercise_id"`
	AllCorrect bool           `json:"all_correct"`
	Accuracy   float64        `json:"accuracy"`
	At         time.Time      `json:"at"`
}
