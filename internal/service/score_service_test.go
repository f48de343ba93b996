package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stemsi/exstem-scores/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestApplyScoreUpdate(t *testing.T) {
	oldAnswer := "print(1)"
	newAnswer := "print(2)"

	s := &model.Score{
		Answer:      &oldAnswer,
		Results:     json.RawMessage(`[false]`),
		UserResults: json.RawMessage(`["0"]`),
	}

	applyScoreUpdate(s, &model.UpdateScoreRequest{Results: json.RawMessage(`[true]`)})
	assert.Equal(t, "print(1)", *s.Answer)
	assert.JSONEq(t, `[true]`, string(s.Results))
	assert.JSONEq(t, `["0"]`, string(s.UserResults))

	applyScoreUpdate(s, &model.UpdateScoreRequest{
		Answer:      &newAnswer,
		Results:     json.RawMessage(`null`),
		UserResults: json.RawMessage(`["1"]`),
	})
	assert.Equal(t, "print(2)", *s.Answer)
	assert.JSONEq(t, `[true]`, string(s.Results))
	assert.JSONEq(t, `["1"]`, string(s.UserResults))
}

func TestUpdateScoreRequest_Empty(t *testing.T) {
	answer := ""
	assert.True(t, (&model.UpdateScoreRequest{}).Empty())
	assert.True(t, (&model.UpdateScoreRequest{Results: json.RawMessage(`null`)}).Empty())
	assert.False(t, (&model.UpdateScoreRequest{Answer: &answer}).Empty())
	assert.False(t, (&model.UpdateScoreRequest{UserResults: json.RawMessage(`[]`)}).Empty())
}

func TestNewScoreEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &model.Score{ID: 3, UserID: 9, ExerciseID: 4, Results: json.RawMessage(`{"test_results": [true, false]}`)}

	ev := NewScoreEvent(model.ScoreEventCreated, s, at)

	assert.Equal(t, model.ScoreEvent{
		Type:       model.ScoreEventCreated,
		ScoreID:    3,
		UserID:     9,
		ExerciseID: 4,
		AllCorrect: false,
		Accuracy:   50,
		At:         at,
	}, ev)
}
