package model

import "time"

// UserProgress is the compact progress block shown on the dashboard home.
type UserProgress struct {
	TotalAttempts    int     `json:"total_attempts"`
	CorrectAnswers   int     `json:"correct_answers"`
	PartialAnswers   int     `json:"partial_answers"`
	IncorrectAnswers int     `json:"incorrect_answers"`
	SuccessRate      float64 `json:"success_rate"`
}

// Achievement is a badge unlocked by reaching a threshold.
type Achievement struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Unlocked    bool   `json:"unlocked"`
}

// UserStatistics is the full statistics block for a profile page.
type UserStatistics struct {
	UserProgress
	TestCaseAccuracy float64       `json:"test_case_accuracy"`
	CurrentStreak    int           `json:"current_streak"`
	MaxStreak        int           `json:"max_streak"`
	RecentActivity   []ScoreView   `json:"recent_activity"`
	Achievements     []Achievement `json:"achievements"`
	ComputedAt       time.Time     `json:"computed_at"`
}

// PlatformScoreStats aggregates every stored score for the admin dashboard.
type PlatformScoreStats struct {
	TotalSubmissions  int     `json:"total_submissions"`
	DistinctUsers     int     `json:"distinct_users"`
	DistinctExercises int     `json:"distinct_exercises"`
	TestCaseAccuracy  float64 `json:"test_case_accuracy"`
	PerfectRate       float64 `json:"perfect_rate"`
}
