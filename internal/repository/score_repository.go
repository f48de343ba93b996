package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-scores/internal/model"
)

const scoreColumns = `id, user_id, exercise_id, answer, results, user_results, created_at, updated_at`

// ScoreRepository handles score data access.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new ScoreRepository.
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

func scanScore(row pgx.Row) (*model.Score, error) {
	s := &model.Score{}
	var results, userResults []byte
	err := row.Scan(&s.ID, &s.UserID, &s.ExerciseID, &s.Answer, &results, &userResults, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Results = json.RawMessage(results)
	s.UserResults = json.RawMessage(userResults)
	return s, nil
}

func collectScores(rows pgx.Rows) ([]model.Score, error) {
	defer rows.Close()

	scores := []model.Score{}
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *s)
	}
	return scores, rows.Err()
}

// nullableJSON stores a missing payload as SQL NULL instead of the JSON literal.
func nullableJSON(b json.RawMessage) any {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return []byte(b)
}

// Create inserts a new score.
func (r *ScoreRepository) Create(ctx context.Context, s *model.Score) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO scores (user_id, exercise_id, answer, results, user_results)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		s.UserID, s.ExerciseID, s.Answer, nullableJSON(s.Results), nullableJSON(s.UserResults),
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetByID retrieves a score by ID.
func (r *ScoreRepository) GetByID(ctx context.Context, id int) (*model.Score, error) {
	return scanScore(r.pool.QueryRow(ctx,
		`SELECT `+scoreColumns+` FROM scores WHERE id = $1`, id,
	))
}

// GetByIDForUser retrieves a score only if it belongs to userID.
func (r *ScoreRepository) GetByIDForUser(ctx context.Context, id, userID int) (*model.Score, error) {
	return scanScore(r.pool.QueryRow(ctx,
		`SELECT `+scoreColumns+` FROM scores WHERE id = $1 AND user_id = $2`, id, userID,
	))
}

// GetLatestForExercise retrieves the most recent score of a user on an exercise.
func (r *ScoreRepository) GetLatestForExercise(ctx context.Context, userID, exerciseID int) (*model.Score, error) {
	return scanScore(r.pool.QueryRow(ctx,
		`SELECT `+scoreColumns+` FROM scores
		 WHERE user_id = $1 AND exercise_id = $2
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID, exerciseID,
	))
}

// ListByUser retrieves every score of a user, newest first.
func (r *ScoreRepository) ListByUser(ctx context.Context, userID int) ([]model.Score, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+scoreColumns+` FROM scores WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return collectScores(rows)
}

// ListPaginated retrieves all scores with pagination, newest first.
func (r *ScoreRepository) ListPaginated(ctx context.Context, limit, offset int) ([]model.Score, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scores`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+scoreColumns+` FROM scores ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	scores, err := collectScores(rows)
	if err != nil {
		return nil, 0, err
	}
	return scores, total, nil
}

// ListRecent retrieves the latest submissions across all users.
func (r *ScoreRepository) ListRecent(ctx context.Context, limit int) ([]model.Score, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+scoreColumns+` FROM scores ORDER BY created_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	return collectScores(rows)
}

// Update writes answer, results and user_results back to an existing score.
func (r *ScoreRepository) Update(ctx context.Context, s *model.Score) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE scores SET answer = $1, results = $2, user_results = $3, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $4
		 RETURNING updated_at`,
		s.Answer, nullableJSON(s.Results), nullableJSON(s.UserResults), s.ID,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Delete removes a score and returns the deleted row.
func (r *ScoreRepository) Delete(ctx context.Context, id int) (*model.Score, error) {
	s, err := scanScore(r.pool.QueryRow(ctx,
		`DELETE FROM scores WHERE id = $1 RETURNING `+scoreColumns, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// ScoreTotals holds the counts that can be computed in SQL.
type ScoreTotals struct {
	Submissions       int
	DistinctUsers     int
	DistinctExercises int
}

// GetTotals retrieves platform-wide submission counts.
func (r *ScoreRepository) GetTotals(ctx context.Context) (ScoreTotals, error) {
	var t ScoreTotals
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT exercise_id) FROM scores`,
	).Scan(&t.Submissions, &t.DistinctUsers, &t.DistinctExercises)
	return t, err
}

// EachResults streams the raw results column of every score to fn. Results
// are stored in several historical shapes, so aggregation happens in Go.
func (r *ScoreRepository) EachResults(ctx context.Context, fn func(json.RawMessage) error) error {
	rows, err := r.pool.Query(ctx, `SELECT results FROM scores`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	return rows.Err()
}
