package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/amansour/praxis42/internal/apperror"
	"github.com/amansour/praxis42/internal/model"
	"github.com/amansour/praxis42/internal/repository"
)

// VoteStore implements repository.VoteRepository.
type VoteStore struct {
	conn *sql.DB
}

// Votes returns the vote repository backed by this database.
func (db *DB) Votes() *VoteStore {
	return &VoteStore{conn: db.conn}
}

var _ repository.VoteRepository = (*VoteStore)(nil)

// Get returns the user's vote on a target, or (nil, nil) when no row exists.
// Absence is the NoVote state of the transition table, not an error.
func (s *VoteStore) Get(ctx context.Context, userID, targetType, targetID string) (*model.Vote, error) {
	var v model.Vote
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, target_type, target_id, value, created_at
		 FROM votes WHERE user_id = ? AND target_type = ? AND target_id = ?`,
		userID, targetType, targetID,
	).Scan(&v.ID, &v.UserID, &v.TargetType, &v.TargetID, &v.Value, &v.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: getting vote for %s/%s: %w", targetType, targetID, err)
	}
	return &v, nil
}

func (s *VoteStore) Create(ctx context.Context, vote *model.Vote) error {
	vote.ID = xid.New().String()
	vote.CreatedAt = time.Now().UTC()
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO votes (id, user_id, target_type, target_id, value, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		vote.ID, vote.UserID, vote.TargetType, vote.TargetID, vote.Value, vote.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting vote on %s/%s: %w", vote.TargetType, vote.TargetID, err)
	}
	return nil
}

func (s *VoteStore) UpdateValue(ctx context.Context, id string, value int) error {
	res, err := s.conn.ExecContext(ctx, `UPDATE votes SET value = ? WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("sqlite: updating vote %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for vote update: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("vote", id)
	}
	return nil
}

func (s *VoteStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM votes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting vote %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected for vote delete: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("vote", id)
	}
	return nil
}

// Score recomputes (sum, count) from the authoritative row set. A target with
// one +1 and one -1 scores 0 with a count of 2.
func (s *VoteStore) Score(ctx context.Context, targetType, targetID string) (int, int, error) {
	var score, count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(value), 0), COUNT(*)
		 FROM votes WHERE target_type = ? AND target_id = ?`,
		targetType, targetID,
	).Scan(&score, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: scoring %s/%s: %w", targetType, targetID, err)
	}
	return score, count, nil
}

// ForTargets returns every vote on the given targets, all users included.
func (s *VoteStore) ForTargets(ctx context.Context, targetType string, targetIDs []string) ([]model.Vote, error) {
	if len(targetIDs) == 0 {
		return []model.Vote{}, nil
	}

	query := `SELECT id, user_id, target_type, target_id, value, created_at
	          FROM votes WHERE target_type = ? AND target_id IN (` + placeholders(len(targetIDs)) + `)`
	args := make([]any, 0, len(targetIDs)+1)
	args = append(args, targetType)
	for _, id := range targetIDs {
		args = append(args, id)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing votes for %s targets: %w", targetType, err)
	}
	defer rows.Close()

	votes := []model.Vote{}
	for rows.Next() {
		var v model.Vote
		if err := rows.Scan(&v.ID, &v.UserID, &v.TargetType, &v.TargetID, &v.Value, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vote row: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating vote rows: %w", err)
	}
	return votes, nil
}

// UserVotes returns one user's vote values keyed by target id. Targets the
// user hasn't voted on are omitted from the map.
func (s *VoteStore) UserVotes(ctx context.Context, userID, targetType string, targetIDs []string) (map[string]int, error) {
	result := map[string]int{}
	if len(targetIDs) == 0 {
		return result, nil
	}

	query := `SELECT target_id, value FROM votes
	          WHERE user_id = ? AND target_type = ? AND target_id IN (` + placeholders(len(targetIDs)) + `)`
	args := make([]any, 0, len(targetIDs)+2)
	args = append(args, userID, targetType)
	for _, id := range targetIDs {
		args = append(args, id)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing user votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var value int
		if err := rows.Scan(&id, &value); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user vote row: %w", err)
		}
		result[id] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user vote rows: %w", err)
	}
	return result, nil
}

// placeholders returns "?, ?, ..." with n markers for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
