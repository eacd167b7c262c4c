// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ferrywire/ferrywire/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeadLetterRepository persists dead-lettered events so they survive
// process restarts and can be inspected or replayed out of band.
type DeadLetterRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDeadLetterRepository(pool *pgxpool.Pool, logger *slog.Logger) *DeadLetterRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &DeadLetterRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *DeadLetterRepository) Record(ctx context.Context, letter domain.DeadLetter) error {
	eventJSON, err := json.Marshal(letter.Event)
	if err != nil {
		return fmt.Errorf("marshal dead-lettered event: %w", err)
	}
	attemptsJSON, err := json.Marshal(letter.Attempts)
	if err != nil {
		return fmt.Errorf("marshal delivery attempts: %w", err)
	}

	if _, err := r.pool.Exec(ctx, `
		INSERT INTO dead_letters (event_id, seq, kind, reason, event, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		letter.Event.ID,
		letter.Event.Seq,
		string(letter.Event.Kind),
		letter.Reason,
		eventJSON,
		attemptsJSON,
		letter.CreatedAt,
	); err != nil {
		r.logger.Error("record dead letter failed",
			"event_id", letter.Event.ID,
			"seq", letter.Event.Seq,
			"reason", letter.Reason,
			"error", err,
		)
		return err
	}

	return nil
}

// ListRecent returns the newest dead letters first, capped at limit.
func (r *DeadLetterRepository) ListRecent(ctx context.Context, limit int) ([]domain.DeadLetter, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT event, attempts, reason, created_at
		FROM dead_letters
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		r.logger.Error("list dead letters query failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.DeadLetter, 0, 8)
	for rows.Next() {
		var (
			letter       domain.DeadLetter
			eventJSON    []byte
			attemptsJSON []byte
		)
		if err := rows.Scan(&eventJSON, &attemptsJSON, &letter.Reason, &letter.CreatedAt); err != nil {
			r.logger.Error("scan dead letter row failed", "error", err)
			return nil, err
		}
		if err := json.Unmarshal(eventJSON, &letter.Event); err != nil {
			return nil, fmt.Errorf("decode dead-lettered event: %w", err)
		}
		if err := json.Unmarshal(attemptsJSON, &letter.Attempts); err != nil {
			return nil, fmt.Errorf("decode delivery attempts: %w", err)
		}
		out = append(out, letter)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("dead letter rows iteration failed", "error", err)
		return nil, err
	}

	return out, nil
}
