package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cstats-bot/internal/domain"

	"github.com/rs/zerolog"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSQLiteRepository(sqlDB *sql.DB, logger zerolog.Logger) *SQLiteRepository {
	return &SQLiteRepository{db: sqlDB, logger: logger}
}

func (r *SQLiteRepository) Get(ctx context.Context, chatUserID string) (*domain.PlayerRecord, error) {
	rec := domain.PlayerRecord{ChatUserID: chatUserID}
	err := r.db.QueryRowContext(ctx,
		`SELECT player_name, domain, uuid FROM bindings WHERE chat_user_id = ?`,
		chatUserID,
	).Scan(&rec.PlayerName, &rec.Domain, &rec.InternalUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBindingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get binding %s: %w", chatUserID, err)
	}
	return &rec, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, record domain.PlayerRecord) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bindings (chat_user_id, player_name, domain, uuid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_user_id) DO UPDATE SET
			player_name = excluded.player_name,
			domain      = excluded.domain,
			uuid        = excluded.uuid,
			updated_at  = excluded.updated_at`,
		record.ChatUserID, record.PlayerName, record.Domain, record.InternalUserID, now, now,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("chat_user_id", record.ChatUserID).Msg("failed to upsert binding")
		return fmt.Errorf("failed to upsert binding %s: %w", record.ChatUserID, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]domain.PlayerRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT chat_user_id, player_name, domain, uuid FROM bindings ORDER BY chat_user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bindings: %w", err)
	}
	defer rows.Close()

	var records []domain.PlayerRecord
	for rows.Next() {
		var rec domain.PlayerRecord
		if err := rows.Scan(&rec.ChatUserID, &rec.PlayerName, &rec.Domain, &rec.InternalUserID); err != nil {
			return nil, fmt.Errorf("failed to scan binding: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
