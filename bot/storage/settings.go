// Package storage persists per-user preferences in Postgres.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/dsprep/prepbot/bot/conversation"
	"github.com/dsprep/prepbot/core/logger"
)

// SettingsStore reads and writes user preferences. A nil store is valid
// and makes every operation a no-op, which covers deployments without a
// database.
type SettingsStore struct {
	db *sqlx.DB
}

// NewSettingsStore wraps db; pass nil to disable persistence.
func NewSettingsStore(db *sqlx.DB) *SettingsStore {
	if db == nil {
		return nil
	}
	return &SettingsStore{db: db}
}

type settingsRow struct {
	UserID     int64  `db:"user_id"`
	PrepLevel  string `db:"prep_level"`
	Difficulty string `db:"difficulty"`
}

// Load returns the stored settings for userID. The second result is false
// when nothing is stored or the store is disabled.
func (s *SettingsStore) Load(ctx context.Context, userID int64) (conversation.Settings, bool, error) {
	if s == nil {
		return conversation.Settings{}, false, nil
	}

	var row settingsRow
	err := s.db.GetContext(ctx, &row,
		`SELECT user_id, prep_level, difficulty FROM user_settings WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return conversation.Settings{}, false, nil
	}
	if err != nil {
		return conversation.Settings{}, false, fmt.Errorf("load settings: %w", err)
	}

	settings := conversation.Settings{
		Level:      conversation.Level(row.PrepLevel),
		Difficulty: conversation.Difficulty(row.Difficulty),
	}
	logger.Debug(ctx, "db", "settings_loaded",
		slog.Int64("user_id", userID),
		slog.String("level", row.PrepLevel),
		slog.String("difficulty", row.Difficulty))
	return settings, true, nil
}

// Save upserts the settings for userID.
func (s *SettingsStore) Save(ctx context.Context, userID int64, settings conversation.Settings) error {
	if s == nil {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, prep_level, difficulty, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id) DO UPDATE
		 SET prep_level = EXCLUDED.prep_level,
		     difficulty = EXCLUDED.difficulty,
		     updated_at = now()`,
		userID, string(settings.Level), string(settings.Difficulty))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	logger.Debug(ctx, "db", "settings_saved",
		slog.Int64("user_id", userID),
		slog.String("level", string(settings.Level)),
		slog.String("difficulty", string(settings.Difficulty)))
	return nil
}
