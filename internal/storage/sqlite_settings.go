package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nulltasker/nulltasker/internal/models"
)

type sqliteSettingsRepo struct {
	db *sql.DB
}

func (r *sqliteSettingsRepo) Get(ctx context.Context) (*models.AppSettings, error) {
	var data string
	err := r.db.QueryRowContext(ctx, "SELECT data FROM app_settings WHERE id = 1").Scan(&data)
	if err == sql.ErrNoRows {
		return models.DefaultAppSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	settings := &models.AppSettings{}
	if err := json.Unmarshal([]byte(data), settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

func (r *sqliteSettingsRepo) Update(ctx context.Context, settings *models.AppSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	query := `
		INSERT INTO app_settings (id, data, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, string(data), time.Now()); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}
