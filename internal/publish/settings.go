// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/mirava/internal/platform/database/schema"
)

// # Publication Settings
//
// The optimizer tunables live in a mutable settings record so moderators
// can adjust quality targets without a deploy. The pipeline loads the
// record once per invocation and treats it as read-only from then on —
// a half-applied settings change can never split one chapter's pages
// across two quality profiles.

// settingsKey is the system.setting row holding the optimizer tunables.
const settingsKey = "publication.optimizer"

// SettingsSource supplies the optimizer settings for one publish attempt.
type SettingsSource interface {
	// Load returns the current settings. Implementations fall back to
	// their seeded defaults when no stored record exists.
	Load(context context.Context) (Settings, error)
}

// StaticSettings is a [SettingsSource] returning a fixed value. Used in
// tests and as a fallback wiring.
type StaticSettings Settings

// Load implements [SettingsSource].
func (s StaticSettings) Load(context.Context) (Settings, error) {
	return Settings(s), nil
}

// settingsRepository reads the settings record from system.setting.
type settingsRepository struct {
	pool     *pgxpool.Pool
	defaults Settings
}

// NewSettingsRepository constructs a [SettingsSource] over system.setting.
// The defaults (seeded from environment configuration) apply when the row
// is absent or fields are unset.
func NewSettingsRepository(pool *pgxpool.Pool, defaults Settings) SettingsSource {
	return &settingsRepository{pool: pool, defaults: defaults}
}

// Load fetches and decodes the settings row, merging with defaults.
func (repository *settingsRepository) Load(context context.Context) (Settings, error) {

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		schema.SystemSetting.Value, schema.SystemSetting.Table, schema.SystemSetting.Key)

	var raw []byte
	err := repository.pool.QueryRow(context, query, settingsKey).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.defaults, nil
		}
		return Settings{}, fmt.Errorf("postgres: failed to load publication settings: %w", err)
	}

	// Stored values override defaults field-wise; zero fields keep the
	// seeded value so a partial record stays sane.
	settings := repository.defaults
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("postgres: malformed publication settings record: %w", err)
	}
	settings = mergeDefaults(settings, repository.defaults)

	return settings, nil
}

// mergeDefaults replaces non-positive fields with their default values.
func mergeDefaults(settings, defaults Settings) Settings {
	if settings.UploadQuality <= 0 {
		settings.UploadQuality = defaults.UploadQuality
	}
	if settings.PublishQuality <= 0 {
		settings.PublishQuality = defaults.PublishQuality
	}
	if settings.MaxWidth <= 0 {
		settings.MaxWidth = defaults.MaxWidth
	}
	if settings.MaxHeight <= 0 {
		settings.MaxHeight = defaults.MaxHeight
	}
	if settings.RecompressThreshold <= 0 {
		settings.RecompressThreshold = defaults.RecompressThreshold
	}
	if settings.Effort <= 0 {
		settings.Effort = defaults.Effort
	}
	return settings
}
