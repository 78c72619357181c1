package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Preference is one stored value. Values are opaque strings; booleans are
// stored as "true"/"false".
type Preference struct {
	ConnectorKey string    `json:"connectorKey"`
	Name         string    `json:"name"`
	Value        string    `json:"value"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type PreferenceRepository struct {
	db *sql.DB
}

func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) GetString(ctx context.Context, connectorKey, name string) (string, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT value
		FROM connector_preferences
		WHERE connector_key = ? AND name = ?
	`, normalizeKey(connectorKey), strings.TrimSpace(name))

	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get preference %s.%s: %w", connectorKey, name, err)
	}
	return value, true, nil
}

func (r *PreferenceRepository) SetString(ctx context.Context, connectorKey, name, value string) error {
	connectorKey = normalizeKey(connectorKey)
	name = strings.TrimSpace(name)
	if connectorKey == "" || name == "" {
		return fmt.Errorf("connector key and preference name are required")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO connector_preferences (connector_key, name, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(connector_key, name) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, connectorKey, name, value)
	if err != nil {
		return fmt.Errorf("set preference %s.%s: %w", connectorKey, name, err)
	}
	return nil
}

// GetBool reports ok=false for a missing value. A stored value that is not a
// boolean is an error.
func (r *PreferenceRepository) GetBool(ctx context.Context, connectorKey, name string) (bool, bool, error) {
	raw, ok, err := r.GetString(ctx, connectorKey, name)
	if err != nil || !ok {
		return false, false, err
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, false, fmt.Errorf("preference %s.%s is not a boolean: %w", connectorKey, name, err)
	}
	return value, true, nil
}

func (r *PreferenceRepository) SetBool(ctx context.Context, connectorKey, name string, value bool) error {
	return r.SetString(ctx, connectorKey, name, strconv.FormatBool(value))
}

func (r *PreferenceRepository) List(ctx context.Context, connectorKey string) ([]Preference, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT connector_key, name, value, updated_at
		FROM connector_preferences
		WHERE connector_key = ?
		ORDER BY name ASC
	`, normalizeKey(connectorKey))
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	items := make([]Preference, 0)
	for rows.Next() {
		var item Preference
		if err := rows.Scan(&item.ConnectorKey, &item.Name, &item.Value, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}

	return items, nil
}

// Delete removes the named preferences of a connector, or all of them when no
// name is given. It returns how many rows went away.
func (r *PreferenceRepository) Delete(ctx context.Context, connectorKey string, names ...string) (int64, error) {
	query := `DELETE FROM connector_preferences WHERE connector_key = ?`
	args := []any{normalizeKey(connectorKey)}
	if len(names) > 0 {
		query += ` AND name IN (` + sqlPlaceholders(len(names)) + `)`
		for _, name := range names {
			args = append(args, strings.TrimSpace(name))
		}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete preferences: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete preferences rows affected: %w", err)
	}
	return affected, nil
}

func normalizeKey(connectorKey string) string {
	return strings.ToLower(strings.TrimSpace(connectorKey))
}

func sqlPlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}
