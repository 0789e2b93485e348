package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
)

// GetSetting decodes the stored JSON value of key into target.
func (database *Database) GetSetting(executionContext context.Context, key string, target any) error {
	var encodedValue string
	scanError := database.connection.QueryRowContext(executionContext, database.rebind(
		"SELECT setting_value FROM settings WHERE setting_key = ?"), strings.TrimSpace(key)).Scan(&encodedValue)
	if errors.Is(scanError, sql.ErrNoRows) {
		return ErrSettingNotFound
	}
	if scanError != nil {
		return wrapOperation("get setting", scanError)
	}
	if decodeError := json.Unmarshal([]byte(encodedValue), target); decodeError != nil {
		return wrapOperation("decode setting "+key, decodeError)
	}
	return nil
}

// SetSetting stores value under key, replacing any previous value.
func (database *Database) SetSetting(executionContext context.Context, key string, value any) error {
	encodedValue, encodeError := json.Marshal(value)
	if encodeError != nil {
		return wrapOperation("encode setting "+key, encodeError)
	}
	_, upsertError := database.connection.ExecContext(executionContext, database.rebind(
		"INSERT INTO settings (setting_key, setting_value, updated_at) VALUES (?, ?, ?) "+
			"ON CONFLICT (setting_key) DO UPDATE SET setting_value = excluded.setting_value, updated_at = excluded.updated_at"),
		strings.TrimSpace(key), string(encodedValue), formatTimestamp(database.now()))
	return wrapOperation("set setting", upsertError)
}

// DeleteSetting removes key. Missing keys are ignored.
func (database *Database) DeleteSetting(executionContext context.Context, key string) error {
	_, deleteError := database.connection.ExecContext(executionContext, database.rebind(
		"DELETE FROM settings WHERE setting_key = ?"), strings.TrimSpace(key))
	return wrapOperation("delete setting", deleteError)
}

// AllSettings returns every stored setting as raw JSON keyed by setting name.
func (database *Database) AllSettings(executionContext context.Context) (map[string]json.RawMessage, error) {
	rows, queryError := database.connection.QueryContext(executionContext, "SELECT setting_key, setting_value FROM settings ORDER BY setting_key")
	if queryError != nil {
		return nil, wrapOperation("list settings", queryError)
	}
	defer rows.Close()

	settings := map[string]json.RawMessage{}
	for rows.Next() {
		var key, encodedValue string
		if scanError := rows.Scan(&key, &encodedValue); scanError != nil {
			return nil, wrapOperation("list settings", scanError)
		}
		settings[key] = json.RawMessage(encodedValue)
	}
	if iterationError := rows.Err(); iterationError != nil {
		return nil, wrapOperation("list settings", iterationError)
	}
	return settings, nil
}
