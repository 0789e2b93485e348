package store

import (
	"context"
	"encoding/json"
	"time"
)

// JournalEntry is a persisted debug log record.
type JournalEntry struct {
	ID         string
	RecordedAt time.Time
	Level      string
	Message    string
	Data       map[string]any
}

// AppendJournalEntry stores entry and keeps only the newest retain entries.
func (database *Database) AppendJournalEntry(executionContext context.Context, entry JournalEntry, retain int) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = database.now()
	}
	data := entry.Data
	if data == nil {
		data = map[string]any{}
	}
	encodedData, encodeError := json.Marshal(data)
	if encodeError != nil {
		return wrapOperation("encode journal entry", encodeError)
	}

	if _, insertError := database.connection.ExecContext(executionContext, database.rebind(
		"INSERT INTO debug_log (entry_id, recorded_at, level, message, data) VALUES (?, ?, ?, ?, ?)"),
		entry.ID, formatTimestamp(entry.RecordedAt), entry.Level, entry.Message, string(encodedData)); insertError != nil {
		return wrapOperation("append journal entry", insertError)
	}

	if retain <= 0 {
		return nil
	}
	_, trimError := database.connection.ExecContext(executionContext, database.rebind(
		"DELETE FROM debug_log WHERE entry_seq NOT IN (SELECT entry_seq FROM debug_log ORDER BY entry_seq DESC LIMIT ?)"), retain)
	return wrapOperation("trim journal", trimError)
}

// ListJournalEntries returns up to limit entries, newest first. A non-positive limit returns everything.
func (database *Database) ListJournalEntries(executionContext context.Context, limit int) ([]JournalEntry, error) {
	query := "SELECT entry_id, recorded_at, level, message, data FROM debug_log ORDER BY entry_seq DESC"
	arguments := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		arguments = append(arguments, limit)
	}
	rows, queryError := database.connection.QueryContext(executionContext, database.rebind(query), arguments...)
	if queryError != nil {
		return nil, wrapOperation("list journal", queryError)
	}
	defer rows.Close()

	entries := []JournalEntry{}
	for rows.Next() {
		var entry JournalEntry
		var recordedAt, encodedData string
		if scanError := rows.Scan(&entry.ID, &recordedAt, &entry.Level, &entry.Message, &encodedData); scanError != nil {
			return nil, wrapOperation("list journal", scanError)
		}
		entry.RecordedAt = parseTimestamp(recordedAt)
		entry.Data = map[string]any{}
		if decodeError := json.Unmarshal([]byte(encodedData), &entry.Data); decodeError != nil {
			return nil, wrapOperation("decode journal entry", decodeError)
		}
		entries = append(entries, entry)
	}
	if iterationError := rows.Err(); iterationError != nil {
		return nil, wrapOperation("list journal", iterationError)
	}
	return entries, nil
}

// ClearJournal removes every journal entry.
func (database *Database) ClearJournal(executionContext context.Context) error {
	_, deleteError := database.connection.ExecContext(executionContext, "DELETE FROM debug_log")
	return wrapOperation("clear journal", deleteError)
}
