package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/temirov/gitplugins/internal/store"
)

// DefaultRetention is the number of entries kept after each append.
const DefaultRetention = 200

// ErrStoreNotConfigured indicates a nil journal store.
var ErrStoreNotConfigured = errors.New("journal store not configured")

// Store persists journal entries.
type Store interface {
	AppendJournalEntry(executionContext context.Context, entry store.JournalEntry, retain int) error
	ListJournalEntries(executionContext context.Context, limit int) ([]store.JournalEntry, error)
	ClearJournal(executionContext context.Context) error
}

// Entry is a debug log record as presented to administrators.
type Entry struct {
	ID      string         `json:"id"`
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Journal appends, lists, and clears debug log entries.
type Journal struct {
	store       Store
	retention   int
	idGenerator func() string
	clock       func() time.Time
}

// New constructs a Journal. A non-positive retention falls back to DefaultRetention.
func New(journalStore Store, retention int) (*Journal, error) {
	if journalStore == nil {
		return nil, ErrStoreNotConfigured
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Journal{store: journalStore, retention: retention, idGenerator: uuid.NewString, clock: time.Now}, nil
}

// Record appends a message with optional structured data.
func (journal *Journal) Record(executionContext context.Context, level string, message string, data map[string]any) error {
	return journal.append(executionContext, Entry{Time: journal.clock(), Level: level, Message: message, Data: data})
}

// Entries returns up to limit entries, newest first. A non-positive limit returns every retained entry.
func (journal *Journal) Entries(executionContext context.Context, limit int) ([]Entry, error) {
	storedEntries, listError := journal.store.ListJournalEntries(executionContext, limit)
	if listError != nil {
		return nil, listError
	}
	entries := make([]Entry, 0, len(storedEntries))
	for _, storedEntry := range storedEntries {
		entries = append(entries, Entry{
			ID:      storedEntry.ID,
			Time:    storedEntry.RecordedAt,
			Level:   storedEntry.Level,
			Message: storedEntry.Message,
			Data:    storedEntry.Data,
		})
	}
	return entries, nil
}

// Clear removes every entry.
func (journal *Journal) Clear(executionContext context.Context) error {
	return journal.store.ClearJournal(executionContext)
}

func (journal *Journal) append(executionContext context.Context, entry Entry) error {
	if len(strings.TrimSpace(entry.ID)) == 0 {
		entry.ID = journal.idGenerator()
	}
	return journal.store.AppendJournalEntry(executionContext, store.JournalEntry{
		ID:         entry.ID,
		RecordedAt: entry.Time,
		Level:      entry.Level,
		Message:    entry.Message,
		Data:       entry.Data,
	}, journal.retention)
}
