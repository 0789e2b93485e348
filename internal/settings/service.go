// Package settings exposes the typed administrator settings stored in the key/value store.
package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/temirov/gitplugins/internal/store"
)

// Setting keys persisted in the store.
const (
	KeyGitHubUsername       = "github_username"
	KeyGitHubToken          = "github_token"
	KeyCheckUpdatesInterval = "check_updates_interval"
)

// UpdateInterval is the cadence of scheduled update checks.
type UpdateInterval string

// Supported update check cadences.
const (
	IntervalHourly     UpdateInterval = "hourly"
	IntervalTwiceDaily UpdateInterval = "twicedaily"
	IntervalDaily      UpdateInterval = "daily"
	IntervalWeekly     UpdateInterval = "weekly"
)

// DefaultUpdateInterval applies when nothing valid is stored.
const DefaultUpdateInterval = IntervalTwiceDaily

var intervalDurations = map[UpdateInterval]time.Duration{
	IntervalHourly:     time.Hour,
	IntervalTwiceDaily: 12 * time.Hour,
	IntervalDaily:      24 * time.Hour,
	IntervalWeekly:     7 * 24 * time.Hour,
}

// ErrStoreNotConfigured indicates a nil settings store.
var ErrStoreNotConfigured = errors.New("settings store not configured")

// SanitizeInterval maps unknown values to the default cadence.
func SanitizeInterval(value string) UpdateInterval {
	candidate := UpdateInterval(strings.ToLower(strings.TrimSpace(value)))
	if _, known := intervalDurations[candidate]; known {
		return candidate
	}
	return DefaultUpdateInterval
}

// Duration converts the cadence into a scheduler period.
func (interval UpdateInterval) Duration() time.Duration {
	return intervalDurations[SanitizeInterval(string(interval))]
}

// Intervals lists every supported cadence, shortest first.
func Intervals() []UpdateInterval {
	return []UpdateInterval{IntervalHourly, IntervalTwiceDaily, IntervalDaily, IntervalWeekly}
}

// Values is the full settings form.
type Values struct {
	GitHubUsername       string         `json:"github_username"`
	GitHubToken          string         `json:"github_token"`
	CheckUpdatesInterval UpdateInterval `json:"check_updates_interval"`
}

// Sanitize trims text values and normalizes the cadence.
func (values Values) Sanitize() Values {
	return Values{
		GitHubUsername:       strings.TrimSpace(values.GitHubUsername),
		GitHubToken:          strings.TrimSpace(values.GitHubToken),
		CheckUpdatesInterval: SanitizeInterval(string(values.CheckUpdatesInterval)),
	}
}

// KeyValueStore persists JSON-encoded settings.
type KeyValueStore interface {
	GetSetting(executionContext context.Context, key string, target any) error
	SetSetting(executionContext context.Context, key string, value any) error
}

// Service reads and writes administrator settings.
type Service struct {
	store KeyValueStore
}

// NewService constructs a settings service.
func NewService(keyValueStore KeyValueStore) (*Service, error) {
	if keyValueStore == nil {
		return nil, ErrStoreNotConfigured
	}
	return &Service{store: keyValueStore}, nil
}

// Load returns the stored settings with defaults applied.
func (service *Service) Load(executionContext context.Context) (Values, error) {
	var values Values
	var interval string
	for _, binding := range []struct {
		key    string
		target *string
	}{
		{key: KeyGitHubUsername, target: &values.GitHubUsername},
		{key: KeyGitHubToken, target: &values.GitHubToken},
		{key: KeyCheckUpdatesInterval, target: &interval},
	} {
		if readError := service.readString(executionContext, binding.key, binding.target); readError != nil {
			return Values{}, readError
		}
	}
	values.CheckUpdatesInterval = UpdateInterval(interval)
	return values.Sanitize(), nil
}

// Save sanitizes and persists every setting.
func (service *Service) Save(executionContext context.Context, values Values) (Values, error) {
	sanitized := values.Sanitize()
	for key, value := range map[string]string{
		KeyGitHubUsername:       sanitized.GitHubUsername,
		KeyGitHubToken:          sanitized.GitHubToken,
		KeyCheckUpdatesInterval: string(sanitized.CheckUpdatesInterval),
	} {
		if writeError := service.store.SetSetting(executionContext, key, value); writeError != nil {
			return Values{}, writeError
		}
	}
	return sanitized, nil
}

// GitHubToken returns the stored API token, empty when none is configured.
func (service *Service) GitHubToken(executionContext context.Context) (string, error) {
	var token string
	if readError := service.readString(executionContext, KeyGitHubToken, &token); readError != nil {
		return "", readError
	}
	return strings.TrimSpace(token), nil
}

// UpdateInterval returns the sanitized update check cadence.
func (service *Service) UpdateInterval(executionContext context.Context) (UpdateInterval, error) {
	var interval string
	if readError := service.readString(executionContext, KeyCheckUpdatesInterval, &interval); readError != nil {
		return "", readError
	}
	return SanitizeInterval(interval), nil
}

func (service *Service) readString(executionContext context.Context, key string, target *string) error {
	readError := service.store.GetSetting(executionContext, key, target)
	if errors.Is(readError, store.ErrSettingNotFound) {
		*target = ""
		return nil
	}
	return readError
}
