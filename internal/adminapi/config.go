package adminapi

import (
	"errors"
	"strings"
	"time"
)

const (
	// DefaultListenAddress is used when the configuration leaves the address empty.
	DefaultListenAddress = "127.0.0.1:8080"
	// DefaultNonceLifetime matches a full nonce validity window of two ticks.
	DefaultNonceLifetime = 24 * time.Hour

	nonceSecretMissingMessageConstant    = "admin API nonce secret is required"
	administratorsMissingMessageConstant = "admin API requires at least one administrator"
	administratorTokenMessageConstant    = "administrator token is required"
)

// Capability names a permission an administrator may hold.
type Capability string

// Known capabilities.
const (
	CapabilityInstall    Capability = "install_extensions"
	CapabilityActivate   Capability = "activate_extensions"
	CapabilityDeactivate Capability = "deactivate_extensions"
	CapabilityDelete     Capability = "delete_extensions"
	CapabilityUpdate     Capability = "update_extensions"
	CapabilitySettings   Capability = "manage_settings"
	CapabilityAll        Capability = "*"
)

// ErrNonceSecretRequired indicates an empty nonce secret.
var ErrNonceSecretRequired = errors.New(nonceSecretMissingMessageConstant)

// ErrAdministratorsRequired indicates that no administrator could authenticate.
var ErrAdministratorsRequired = errors.New(administratorsMissingMessageConstant)

// ErrAdministratorTokenRequired indicates an administrator entry without a token.
var ErrAdministratorTokenRequired = errors.New(administratorTokenMessageConstant)

// Administrator is a principal allowed to call the admin API.
type Administrator struct {
	Name         string       `mapstructure:"name"`
	Token        string       `mapstructure:"token"`
	Capabilities []Capability `mapstructure:"capabilities"`
}

// Can reports whether the administrator holds the capability.
func (administrator Administrator) Can(capability Capability) bool {
	for _, held := range administrator.Capabilities {
		if held == CapabilityAll || held == capability {
			return true
		}
	}
	return false
}

// Config describes the admin HTTP server.
type Config struct {
	ListenAddress  string          `mapstructure:"listen_address"`
	NonceSecret    string          `mapstructure:"nonce_secret"`
	NonceLifetime  time.Duration   `mapstructure:"nonce_lifetime"`
	Administrators []Administrator `mapstructure:"administrators"`
}

// Sanitize fills defaults and trims text values.
func (configuration Config) Sanitize() Config {
	sanitized := Config{
		ListenAddress: strings.TrimSpace(configuration.ListenAddress),
		NonceSecret:   strings.TrimSpace(configuration.NonceSecret),
		NonceLifetime: configuration.NonceLifetime,
	}
	if len(sanitized.ListenAddress) == 0 {
		sanitized.ListenAddress = DefaultListenAddress
	}
	if sanitized.NonceLifetime <= 0 {
		sanitized.NonceLifetime = DefaultNonceLifetime
	}
	for _, administrator := range configuration.Administrators {
		sanitized.Administrators = append(sanitized.Administrators, Administrator{
			Name:         strings.TrimSpace(administrator.Name),
			Token:        strings.TrimSpace(administrator.Token),
			Capabilities: administrator.Capabilities,
		})
	}
	return sanitized
}

// Validate reports configuration that cannot serve requests.
func (configuration Config) Validate() error {
	if len(configuration.NonceSecret) == 0 {
		return ErrNonceSecretRequired
	}
	if len(configuration.Administrators) == 0 {
		return ErrAdministratorsRequired
	}
	for _, administrator := range configuration.Administrators {
		if len(administrator.Token) == 0 {
			return ErrAdministratorTokenRequired
		}
	}
	return nil
}
