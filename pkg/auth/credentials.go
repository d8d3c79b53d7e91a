package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"socialfetch/pkg/config"
)

// Credential is one stored API secret, addressed by service and name
type Credential struct {
	Service      string    `json:"service"`
	Name         string    `json:"name"`
	Secret       string    `json:"secret"`
	LastModified time.Time `json:"last_modified"`
}

// Key returns the storage key "service/name"
func (c *Credential) Key() string {
	return key(c.Service, c.Name)
}

func key(service, name string) string {
	return service + "/" + name
}

// Field describes a secret a service needs
type Field struct {
	Name   string
	EnvVar string
	Prompt string
}

// Services lists the secrets each service can store
var Services = map[string][]Field{
	"x": {
		{Name: "bearer_token", EnvVar: "X_BEARER_TOKEN", Prompt: "X API bearer token"},
	},
	"serp": {
		{Name: "api_key", EnvVar: "GOOGLE_SERP_API_KEY", Prompt: "SERP proxy API key"},
		{Name: "bearer_token", EnvVar: "GOOGLE_SERP_BEARER_TOKEN", Prompt: "SERP proxy bearer token"},
	},
	"browserbase": {
		{Name: "api_key", EnvVar: "BROWSERBASE_API_KEY", Prompt: "Browserbase API key"},
	},
	"linkedin": {
		{Name: "password", EnvVar: "LINKEDIN_PASSWORD", Prompt: "LinkedIn password"},
		{Name: "totp_secret", EnvVar: "LINKEDIN_TOTP_SECRET", Prompt: "LinkedIn TOTP secret (optional)"},
	},
}

// ServiceNames returns the known services in sorted order
func ServiceNames() []string {
	names := make([]string, 0, len(Services))
	for name := range Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupField returns the field definition for service/name
func LookupField(service, name string) (Field, error) {
	fields, ok := Services[service]
	if !ok {
		return Field{}, fmt.Errorf("%w: unknown service %q", ErrInvalidCredentials, service)
	}
	for _, f := range fields {
		if f.Name == name {
			return f, nil
		}
	}
	return Field{}, fmt.Errorf("%w: unknown secret %q for %s", ErrInvalidCredentials, name, service)
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves a credential
	Store(cred *Credential) error

	// Retrieve gets the credential for service/name
	Retrieve(service, name string) (*Credential, error)

	// List returns all stored credentials
	List() ([]*Credential, error)

	// Delete removes the credential for service/name
	Delete(service, name string) error

	// Exists checks if a credential exists
	Exists(service, name string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager: system keychain first, then the
// encrypted file, then the environment
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a Manager over explicit stores, in lookup order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the credential in the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if cred == nil {
		return ErrInvalidCredentials
	}
	if _, err := LookupField(cred.Service, cred.Name); err != nil {
		return err
	}
	if cred.Secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidCredentials)
	}

	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(cred)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the credential from the first store that has it
func (m *Manager) Retrieve(service, name string) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(service, name); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, key(service, name))
}

// List returns all credentials from all stores, newest copy per key
func (m *Manager) List() ([]*Credential, error) {
	byKey := make(map[string]*Credential)

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			if existing, ok := byKey[cred.Key()]; !ok || cred.LastModified.After(existing.LastModified) {
				byKey[cred.Key()] = cred
			}
		}
	}

	result := make([]*Credential, 0, len(byKey))
	for _, cred := range byKey {
		result = append(result, cred)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key() < result[j].Key() })

	return result, nil
}

// Delete removes the credential from every store
func (m *Manager) Delete(service, name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(service, name); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound) && !errors.Is(lastErr, ErrStoreUnavailable) {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrCredentialsNotFound, key(service, name))
	}

	return nil
}

// DeleteService removes every secret of a service
func (m *Manager) DeleteService(service string) (int, error) {
	fields, ok := Services[service]
	if !ok {
		return 0, fmt.Errorf("%w: unknown service %q", ErrInvalidCredentials, service)
	}
	removed := 0
	for _, f := range fields {
		if err := m.Delete(service, f.Name); err == nil {
			removed++
		}
	}
	return removed, nil
}

// ApplyTo fills secrets the configuration does not already carry. Flags,
// env and the config file have been merged by then, so the store is the
// last fallback.
func (m *Manager) ApplyTo(cfg *config.Config) {
	fill := func(dst *string, service, name string) {
		if *dst != "" {
			return
		}
		if cred, err := m.Retrieve(service, name); err == nil {
			*dst = cred.Secret
		}
	}

	fill(&cfg.X.BearerToken, "x", "bearer_token")
	fill(&cfg.SERP.APIKey, "serp", "api_key")
	fill(&cfg.SERP.BearerToken, "serp", "bearer_token")
	fill(&cfg.Browserbase.APIKey, "browserbase", "api_key")
	fill(&cfg.LinkedIn.Password, "linkedin", "password")
	fill(&cfg.LinkedIn.TOTPSecret, "linkedin", "totp_secret")
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "socialfetch")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "socialfetch")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "socialfetch")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "socialfetch")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize returns a copy with the secret masked
func Sanitize(cred *Credential) *Credential {
	if cred == nil {
		return nil
	}
	cp := *cred
	cp.Secret = config.MaskSecret(cred.Secret)
	return &cp
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
