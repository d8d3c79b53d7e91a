package auth

import (
	"os"
	"strings"
	"time"
)

// EnvironmentStore exposes secrets already exported in the environment.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(*Credential) error {
	return ErrStoreUnavailable
}

// Retrieve reads the env var mapped to service/name
func (e *EnvironmentStore) Retrieve(service, name string) (*Credential, error) {
	f, err := LookupField(service, name)
	if err != nil {
		return nil, err
	}

	secret := strings.TrimSpace(os.Getenv(f.EnvVar))
	if secret == "" {
		return nil, ErrCredentialsNotFound
	}

	return &Credential{
		Service:      service,
		Name:         name,
		Secret:       secret,
		LastModified: time.Time{},
	}, nil
}

// List returns every mapped secret that is set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	var creds []*Credential
	for _, service := range ServiceNames() {
		for _, f := range Services[service] {
			if cred, err := e.Retrieve(service, f.Name); err == nil {
				creds = append(creds, cred)
			}
		}
	}
	return creds, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(string, string) error {
	return ErrStoreUnavailable
}

// Exists checks if the mapped env var is set
func (e *EnvironmentStore) Exists(service, name string) bool {
	_, err := e.Retrieve(service, name)
	return err == nil
}
