package auth

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"socialfetch/pkg/config"
)

func TestCredentialManager(t *testing.T) {
	mockStore := NewMockStore()
	manager := NewManagerWithStores(mockStore)

	cred := &Credential{Service: "x", Name: "bearer_token", Secret: "AAAAAAAAAAAAAAAAAAAAAbearer"}

	if err := manager.Store(cred); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}
	if cred.LastModified.IsZero() {
		t.Error("LastModified should be set on store")
	}

	retrieved, err := manager.Retrieve("x", "bearer_token")
	if err != nil {
		t.Fatalf("Failed to retrieve credential: %v", err)
	}
	if retrieved.Secret != cred.Secret {
		t.Errorf("Secret mismatch: got %s, want %s", retrieved.Secret, cred.Secret)
	}

	creds, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list credentials: %v", err)
	}
	if len(creds) != 1 {
		t.Errorf("Expected 1 credential in list, got %d", len(creds))
	}

	sanitized := Sanitize(cred)
	if sanitized.Secret == cred.Secret {
		t.Error("Secret should be masked")
	}
	if sanitized.Service != "x" || sanitized.Name != "bearer_token" {
		t.Error("Service and name should not be masked")
	}

	if err := manager.Delete("x", "bearer_token"); err != nil {
		t.Errorf("Failed to delete credential: %v", err)
	}
	if _, err := manager.Retrieve("x", "bearer_token"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound after delete, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 credentials after deletion, got %d", mockStore.Count())
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())

	tests := []struct {
		name string
		cred *Credential
	}{
		{"nil", nil},
		{"unknown service", &Credential{Service: "myspace", Name: "api_key", Secret: "s"}},
		{"unknown name", &Credential{Service: "x", Name: "password", Secret: "s"}},
		{"empty secret", &Credential{Service: "x", Name: "bearer_token"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := manager.Store(tt.cred)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = fmt.Errorf("keychain locked")
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)
	require.NoError(t, manager.Store(&Credential{Service: "serp", Name: "api_key", Secret: "serp-key"}))

	assert.Equal(t, 0, broken.Count())
	assert.True(t, working.Exists("serp", "api_key"))

	cred, err := manager.Retrieve("serp", "api_key")
	require.NoError(t, err)
	assert.Equal(t, "serp-key", cred.Secret)
}

func TestManagerDeleteService(t *testing.T) {
	store := NewMockStore()
	manager := NewManagerWithStores(store)

	require.NoError(t, manager.Store(&Credential{Service: "linkedin", Name: "password", Secret: "hunter22"}))
	require.NoError(t, manager.Store(&Credential{Service: "linkedin", Name: "totp_secret", Secret: "JBSWY3DPEHPK3PXP"}))
	require.NoError(t, manager.Store(&Credential{Service: "x", Name: "bearer_token", Secret: "tok"}))

	removed, err := manager.DeleteService("linkedin")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.Count())

	_, err = manager.DeleteService("myspace")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestApplyToKeepsExplicitValues(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())
	require.NoError(t, manager.Store(&Credential{Service: "x", Name: "bearer_token", Secret: "from-store"}))
	require.NoError(t, manager.Store(&Credential{Service: "browserbase", Name: "api_key", Secret: "bb-store"}))

	cfg := config.DefaultConfig()
	cfg.Browserbase.APIKey = "bb-from-env"

	manager.ApplyTo(cfg)

	assert.Equal(t, "from-store", cfg.X.BearerToken)
	assert.Equal(t, "bb-from-env", cfg.Browserbase.APIKey)
	assert.Empty(t, cfg.SERP.APIKey)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	cred := &Credential{Service: "serp", Name: "bearer_token", Secret: "very_secret_bearer"}
	if err := store.Store(cred); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}
	if err := store.Store(&Credential{Service: "serp", Name: "api_key", Secret: "very_secret_key"}); err != nil {
		t.Fatalf("Failed to store second credential: %v", err)
	}

	retrieved, err := store.Retrieve("serp", "bearer_token")
	if err != nil {
		t.Fatalf("Failed to retrieve from encrypted file: %v", err)
	}
	if retrieved.Secret != cred.Secret {
		t.Errorf("Secret mismatch after encryption/decryption")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(content, []byte("very_secret")) {
		t.Error("File contains plaintext secrets")
	}

	// A second store with the same passphrase reads the same file
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	creds, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, creds, 2)

	require.NoError(t, store.Delete("serp", "api_key"))
	require.NoError(t, store.Delete("serp", "bearer_token"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file should be removed with the last credential")
	assert.ErrorIs(t, store.Delete("serp", "api_key"), ErrCredentialsNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Service: "x", Name: "bearer_token", Secret: "tok"}))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = other.Retrieve("x", "bearer_token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	_, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("X_BEARER_TOKEN", "env_bearer")
	t.Setenv("GOOGLE_SERP_API_KEY", "")

	store := NewEnvironmentStore()

	cred, err := store.Retrieve("x", "bearer_token")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if cred.Secret != "env_bearer" {
		t.Errorf("Secret mismatch: got %s, want env_bearer", cred.Secret)
	}

	if store.Exists("serp", "api_key") {
		t.Error("Unset variable should not exist")
	}

	if err := store.Store(cred); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
	if err := store.Delete("x", "bearer_token"); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
}

func TestMockStore(t *testing.T) {
	store := NewMockStore()

	creds, err := store.List()
	if err != nil {
		t.Errorf("Failed to list empty store: %v", err)
	}
	if len(creds) != 0 {
		t.Errorf("Expected 0 credentials, got %d", len(creds))
	}

	if err := store.Store(&Credential{Service: "x", Name: "bearer_token", Secret: "t"}); err != nil {
		t.Errorf("Failed to store credential: %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("Expected 1 credential, got %d", store.Count())
	}
	if !store.Exists("x", "bearer_token") {
		t.Error("Credential should exist")
	}

	store.ListError = fmt.Errorf("injected error")
	if _, err := store.List(); err == nil || err.Error() != "injected error" {
		t.Error("Expected injected error")
	}
}

func TestLookupField(t *testing.T) {
	f, err := LookupField("serp", "bearer_token")
	require.NoError(t, err)
	assert.Equal(t, "GOOGLE_SERP_BEARER_TOKEN", f.EnvVar)

	assert.Equal(t, []string{"browserbase", "linkedin", "serp", "x"}, ServiceNames())
}

func TestShowGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowGuide(&buf, "browserbase")
	assert.Contains(t, buf.String(), "Setting up browserbase credentials")
	assert.Contains(t, buf.String(), "1. Sign in")

	buf.Reset()
	ShowGuide(&buf, "unknown")
	assert.Empty(t, buf.String())
}
