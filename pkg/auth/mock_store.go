package auth

import "sync"

// MockStore implements CredentialStore in memory for tests
type MockStore struct {
	creds map[string]*Credential
	mu    sync.RWMutex

	// Error injection for testing
	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates a new mock credential store
func NewMockStore() *MockStore {
	return &MockStore{
		creds: make(map[string]*Credential),
	}
}

// Store saves a copy of the credential
func (m *MockStore) Store(cred *Credential) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if cred == nil || cred.Service == "" || cred.Name == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *cred
	m.creds[cred.Key()] = &cp
	return nil
}

// Retrieve returns a copy of the stored credential
func (m *MockStore) Retrieve(service, name string) (*Credential, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.creds[key(service, name)]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	cp := *cred
	return &cp, nil
}

// List returns copies of all credentials
func (m *MockStore) List() ([]*Credential, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Credential
	for _, cred := range m.creds {
		cp := *cred
		out = append(out, &cp)
	}
	return out, nil
}

// Delete removes a credential
func (m *MockStore) Delete(service, name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := key(service, name)
	if _, ok := m.creds[k]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.creds, k)
	return nil
}

// Exists checks if a credential is stored
func (m *MockStore) Exists(service, name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.creds[key(service, name)]
	return ok
}

// Count returns the number of stored credentials
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.creds)
}
