package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zalando/go-keyring"

	"github.com/digitalkrishi/officer-console/pkg/krishictl/config"
)

// keyringService is the OS keychain service name the tokens live under.
const keyringService = "krishictl"

// StoredToken is the bearer token of one context plus who it belongs to.
type StoredToken struct {
	AccessToken string    `json:"access_token"`
	EmployeeID  string    `json:"employee_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Expiry      time.Time `json:"expiry,omitempty"`
}

// Expired reports whether the token is known to have expired at now.
func (t StoredToken) Expired(now time.Time) bool {
	return !t.Expiry.IsZero() && !now.Before(t.Expiry)
}

// Store persists tokens keyed by context name.
type Store interface {
	Get(key string) (StoredToken, bool, error)
	Save(key string, token StoredToken) error
	Delete(key string) error
}

// NewStore returns the store for kind, defaulting to the OS keychain.
func NewStore(kind, filePath string) (Store, error) {
	switch kind {
	case "", config.TokenStorageKeychain:
		return KeyringStore{}, nil
	case config.TokenStorageFile:
		return &FileStore{Path: filePath}, nil
	}
	return nil, fmt.Errorf("unknown token storage %q", kind)
}

// KeyringStore keeps tokens in the OS keychain.
type KeyringStore struct{}

func (KeyringStore) Get(key string) (StoredToken, bool, error) {
	raw, err := keyring.Get(keyringService, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return StoredToken{}, false, nil
	}
	if err != nil {
		return StoredToken{}, false, fmt.Errorf("failed to read keychain: %w", err)
	}
	var token StoredToken
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return StoredToken{}, false, fmt.Errorf("failed to parse stored token: %w", err)
	}
	return token, true, nil
}

func (KeyringStore) Save(key string, token StoredToken) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := keyring.Set(keyringService, key, string(raw)); err != nil {
		return fmt.Errorf("failed to write keychain: %w", err)
	}
	return nil
}

func (KeyringStore) Delete(key string) error {
	if err := keyring.Delete(keyringService, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keychain entry: %w", err)
	}
	return nil
}

// TokenCache is the on-disk format of FileStore.
type TokenCache struct {
	Tokens map[string]StoredToken `json:"tokens"`
}

func LoadTokenCache(path string) (*TokenCache, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cache TokenCache
	if err := json.Unmarshal(content, &cache); err != nil {
		return nil, fmt.Errorf("failed to parse token cache: %w", err)
	}
	if cache.Tokens == nil {
		cache.Tokens = map[string]StoredToken{}
	}
	return &cache, nil
}

func SaveTokenCache(path string, cache *TokenCache) error {
	if cache == nil {
		return errors.New("token cache is nil")
	}
	if cache.Tokens == nil {
		cache.Tokens = map[string]StoredToken{}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}
	content, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token cache: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

// FileStore keeps tokens in a 0600 JSON file.
type FileStore struct {
	Path string
}

func (f *FileStore) Get(key string) (StoredToken, bool, error) {
	cache, err := LoadTokenCache(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return StoredToken{}, false, nil
		}
		return StoredToken{}, false, err
	}
	token, ok := cache.Tokens[key]
	return token, ok, nil
}

func (f *FileStore) Save(key string, token StoredToken) error {
	cache, err := LoadTokenCache(f.Path)
	if err != nil {
		cache = &TokenCache{Tokens: map[string]StoredToken{}}
	}
	cache.Tokens[key] = token
	return SaveTokenCache(f.Path, cache)
}

func (f *FileStore) Delete(key string) error {
	cache, err := LoadTokenCache(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	delete(cache.Tokens, key)
	return SaveTokenCache(f.Path, cache)
}
