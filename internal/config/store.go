package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"
)

// Token store kinds.
const (
	TokenStoreFile    = "file"
	TokenStoreKeyring = "keyring"
)

// Keyring coordinates for the official access token.
const (
	KeyringService = "ticktick-mcp"
	KeyringUser    = "oauth-token"
)

// ErrNoToken is returned by a TokenStore holding nothing.
var ErrNoToken = errors.New("no cached token")

// TokenStore persists a TokenCache.
type TokenStore interface {
	Load() (*TokenCache, error)
	Save(cache *TokenCache) error
	Clear() error
	String() string
}

// FileStore keeps the token as JSON in a single 0600 file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) String() string { return "file:" + s.path }

// Load reads the cache file, returning ErrNoToken when it does not exist.
func (s *FileStore) Load() (*TokenCache, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, errors.Wrapf(err, "read %s", s.path)
	}
	return DecodeTokenCache(data)
}

// Save writes the cache through a temporary file and rename.
func (s *FileStore) Save(cache *TokenCache) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode token cache")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(s.path))
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "rename %s", tmp)
	}
	return nil
}

// Clear removes the cache file. A missing file is not an error.
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "remove %s", s.path)
	}
	return nil
}

// KeyringStore keeps the token in the OS keyring.
type KeyringStore struct {
	service string
	user    string
}

// NewKeyringStore returns a keyring-backed store.
func NewKeyringStore(service, user string) *KeyringStore {
	return &KeyringStore{service: service, user: user}
}

func (s *KeyringStore) String() string { return "keyring:" + s.service }

// Load reads the token from the keyring; keyring.ErrNotFound means no token.
func (s *KeyringStore) Load() (*TokenCache, error) {
	secret, err := keyring.Get(s.service, s.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoToken
		}
		return nil, errors.Wrap(err, "read token from keyring")
	}
	return DecodeTokenCache([]byte(secret))
}

// Save stores the token JSON in the keyring.
func (s *KeyringStore) Save(cache *TokenCache) error {
	data, err := json.Marshal(cache)
	if err != nil {
		return errors.Wrap(err, "encode token cache")
	}
	if err := keyring.Set(s.service, s.user, string(data)); err != nil {
		return errors.Wrap(err, "write token to keyring")
	}
	return nil
}

// Clear deletes the keyring entry.
func (s *KeyringStore) Clear() error {
	if err := keyring.Delete(s.service, s.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errors.Wrap(err, "delete token from keyring")
	}
	return nil
}
