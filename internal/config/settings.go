package config

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Settings is the optional YAML settings file. Unset fields leave the
// corresponding flag or environment default in place.
type Settings struct {
	Transport          string `yaml:"transport"`
	HTTPAddr           string `yaml:"http_addr"`
	MetricsAddr        string `yaml:"metrics_addr"`
	EnableMetrics      *bool  `yaml:"enable_metrics"`
	DotenvDir          string `yaml:"dotenv_dir"`
	ConfigDir          string `yaml:"config_dir"`
	TokenStore         string `yaml:"token_store"`
	TrustCachedSession *bool  `yaml:"trust_cached_session"`
	ReadOnly           *bool  `yaml:"read_only"`
	Debug              *bool  `yaml:"debug"`
}

// LoadSettings reads a settings file. An empty path yields empty settings.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return &Settings{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read settings file %s", path)
	}

	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(err, "parse settings file %s", path)
	}

	if err := s.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid settings file %s", path)
	}
	return &s, nil
}

// Validate checks enumerated fields.
func (s *Settings) Validate() error {
	switch s.Transport {
	case "", "stdio", "sse", "streamable-http":
	default:
		return errors.Newf("unknown transport %q", s.Transport)
	}
	switch s.TokenStore {
	case "", TokenStoreFile, TokenStoreKeyring:
	default:
		return errors.Newf("unknown token store %q", s.TokenStore)
	}
	return nil
}
