// Package config contains shared configuration settings for otpcli
// subcommands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/creachadair/command"
	"gopkg.in/yaml.v3"
)

// Settings are shared settings used by otpcli subcommands. The zero values
// of optional fields are replaced by the corresponding Default entries.
type Settings struct {
	// Algorithm is the default HMAC digest for new credentials.
	Algorithm string `yaml:"algorithm"`

	// Digits is the default code length for new credentials.
	Digits int `yaml:"digits"`

	// Period is the default time step in seconds for new TOTP credentials.
	Period int `yaml:"period"`

	// Issuer is a default issuer attached to new credentials, if set.
	Issuer string `yaml:"issuer"`

	// QRScale is the module size in pixels for PNG output.
	QRScale int `yaml:"qr-scale"`
}

// Default are the settings used when no configuration file is present.
var Default = Settings{
	Algorithm: "sha1",
	Digits:    6,
	Period:    30,
	QRScale:   4,
}

// Load reads settings from the YAML file at path. An empty path or a missing
// file yields the defaults. Fields not set in the file keep their defaults.
func Load(path string) (*Settings, error) {
	s := Default
	if path == "" {
		return &s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &s, nil
	} else if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &s, nil
}

// FromEnv returns the settings associated with env.
func FromEnv(env *command.Env) *Settings { return env.Config.(*Settings) }
