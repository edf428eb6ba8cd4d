// Package credentials inspects the serverless platform's local credential
// store without modifying it.
//
// The platform keeps tokens in a TOML file (~/.modal.toml by default,
// MODAL_CONFIG_PATH to override) with one table per profile:
//
//	[default]
//	token_id = "ak-..."
//	token_secret = "as-..."
//	active = true
//
// The doctor command uses this to tell learners whether they still need to
// run setup, without making a network call.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// Environment variables consulted by Load.
const (
	EnvConfigPath  = "MODAL_CONFIG_PATH"
	EnvProfile     = "MODAL_PROFILE"
	EnvTokenID     = "MODAL_TOKEN_ID"
	EnvTokenSecret = "MODAL_TOKEN_SECRET"
)

// Profile is one table of the credentials file. Secrets are never exposed
// outside this package; only their presence is.
type Profile struct {
	Name        string `toml:"-" json:"name"`
	TokenID     string `toml:"token_id" json:"tokenId,omitempty"`
	TokenSecret string `toml:"token_secret" json:"-"`
	Active      bool   `toml:"active" json:"active"`
	Environment string `toml:"environment" json:"environment,omitempty"`
}

// HasToken reports whether both halves of the token are present.
func (p Profile) HasToken() bool {
	return p.TokenID != "" && p.TokenSecret != ""
}

// Store is the parsed credentials file.
type Store struct {
	// Path is the file that was read (it may not exist).
	Path string

	// Profiles are sorted by name.
	Profiles []Profile

	// FromEnv is true when token env vars are set; they take precedence
	// over any profile.
	FromEnv bool
}

// DefaultPath returns the credentials file location.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".modal.toml"), nil
}

// Load reads the credentials file at path. A missing file yields an empty
// Store rather than an error.
func Load(path string) (*Store, error) {
	s := &Store{
		Path:    path,
		FromEnv: os.Getenv(EnvTokenID) != "" && os.Getenv(EnvTokenSecret) != "",
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var raw map[string]Profile
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for name, p := range raw {
		p.Name = name
		s.Profiles = append(s.Profiles, p)
	}
	sort.Slice(s.Profiles, func(i, j int) bool {
		return s.Profiles[i].Name < s.Profiles[j].Name
	})
	return s, nil
}

// Active returns the profile the platform would use: MODAL_PROFILE if set,
// else the one marked active, else the only profile. Returns nil when none
// can be determined.
func (s *Store) Active() *Profile {
	if name := os.Getenv(EnvProfile); name != "" {
		for i := range s.Profiles {
			if s.Profiles[i].Name == name {
				return &s.Profiles[i]
			}
		}
		return nil
	}
	for i := range s.Profiles {
		if s.Profiles[i].Active {
			return &s.Profiles[i]
		}
	}
	if len(s.Profiles) == 1 {
		return &s.Profiles[0]
	}
	return nil
}

// Authenticated reports whether usable credentials exist.
func (s *Store) Authenticated() bool {
	if s.FromEnv {
		return true
	}
	p := s.Active()
	return p != nil && p.HasToken()
}

// Describe returns a one-line summary for diagnostics.
func (s *Store) Describe() string {
	if s.FromEnv {
		return fmt.Sprintf("credentials provided by %s/%s", EnvTokenID, EnvTokenSecret)
	}
	if len(s.Profiles) == 0 {
		return fmt.Sprintf("no profiles in %s", s.Path)
	}
	p := s.Active()
	if p == nil {
		return fmt.Sprintf("%d profile(s) in %s but none is active", len(s.Profiles), s.Path)
	}
	if !p.HasToken() {
		return fmt.Sprintf("profile %q has no token", p.Name)
	}
	return fmt.Sprintf("profile %q (token %s)", p.Name, maskToken(p.TokenID))
}

// maskToken keeps the prefix of a token id so learners can match it
// against the dashboard without printing the whole value.
func maskToken(id string) string {
	if len(id) <= 6 {
		return "***"
	}
	return id[:6] + "***"
}
