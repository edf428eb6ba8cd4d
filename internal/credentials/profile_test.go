package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoProfiles = `
[default]
token_id = "ak-1234567890"
token_secret = "as-secret"

[workshop]
token_id = "ak-abcdefghij"
token_secret = "as-other"
active = true
environment = "main"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".modal.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvProfile, "")
	t.Setenv(EnvTokenID, "")
	t.Setenv(EnvTokenSecret, "")
}

func TestLoad_MissingFile(t *testing.T) {
	clearCredentialEnv(t)
	path := filepath.Join(t.TempDir(), "nope.toml")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, s.Profiles)
	assert.False(t, s.Authenticated())
	assert.Contains(t, s.Describe(), "no profiles")
}

func TestLoad_ProfilesSortedAndActive(t *testing.T) {
	clearCredentialEnv(t)
	s, err := Load(writeConfig(t, twoProfiles))
	require.NoError(t, err)

	require.Len(t, s.Profiles, 2)
	assert.Equal(t, "default", s.Profiles[0].Name)
	assert.Equal(t, "workshop", s.Profiles[1].Name)

	active := s.Active()
	require.NotNil(t, active)
	assert.Equal(t, "workshop", active.Name)
	assert.Equal(t, "main", active.Environment)
	assert.True(t, s.Authenticated())
	assert.Equal(t, `profile "workshop" (token ak-abc***)`, s.Describe())
}

func TestActive_ProfileEnvOverride(t *testing.T) {
	clearCredentialEnv(t)
	s, err := Load(writeConfig(t, twoProfiles))
	require.NoError(t, err)

	t.Setenv(EnvProfile, "default")
	require.NotNil(t, s.Active())
	assert.Equal(t, "default", s.Active().Name)

	t.Setenv(EnvProfile, "missing")
	assert.Nil(t, s.Active())
	assert.False(t, s.Authenticated())
}

func TestActive_SingleProfileWithoutFlag(t *testing.T) {
	clearCredentialEnv(t)
	s, err := Load(writeConfig(t, "[solo]\ntoken_id = \"ak-x\"\n"))
	require.NoError(t, err)

	require.NotNil(t, s.Active())
	assert.Equal(t, "solo", s.Active().Name)
	assert.False(t, s.Authenticated(), "token secret is missing")
	assert.Contains(t, s.Describe(), "has no token")
}

func TestActive_AmbiguousProfiles(t *testing.T) {
	clearCredentialEnv(t)
	s, err := Load(writeConfig(t, "[a]\ntoken_id = \"x\"\n[b]\ntoken_id = \"y\"\n"))
	require.NoError(t, err)

	assert.Nil(t, s.Active())
	assert.Contains(t, s.Describe(), "none is active")
}

func TestLoad_EnvTokens(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv(EnvTokenID, "ak-env")
	t.Setenv(EnvTokenSecret, "as-env")

	s, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.True(t, s.FromEnv)
	assert.True(t, s.Authenticated())
}

func TestLoad_InvalidTOML(t *testing.T) {
	clearCredentialEnv(t)
	_, err := Load(writeConfig(t, "[broken\n"))
	assert.Error(t, err)
}

func TestDefaultPath_EnvOverride(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/custom.toml")
	p, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.toml", p)
}
