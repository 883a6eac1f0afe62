package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{EnvAPIKey, EnvTeamID, EnvBaseURL, EnvConfigFile} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

// TestLoad_EnvironmentFillsUnsetFields checks the env fallback for the three
// core settings.
func TestLoad_EnvironmentFillsUnsetFields(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKey, "mk_env")
	t.Setenv(EnvTeamID, "team_env")
	t.Setenv(EnvBaseURL, "https://env.moderately.ai/v1/")

	o := &Options{}
	require.NoError(t, Load(o))

	assert.Equal(t, "mk_env", o.APIKey)
	assert.Equal(t, "team_env", o.TeamID)
	assert.Equal(t, "https://env.moderately.ai/v1", o.BaseURL, "trailing slash is trimmed")
}

// TestLoad_ExplicitOptionsWinOverEnvironment checks precedence.
func TestLoad_ExplicitOptionsWinOverEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKey, "mk_env")

	o := &Options{APIKey: "mk_explicit", TeamID: "team_x"}
	require.NoError(t, Load(o))

	assert.Equal(t, "mk_explicit", o.APIKey)
}

// TestLoad_ConfigFile checks that file values fill gaps but lose to env.
func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTeamID, "team_env")

	path := writeFile(t, "moderately.yaml", `
api_key: mk_file
team_id: team_file
timeout_seconds: 15
retry_count: 5
requests_per_second: 2.5
upload_cache_path: /tmp/uploads.db
upload_cache_ttl_hours: 48
`)

	o := &Options{ConfigFile: path}
	require.NoError(t, Load(o))

	assert.Equal(t, "mk_file", o.APIKey)
	assert.Equal(t, "team_env", o.TeamID, "environment beats the config file")
	assert.Equal(t, 15*time.Second, o.Timeout)
	assert.Equal(t, 5, o.Retries())
	assert.InDelta(t, 2.5, o.RequestsPerSecond, 0)
	assert.Equal(t, "/tmp/uploads.db", o.UploadCachePath)
	assert.Equal(t, 48*time.Hour, o.UploadCacheTTL)
}

// TestLoad_ConfigFileViaEnvVar resolves the file path from the environment.
func TestLoad_ConfigFileViaEnvVar(t *testing.T) {
	clearEnv(t)

	path := writeFile(t, "moderately.yaml", "api_key: mk_file\nteam_id: team_file\n")
	t.Setenv(EnvConfigFile, path)

	o := &Options{}
	require.NoError(t, Load(o))

	assert.Equal(t, "mk_file", o.APIKey)
	assert.Equal(t, "team_file", o.TeamID)
}

// TestLoad_MissingConfigFileErrors rejects an explicitly named but absent file.
func TestLoad_MissingConfigFileErrors(t *testing.T) {
	clearEnv(t)

	o := &Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}
	require.Error(t, Load(o))
}

// TestLoad_EnvFile loads dotenv values without overriding the real environment.
func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTeamID, "team_real")

	path := writeFile(t, ".env", EnvAPIKey+"=mk_dotenv\n"+EnvTeamID+"=team_dotenv\n")

	o := &Options{EnvFile: path}
	require.NoError(t, Load(o))

	assert.Equal(t, "mk_dotenv", o.APIKey)
	assert.Equal(t, "team_real", o.TeamID, "process environment beats the dotenv file")
}

// TestLoad_Defaults checks ApplyDefaults ran.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	o := &Options{APIKey: "k", TeamID: "t"}
	require.NoError(t, Load(o))

	assert.Equal(t, DefaultBaseURL, o.BaseURL)
	assert.Equal(t, DefaultTimeout, o.Timeout)
	assert.Equal(t, DefaultRetryCount, o.Retries())
	assert.Equal(t, DefaultRetryWaitTime, o.RetryWaitTime)
	assert.Equal(t, 1, o.RateBurst)
}

func TestRetries_NegativeMeansZero(t *testing.T) {
	n := -3
	o := &Options{RetryCount: &n}

	assert.Equal(t, 0, o.Retries())
}

func TestValidate(t *testing.T) {
	o := &Options{}
	require.ErrorContains(t, o.Validate(), "missing API key")

	o.APIKey = "k"
	require.ErrorContains(t, o.Validate(), "missing team ID")

	o.TeamID = "t"
	require.NoError(t, o.Validate())
}
