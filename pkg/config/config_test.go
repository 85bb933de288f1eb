package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ocaport/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".ocaport.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultUpstreamOrg, cfg.Upstream.Org)
	assert.Equal(t, config.DefaultUpstreamRemote, cfg.Upstream.Remote)
	assert.Equal(t, config.DefaultUpstreamRemote, cfg.ForkRemote())
	assert.True(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Cache.CompressCommitFiles)
	assert.Equal(t, config.DefaultCacheLRUSize, cfg.Cache.LRUSize)
	assert.NotEmpty(t, cfg.Cache.Directory)
	assert.Equal(t, config.DefaultGitHubTokenEnv, cfg.GitHub.TokenEnv)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.False(t, cfg.Logging.JSON)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
	assert.Empty(t, cfg.Metrics.Textfile)
	assert.Equal(t, config.DefaultBlacklistEnvFile, cfg.Blacklist.EnvFile)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, `upstream:
  org: camptocamp
  remote: upstream
fork:
  remote: me
cache:
  enabled: false
  directory: /tmp/ocaport-test
  lru_size: 16
github:
  api_url: https://ghe.example.com/api/v3/
logging:
  level: debug
  json: true
metrics:
  textfile: /tmp/ocaport.prom
`))
	require.NoError(t, err)

	assert.Equal(t, "camptocamp", cfg.Upstream.Org)
	assert.Equal(t, "me", cfg.ForkRemote())
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "/tmp/ocaport-test", cfg.Cache.Directory)
	assert.Equal(t, 16, cfg.Cache.LRUSize)
	assert.Equal(t, "https://ghe.example.com/api/v3/", cfg.GitHub.APIURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, "/tmp/ocaport.prom", cfg.Metrics.Textfile)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("OCAPORT_UPSTREAM_ORG", "from-env")

	cfg, err := config.LoadConfig(writeConfig(t, "upstream:\n  org: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Upstream.Org)
}

func TestLoadConfig_InvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "logging:\n  level: loud\n"))
	require.ErrorIs(t, err, config.ErrInvalidLogLevel)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "upstream: [unterminated\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := config.Config{
		Upstream: config.UpstreamConfig{Org: "OCA", Remote: "origin"},
		Logging:  config.LoggingConfig{Level: "WARN"},
	}
	require.NoError(t, valid.Validate())

	noRemote := valid
	noRemote.Upstream.Remote = " "
	require.ErrorIs(t, noRemote.Validate(), config.ErrEmptyRemote)

	noOrg := valid
	noOrg.Upstream.Org = ""
	require.ErrorIs(t, noOrg.Validate(), config.ErrEmptyOrg)

	badLRU := valid
	badLRU.Cache.LRUSize = -1
	require.ErrorIs(t, badLRU.Validate(), config.ErrInvalidLRUSize)
}
