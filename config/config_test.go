package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setDB(t *testing.T) {
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "ct")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "trials")
}

func TestLoadDefaults(t *testing.T) {
	setDB(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://clinicaltrials.gov", cfg.RegistryBaseURL)
	assert.Equal(t, 60*time.Second, cfg.RegistryTimeout)
	assert.Equal(t, "4242", cfg.HTTPPort)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, 5, cfg.SyncWorkers)
	assert.False(t, cfg.ArchiveDocuments)
	assert.Equal(t, "host=localhost user=ct password=secret dbname=trials port=5432 sslmode=disable", cfg.DSN())
}

func TestLoadRequiresDatabase(t *testing.T) {
	for _, key := range []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadArchiveNeedsS3(t *testing.T) {
	setDB(t)
	t.Setenv("ARCHIVE_DOCUMENTS", "true")
	t.Setenv("S3_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_KEY")
}

func TestLoadRegistryOverrides(t *testing.T) {
	t.Setenv("REGISTRY_BASE_URL", "http://localhost:9999")
	t.Setenv("REGISTRY_TIMEOUT", "5s")

	r, err := LoadRegistry()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", r.RegistryBaseURL)
	assert.Equal(t, 5*time.Second, r.RegistryTimeout)
	assert.Equal(t, "documents", r.DocumentDir)
}

func TestTrackedNCTIDs(t *testing.T) {
	cfg := &Config{TrackedStudies: " nct00000001, ,NCT00000002 "}
	assert.Equal(t, []string{"NCT00000001", "NCT00000002"}, cfg.TrackedNCTIDs())
	assert.Empty(t, (&Config{}).TrackedNCTIDs())
}
