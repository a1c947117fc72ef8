package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the loader at an empty secrets directory and a test
// environment so the host machine does not leak in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SECRETS_DIR", dir)
	t.Setenv("ENV", "test")
	t.Setenv("CI", "")
	return dir
}

func writeSecret(t *testing.T, dir, name, value string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(value+"\n"), 0o600))
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, Test, cfg.Environment)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr())
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, CatalogFromFile, cfg.CatalogSource)
	assert.Equal(t, 3*time.Second, cfg.SolverTimeout)
	assert.Equal(t, 100000, cfg.SolverMaxNodes)
	assert.Equal(t, 4, cfg.MaxConcurrentSolves)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/catalog.db")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("CATALOG_SOURCE", "s3")
	t.Setenv("CATALOG_BUCKET", "foods")
	t.Setenv("SOLVER_TIMEOUT", "500ms")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("PARSER_API_KEY", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/tmp/catalog.db", cfg.SQLitePath)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, "foods", cfg.CatalogBucket)
	assert.Equal(t, 500*time.Millisecond, cfg.SolverTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, "from-env", cfg.ParserAPIKey)
}

func TestSecretsTakePrecedence(t *testing.T) {
	dir := isolate(t)
	writeSecret(t, dir, "db_password", "from-file")
	t.Setenv("DB_PASSWORD", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.DBPassword)
}

func TestProductionReadsOnlySecrets(t *testing.T) {
	dir := isolate(t)
	t.Setenv("ENV", "production")
	t.Setenv("DB_PASSWORD", "from-env")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db_password")

	writeSecret(t, dir, "db_password", "from-file")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "from-file", cfg.DBPassword)
}

func TestCIReadsEnvironmentOnly(t *testing.T) {
	dir := isolate(t)
	t.Setenv("CI", "true")
	writeSecret(t, dir, "db_password", "from-file")
	t.Setenv("DB_PASSWORD", "from-env")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, CI, cfg.Environment)
	assert.Equal(t, "from-env", cfg.DBPassword)
}

func TestLoadConfigRejectsMalformedNumbers(t *testing.T) {
	isolate(t)
	t.Setenv("MAX_CONCURRENT_SOLVES", "many")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "MAX_CONCURRENT_SOLVES")
}

func TestValidateConfigCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		ServerPort:          "http",
		DBDriver:            "mysql",
		CatalogSource:       "ftp",
		SolverTimeout:       0,
		MaxConcurrentSolves: 0,
		LogFormat:           "xml",
	}

	err := ValidateConfig(cfg)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, len(verrs))
	for i, v := range verrs {
		fields[i] = v.Field
	}
	assert.ElementsMatch(t, []string{
		"SERVER_PORT", "DB_DRIVER", "CATALOG_SOURCE", "SOLVER_TIMEOUT", "MAX_CONCURRENT_SOLVES", "LOG_FORMAT",
	}, fields)
}

func TestValidateConfigS3NeedsBucket(t *testing.T) {
	cfg := &Config{
		ServerPort:          "8080",
		DBDriver:            "sqlite",
		SQLitePath:          "x.db",
		CatalogSource:       CatalogFromS3,
		CatalogKey:          "food.csv",
		SolverTimeout:       time.Second,
		MaxConcurrentSolves: 1,
		LogFormat:           "json",
	}
	err := ValidateConfig(cfg)
	assert.ErrorContains(t, err, "CATALOG_BUCKET")
}
