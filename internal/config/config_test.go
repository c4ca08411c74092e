package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedKeys = []string{
	"APP_PORT", "LOG_LEVEL", "STORAGE_DRIVER", "SQLITE_PATH", "MONGODB_URI", "MONGODB_DB_NAME",
	"MONITOR_CRON_SCHEDULE", "REPORT_CRON_SCHEDULE", "TIMEZONE", "CATALOG_SEED_ON_START",
	"WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "META_VERIFY_TOKEN", "WHATSAPP_NOTIFY_TO",
	"GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_DATABASE_ID", "EXPORT_S3_BUCKET", "EXPORT_S3_PATH_STYLE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedKeys {
		// Setenv registers the restore; Unsetenv lets godotenv fill the key.
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func emptyEnvFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(emptyEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "hatchery.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "0 */12 * * *", cfg.Schedule.MonitorCron)
	assert.Equal(t, "0 20 * * 5", cfg.Schedule.ReportCron)
	assert.True(t, cfg.Catalog.SeedOnStart)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.Export.ArchiveEnabled())
	assert.Equal(t, "Batches!A:F", cfg.Sheets.BatchRange)
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORAGE_DRIVER=memory\nCATALOG_SEED_ON_START=false\nEXPORT_S3_BUCKET=eggs\nEXPORT_S3_PATH_STYLE=true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.False(t, cfg.Catalog.SeedOnStart)
	assert.True(t, cfg.Export.ArchiveEnabled())
	assert.True(t, cfg.Export.S3PathStyle)
}

func TestValidate_Rejections(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver":    {"STORAGE_DRIVER": "postgres"},
		"mongo without uri": {"STORAGE_DRIVER": "mongodb"},
		"bad timezone":      {"TIMEZONE": "Mars/Olympus"},
		"half whatsapp":     {"WHATSAPP_TOKEN": "tok"},
		"sheets without id": {"GOOGLE_SHEETS_CREDENTIALS_PATH": "/tmp/creds.json"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(emptyEnvFile(t))
			assert.Error(t, err)
		})
	}
}
