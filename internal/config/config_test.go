package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "be-wo-approvals", cfg.Service.Name)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8086, cfg.Server.Port)
	assert.Equal(t, 9086, cfg.Server.GRPCPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, DefinitionsBuiltin, cfg.Workflow.DefinitionsSource)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "notifications.workorders", cfg.NATS.SubjectPrefix)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "8080")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("SERVER_READ_TIMEOUT", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("STORAGE_DRIVER", "Memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SERVICE_VERSION=9.9.9\nDB_NAME=from_dotenv\n"), 0o600))
	t.Setenv("DB_NAME", "from_env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9.9.9", cfg.Service.Version)
	assert.Equal(t, "from_env", cfg.Database.Database, "real environment wins over .env")

	// godotenv sets process env directly; clear what it added.
	require.NoError(t, os.Unsetenv("SERVICE_VERSION"))
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"production without secret", map[string]string{"ENVIRONMENT": "production"}, "JWT_SECRET"},
		{"bad port", map[string]string{"PORT": "70000"}, "PORT out of range"},
		{"same ports", map[string]string{"PORT": "9000", "GRPC_PORT": "9000"}, "must differ"},
		{"unknown source", map[string]string{"WORKFLOW_DEFINITIONS_SOURCE": "consul"}, "unknown WORKFLOW_DEFINITIONS_SOURCE"},
		{"file without path", map[string]string{"WORKFLOW_DEFINITIONS_SOURCE": "file"}, "WORKFLOW_DEFINITIONS_FILE"},
		{"unknown storage", map[string]string{"STORAGE_DRIVER": "sqlite"}, "unknown STORAGE_DRIVER"},
		{"memory with postgres definitions", map[string]string{"STORAGE_DRIVER": "memory", "WORKFLOW_DEFINITIONS_SOURCE": "postgres"}, "require STORAGE_DRIVER=postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConnString(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, User: "wo", Password: "p@ss", Database: "approvals", SSLMode: "require"}
	assert.Equal(t, "postgres://wo:p%40ss@db:5433/approvals?sslmode=require", d.ConnString())
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
