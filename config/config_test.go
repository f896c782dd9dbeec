package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Http.Port)
	assert.Equal(t, "0.0.0.0", cfg.Http.Host)
	assert.Equal(t, "dense", cfg.ML.ModelType)
	assert.Equal(t, 30*time.Second, cfg.Http.Timeout)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  port: 9000
  timeout: 5s
ml:
  model_type: linear
  model_path: /srv/model.json
log:
  level: debug
`), 0o600))

	t.Setenv("PORT", "")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Http.Port)
	assert.Equal(t, 5*time.Second, cfg.Http.Timeout)
	assert.Equal(t, "linear", cfg.ML.ModelType)
	assert.Equal(t, "/srv/model.json", cfg.ML.ModelPath)
	assert.Equal(t, "artifacts/scaler.json", cfg.ML.ScalerPath, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)

	t.Setenv("PORT", "10000")
	t.Setenv("SLOPEFS_SCALER_PATH", "/srv/scaler.json")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10000, cfg.Http.Port)
	assert.Equal(t, "/srv/scaler.json", cfg.ML.ScalerPath)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("PORT", "70000")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [1, 2"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}
