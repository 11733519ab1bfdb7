package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recount/internal/config"
	"recount/internal/engine"
)

func TestResolveConfigOverlays(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recount.yml"), []byte("log:\n  level: warn\n"), 0o644))

	v := viper.New()
	v.Set("redis-addr", "localhost:6390")
	v.Set("log-format", "console")
	cfg, err := ResolveConfig(dir, v)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "localhost:6390", cfg.Redis.Addr)
	assert.Equal(t, config.DriverSQLite, cfg.Database.Driver)

	v.Set("db-driver", "mysql")
	_, err = ResolveConfig(dir, v)
	assert.Error(t, err, "mysql without dsn must be rejected")
}

func TestOpenWiresEngine(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, t.TempDir(), config.Default(), nil)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Engine.Catalog)

	u, err := a.Engine.Register(ctx, engine.RegisterOptions{Name: "Ana", Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)
	scope, err := a.Engine.ScopeFor(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, scope.UserID)
}
