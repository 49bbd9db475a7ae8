package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/SlavkoMuzdeka/Portfolio-Analytics/internal/config"
)

func TestCommandsAreRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])

	assert.NotNil(t, serveCmd.RunE)
	assert.NotNil(t, migrateCmd.RunE)
}

func TestFlagDefaults(t *testing.T) {
	logFlag := rootCmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, logFlag)
	assert.Equal(t, "", logFlag.DefValue)

	configFlag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)

	memoryFlag := serveCmd.Flags().Lookup("memory")
	require.NotNil(t, memoryFlag)
	assert.Equal(t, "false", memoryFlag.DefValue)
}

func TestInitLoggerLevels(t *testing.T) {
	defer zap.ReplaceGlobals(zap.NewNop())

	initLogger("debug")
	assert.True(t, zap.L().Core().Enabled(zapcore.DebugLevel))

	initLogger("warn")
	assert.False(t, zap.L().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, zap.L().Core().Enabled(zapcore.WarnLevel))

	initLogger("bogus")
	assert.True(t, zap.L().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, zap.L().Core().Enabled(zapcore.DebugLevel))
}

func TestGinMode(t *testing.T) {
	assert.Equal(t, gin.DebugMode, ginMode("DEBUG"))
	assert.Equal(t, gin.ReleaseMode, ginMode("info"))
	assert.Equal(t, gin.ReleaseMode, ginMode(""))
}

func TestBuildServerInMemory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, closeStore, err := buildServer(context.Background(), config.Config{
		Auth0Domain: "tenant.example.com",
		APIAudience: "portfolio-api",
	}, true)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.Close()
		_ = closeStore()
	})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","mode":"memory"}`, w.Body.String())
}

func TestBuildServerWithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, closeStore, err := buildServer(context.Background(), config.Config{}, false)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.Close()
		_ = closeStore()
	})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.JSONEq(t, `{"status":"ok","mode":"no-db"}`, w.Body.String())
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	previous := cfg
	t.Cleanup(func() { cfg = previous })
	cfg = config.Config{}

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	err := runMigrate(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestServeRejectsIncompleteConfig(t *testing.T) {
	previous := cfg
	t.Cleanup(func() { cfg = previous })
	cfg = config.Config{APIAudience: "portfolio-api"}

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	err := runServe(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH0_DOMAIN")
}
