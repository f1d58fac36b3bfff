package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/classmatch-api/pkg/config"
)

func TestBuildConfigSetsInitialFields(t *testing.T) {
	cfg := &config.Config{Env: config.EnvProduction}
	cfg.Backend.Mode = config.BackendModeHTTP
	cfg.Log.Level = "warn"

	zapCfg := buildConfig(cfg)

	assert.Equal(t, "json", zapCfg.Encoding)
	assert.Equal(t, zapcore.WarnLevel, zapCfg.Level.Level())
	assert.Equal(t, map[string]interface{}{
		"service":      "classmatch-api",
		"backend_mode": config.BackendModeHTTP,
	}, zapCfg.InitialFields)
}

func TestBuildConfigFallsBackOnBadLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Log.Level = "loud"
	cfg.Log.Format = "console"

	zapCfg := buildConfig(cfg)

	assert.Equal(t, "console", zapCfg.Encoding)
	assert.Equal(t, zapcore.InfoLevel, zapCfg.Level.Level())
}

func TestGinMiddlewareLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	r := gin.New()
	r.Use(GinMiddleware(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) {
		c.Set(SessionUserKey, "3")
		c.Status(http.StatusNoContent)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for _, path := range []string{"/ok", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "3", entries[0].ContextMap()["user_id"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.EqualValues(t, http.StatusBadGateway, entries[1].ContextMap()["status"])
}
