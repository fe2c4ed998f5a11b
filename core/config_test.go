package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		conf, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "DEV", conf.Env)
		assert.False(t, conf.TestMode)
		assert.Equal(t, "funifier", conf.PlanStore)
		assert.Equal(t, "funifier", conf.RosterStore)
		assert.Equal(t, "noreply@localhost", conf.DefaultFromEmail.Address)
		assert.Equal(t, 30*time.Second, conf.Funifier.Timeout)
		assert.Equal(t, "localhost:5432", conf.Database.Address())
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("TEST_PLANSTORE", "Memory")
		t.Setenv("TEST_ROSTERSTORE", "memory")
		t.Setenv("TEST_FUNIFIER_BASEURL", "http://funifier.test/v3/")
		t.Setenv("TEST_SERVER_JWTEXPIRATIONDELTA", "10m")

		conf, err := loadConfig("test")
		require.NoError(t, err)
		assert.Equal(t, "TEST", conf.Env)
		assert.True(t, conf.TestMode)
		assert.Equal(t, "memory", conf.PlanStore)
		assert.Equal(t, "http://funifier.test/v3", conf.Funifier.BaseURL)
		assert.Equal(t, 10*time.Minute, conf.Server.JWTExpirationDelta)
	})

	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("QA_PLANSTORE", "redis")
		_, err := loadConfig("qa")
		assert.Error(t, err)
	})
}
