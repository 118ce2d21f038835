package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]interface{}
		wantErr   string
	}{
		{"defaults with secret", map[string]interface{}{"jwt.secret": "s"}, ""},
		{"memory driver", map[string]interface{}{"jwt.secret": "s", "storage.driver": "memory"}, ""},
		{"missing secret", nil, "jwt.secret must be set"},
		{"unknown driver", map[string]interface{}{"jwt.secret": "s", "storage.driver": "sqlite"}, "unknown storage driver"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseConfig(newViper(tt.overrides))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestDefaults(t *testing.T) {
	c, err := ParseConfig(newViper(map[string]interface{}{"jwt.secret": "s"}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", c.Address())
	assert.Equal(t, 10*time.Second, c.Server.RequestTimeout)
	assert.Equal(t, []string{"admin@campus.com"}, c.Auth.AdminEmails)
	assert.Equal(t, "@every 10m", c.Worker.SweepSchedule)
	assert.Equal(t, "campusres:changes", c.Redis.ChangesChannel)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("CAMPUSRES_TEST_VALUE", "set")
	assert.Equal(t, "set", GetEnv("CAMPUSRES_TEST_VALUE", "fallback"))
	assert.Equal(t, "fallback", GetEnv("CAMPUSRES_TEST_MISSING", "fallback"))
}
