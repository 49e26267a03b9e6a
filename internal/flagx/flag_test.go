package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "short flag with separate value",
			args:    []string{"-c", "conf.json", "-u", "http://localhost"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-c", "conf.json"},
		},
		{
			name:    "equals form",
			args:    []string{"-config=alt.json", "-u", "x"},
			allowed: []string{"-c", "-config"},
			want:    []string{"-config=alt.json"},
		},
		{
			name:    "unknown flags ignored",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "flag without value at end is kept",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-c", "-t", "5"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "several allowed flags keep order",
			args:    []string{"-u", "http://gw", "-c", "conf.json", "--other", "x", "-t", "3"},
			allowed: []string{"-u", "-t"},
			want:    []string{"-u", "http://gw", "-t", "3"},
		},
		{
			name:    "empty args",
			args:    []string{},
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigFilePath(t *testing.T) {
	t.Run("short flag", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "")
		assert.Equal(t, "a.json", ConfigFilePath([]string{"-u", "x", "-c", "a.json"}))
	})

	t.Run("long flag with equals", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "")
		assert.Equal(t, "b.json", ConfigFilePath([]string{"-config=b.json"}))
	})

	t.Run("flag beats env", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "env.json")
		assert.Equal(t, "flag.json", ConfigFilePath([]string{"-c", "flag.json"}))
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "env.json")
		assert.Equal(t, "env.json", ConfigFilePath(nil))
	})

	t.Run("nothing", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "")
		assert.Equal(t, "", ConfigFilePath([]string{"-u", "x"}))
	})
}
