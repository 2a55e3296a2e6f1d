package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{
			Environment: "development",
		},
		Logger: LoggerConfig{
			Level: "info",
		},
		Bot: BotConfig{
			ChannelPrefix:   "times-",
			DefaultCategory: "times",
			CommandPrefix:   "!",
		},
		Storage: StorageConfig{
			Driver: "file",
			Path:   "/some/path/config.json",
		},
		Platform: PlatformConfig{
			Driver: "memory",
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_StorageDrivers(t *testing.T) {
	tests := []struct {
		driver string
		valid  bool
	}{
		{"file", true},
		{"badger", true},
		{"sqlite", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := validConfig()
			cfg.Storage.Driver = tt.driver

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_RequiredBotFields(t *testing.T) {
	t.Run("empty channel prefix", func(t *testing.T) {
		cfg := validConfig()
		cfg.Bot.ChannelPrefix = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty default category", func(t *testing.T) {
		cfg := validConfig()
		cfg.Bot.DefaultCategory = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty command prefix", func(t *testing.T) {
		cfg := validConfig()
		cfg.Bot.CommandPrefix = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestExpandPath(t *testing.T) {
	t.Run("empty uses default", func(t *testing.T) {
		got, err := expandPath("", "/default")
		require.NoError(t, err)
		assert.Equal(t, "/default", got)
	})

	t.Run("tilde expands to home", func(t *testing.T) {
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := expandPath("~/times/config.json", "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, "times", "config.json"), got)
	})

	t.Run("absolute path is cleaned", func(t *testing.T) {
		got, err := expandPath("/a//b/../c", "")
		require.NoError(t, err)
		assert.Equal(t, "/a/c", got)
	})
}

func TestExpandStoragePath_Defaults(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Run("file driver", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storage.Path = ""
		require.NoError(t, cfg.expandStoragePath())
		assert.Equal(t, filepath.Join(home, ".times-bot", "config.json"), cfg.Storage.Path)
	})

	t.Run("badger driver", func(t *testing.T) {
		cfg := validConfig()
		cfg.Storage.Driver = "badger"
		cfg.Storage.Path = ""
		require.NoError(t, cfg.expandStoragePath())
		assert.Equal(t, filepath.Join(home, ".times-bot", "state"), cfg.Storage.Path)
	})
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ", []string{"a", "b"}},
		{",,a,", []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, splitList(tt.input))
		})
	}
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("TIMES_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "TIMES_TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "TIMES_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "TIMES_TEST_MISSING", "default"))
}

func TestGetBoolConfigValue(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"TRUE", true},
		{"false", false},
		{"0", false},
		{"nope", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, getBoolConfigValue(tt.value, "UNSET", !tt.want))
		})
	}

	t.Run("empty uses default", func(t *testing.T) {
		assert.True(t, getBoolConfigValue("", "UNSET", true))
		assert.False(t, getBoolConfigValue("", "UNSET", false))
	})
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")

	content := "# comment\nTIMES_ENVFILE_A=hello\nTIMES_ENVFILE_B=\"quoted\"\nmalformed line\n"
	require.NoError(t, os.WriteFile(envPath, []byte(content), 0o600))

	t.Setenv("TIMES_ENVFILE_A", "preset")
	defer os.Unsetenv("TIMES_ENVFILE_B")

	require.NoError(t, loadEnvFile(envPath))

	// Existing environment wins over the .env file.
	assert.Equal(t, "preset", os.Getenv("TIMES_ENVFILE_A"))
	assert.Equal(t, "quoted", os.Getenv("TIMES_ENVFILE_B"))
}
