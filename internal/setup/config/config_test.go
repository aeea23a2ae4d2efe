package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/warden/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadConfigFrom(t *testing.T) {
	t.Parallel()

	const common = `
[common]
version = 1
[common.database]
driver = "sqlite"
path = "test.db"
`
	const bot = `
[bot]
version = 1
admins = ["*!*@staff/*"]
[bot.irc]
host = "irc.example.net"
tls = true
nickname = "warden"
`

	tests := []struct {
		name      string
		common    string
		bot       string
		expectErr error
		check     func(t *testing.T, cfg *config.Config)
	}{
		{
			name:   "applies defaults",
			common: common,
			bot:    bot,
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()
				assert.Equal(t, "test.db", cfg.Common.Database.Path)
				assert.Equal(t, "info", cfg.Common.Debug.LogLevel)
				assert.Equal(t, 6697, cfg.Bot.IRC.Port)
				assert.Equal(t, "warden", cfg.Bot.IRC.Username)
				assert.Equal(t, "warden", cfg.Bot.IRC.Realname)
				assert.Equal(t, "ChanServ", cfg.Bot.ChanServ)
				assert.Equal(t, 10, cfg.Bot.ExpiryInterval)
				assert.Equal(t, []string{"*!*@staff/*"}, cfg.Bot.Admins)
				assert.False(t, cfg.Bot.IRC.SASL.Enabled())
			},
		},
		{
			name:      "missing version",
			common:    "[common]\n",
			bot:       bot,
			expectErr: config.ErrConfigVersionMissing,
		},
		{
			name:      "version mismatch",
			common:    common,
			bot:       "[bot]\nversion = 7\n[bot.irc]\nhost = \"x\"\nnickname = \"y\"\n",
			expectErr: config.ErrConfigVersionMismatch,
		},
		{
			name:      "missing nickname",
			common:    common,
			bot:       "[bot]\nversion = 1\n[bot.irc]\nhost = \"irc.example.net\"\n",
			expectErr: config.ErrMissingNickname,
		},
		{
			name:      "missing bot file",
			common:    common,
			expectErr: config.ErrConfigFileNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			if tt.common != "" {
				writeFile(t, dir, "common.toml", tt.common)
			}
			if tt.bot != "" {
				writeFile(t, dir, "bot.toml", tt.bot)
			}

			cfg, path, err := config.LoadConfigFrom([]string{filepath.Join(dir, "missing"), dir})
			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, dir, path)
			tt.check(t, cfg)
		})
	}
}
