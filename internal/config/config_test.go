package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/idlekeeper/idlekeeper/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Target
		err  error
	}{
		{
			name: "all arguments",
			args: []string{"play.example.org", "25570", "Keeper", "microsoft"},
			want: Target{Host: "play.example.org", Port: 25570, Username: "Keeper", Auth: "microsoft"},
		},
		{
			name: "non numeric port falls back",
			args: []string{"play.example.org", "abc", "Keeper"},
			want: Target{Host: "play.example.org", Port: game.DefaultPort, Username: "Keeper", Auth: game.AuthOffline},
		},
		{
			name: "empty port falls back",
			args: []string{"play.example.org", "", "Keeper", "OFFLINE"},
			want: Target{Host: "play.example.org", Port: game.DefaultPort, Username: "Keeper", Auth: game.AuthOffline},
		},
		{name: "missing username", args: []string{"play.example.org", "25565"}, err: ErrUsage},
		{name: "missing everything", args: nil, err: ErrUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Reconnect.Delay)
	assert.Equal(t, 14, cfg.AutoEat.Threshold)
	assert.True(t, cfg.AntiIdle.Enabled)
	assert.Contains(t, cfg.AutoEat.BannedFood, "rotten_flesh")
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
bridge:
  url: ws://bridge.local:4000/ws
antiIdle:
  intervalMs: 5000
autoEat:
  threshold: 10
  bannedFood: [spider_eye]
reconnect:
  delay: 30s
discord:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://bridge.local:4000/ws", cfg.Bridge.URL)
	assert.Equal(t, 5*time.Second, cfg.JumpInterval())
	assert.Equal(t, 10, cfg.AutoEat.Threshold)
	assert.Equal(t, []string{"spider_eye"}, cfg.AutoEat.BannedFood)
	assert.Equal(t, 30*time.Second, cfg.Reconnect.Delay)
	assert.False(t, cfg.Discord.Enabled, "discord without token must be switched off")
}

func TestLoadRejectsShortInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("antiIdle:\n  intervalMs: 50\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsZeroReconnectDelay(t *testing.T) {
	for _, body := range []string{"reconnect:\n  delay: 0s\n", "reconnect:\n  manualDelay: 0s\n"} {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		_, err := Load(path)
		assert.Error(t, err, body)
	}
}

func TestEnvOverridesBridgeURL(t *testing.T) {
	t.Setenv(envBridgeURL, "ws://from-env:1234/ws")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ws://from-env:1234/ws", cfg.Bridge.URL)
}

func TestRuntimeToggles(t *testing.T) {
	rt := NewRuntime(Default())

	assert.True(t, rt.AutoReconnect())
	assert.False(t, rt.ToggleAutoReconnect())
	assert.False(t, rt.AutoReconnect())

	assert.False(t, rt.ToggleAntiIdle())
	assert.False(t, rt.ToggleAutoEat())

	assert.Error(t, rt.SetFoodThreshold(21))
	require.NoError(t, rt.SetFoodThreshold(6))
	assert.Equal(t, 6, rt.FoodThreshold())

	assert.True(t, rt.IsBanned("pufferfish"))
	assert.False(t, rt.IsBanned("bread"))
}

func TestBannedFoodIgnoresNamespace(t *testing.T) {
	cfg := Default()
	cfg.AutoEat.BannedFood = []string{"minecraft:rotten_flesh", "spider_eye"}
	rt := NewRuntime(cfg)

	assert.True(t, rt.IsBanned("rotten_flesh"))
	assert.True(t, rt.IsBanned("minecraft:rotten_flesh"))
	assert.True(t, rt.IsBanned("minecraft:spider_eye"))
	assert.Equal(t, []string{"rotten_flesh", "spider_eye"}, rt.BannedFood())
}
