package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
feed:
  websocket_url: wss://ws.example.com
engine:
  symbols: [AAPL, MSFT]
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Engine.Symbols)
	assert.Equal(t, 100, cfg.Engine.CoreShares)
	assert.Equal(t, 25, cfg.Engine.TStepShares)
	assert.True(t, cfg.Engine.SimulationMode)
	assert.Equal(t, "09:30", cfg.Market.Open)
	assert.Equal(t, 5*time.Second, cfg.Market.PollInterval)
	assert.Equal(t, 15*time.Minute, cfg.Risk.Cooldown)
	assert.Equal(t, "15:45", cfg.Risk.CloseOnlyAfter)
	assert.Equal(t, "t0pilot.events", cfg.Kafka.Topic)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.ClickHouse.Enabled)
}

func TestLoadExplicitValuesWin(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
feed:
  websocket_url: wss://ws.example.com
risk:
  max_round_trips: 5
  cooldown: 1m
engine:
  symbols: [NVDA]
  t_step_shares: 10
  t_max_shares: 30
`))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Risk.MaxRoundTrips)
	assert.Equal(t, time.Minute, cfg.Risk.Cooldown)
	assert.Equal(t, []string{"NVDA"}, cfg.Engine.Symbols)
	assert.Equal(t, 10, cfg.Engine.TStepShares)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := map[string]string{
		"missing feed url": `
engine:
  symbols: [AAPL]
`,
		"no symbols": `
feed:
  websocket_url: wss://ws.example.com
engine:
  symbols: []
`,
		"step above max": `
feed:
  websocket_url: wss://ws.example.com
engine:
  symbols: [AAPL]
  t_step_shares: 60
  t_max_shares: 50
`,
		"kafka without brokers": minimalConfig + `
kafka:
  enabled: true
`,
		"telegram without chat id": minimalConfig + `
telegram:
  enabled: true
  token: abc
`,
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("FEED_TOKEN", "secret-token")
	t.Setenv("SYMBOLS", "TSLA,AMD")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "secret-token", cfg.Feed.Token)
	assert.Equal(t, []string{"TSLA", "AMD"}, cfg.Engine.Symbols)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, int64(12345), cfg.Telegram.ChatID)
}

func TestLoadWithEnvBadChatID(t *testing.T) {
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	_, err := LoadWithEnv(writeConfig(t, minimalConfig))
	assert.Error(t, err)
}
