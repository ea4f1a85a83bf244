package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
interval: 15s
telegram-token: "123456789BOTKEY123456789"
telegram-chat-id: "-1234567890"
pools:
  - id: 1081
    threshold: 5
    name: "USDC.axl/USDT.kava"
  - id: 1135
    threshold: 2
    name: "OSMO/ATOM"
  - id: 7
    threshold: 10
    source: EVM
    address: "0x1111111111111111111111111111111111111111"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig), nil)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Interval)
	assert.Equal(t, "https://lcd.osmosis.zone", cfg.LCDURL)
	assert.Equal(t, 5, cfg.NotifyRetries)
	assert.Equal(t, 5*time.Second, cfg.NotifyRetryDelay)
	assert.True(t, cfg.Notify)

	require.Len(t, cfg.Pools, 3)
	assert.Equal(t, Pool{ID: 1081, Threshold: 5, Name: "USDC.axl/USDT.kava", Source: SourceLCD}, cfg.Pools[0])
	assert.Equal(t, SourceEVM, cfg.Pools[2].Source)
	assert.Equal(t, "Pool #7", cfg.Pools[2].DisplayName())
}

func TestLoadPoolFlagsOverrideFile(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringSlice("pool", nil, "")
	flags.String("rpc", "", "")
	require.NoError(t, flags.Parse([]string{"--pool", "1135:4:OSMO/ATOM v2", "--pool", "1220:2", "--rpc", "http://localhost:8545"}))

	cfg, err := Load(writeConfig(t, sampleConfig), flags)
	require.NoError(t, err)
	require.Len(t, cfg.Pools, 4)

	assert.Equal(t, int64(4), cfg.Pools[1].Threshold)
	assert.Equal(t, "OSMO/ATOM v2", cfg.Pools[1].Name)
	assert.Equal(t, uint64(1220), cfg.Pools[3].ID)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := Config{
		Pools:          []Pool{{ID: 1, Threshold: 2, Source: SourceLCD}},
		Interval:       time.Second,
		LCDURL:         "http://lcd",
		TelegramToken:  "token",
		TelegramChatID: "chat",
		Notify:         true,
	}
	require.NoError(t, base.Validate())

	noPools := base
	noPools.Pools = nil
	assert.Error(t, noPools.Validate())

	dup := base
	dup.Pools = []Pool{{ID: 1, Source: SourceLCD}, {ID: 1, Source: SourceLCD}}
	assert.Error(t, dup.Validate())

	negative := base
	negative.Pools = []Pool{{ID: 1, Threshold: -1, Source: SourceLCD}}
	assert.Error(t, negative.Validate())

	evmNoRPC := base
	evmNoRPC.Pools = []Pool{{ID: 1, Source: SourceEVM, Address: "0x1111111111111111111111111111111111111111"}}
	assert.Error(t, evmNoRPC.Validate())

	noCreds := base
	noCreds.TelegramToken = ""
	assert.Error(t, noCreds.Validate())
	noCreds.Notify = false
	assert.NoError(t, noCreds.Validate())
}

func TestParsePoolSpec(t *testing.T) {
	pool, err := ParsePoolSpec("1220:2:USDC.noble/USDT.kava")
	require.NoError(t, err)
	assert.Equal(t, Pool{ID: 1220, Threshold: 2, Name: "USDC.noble/USDT.kava", Source: SourceLCD}, pool)

	_, err = ParsePoolSpec("1220")
	assert.Error(t, err)
	_, err = ParsePoolSpec("abc:2")
	assert.Error(t, err)
	_, err = ParsePoolSpec("1:x")
	assert.Error(t, err)
}
