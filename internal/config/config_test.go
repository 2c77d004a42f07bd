package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mqguard.conf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingBrokersSectionIsConfigError(t *testing.T) {
	path := writeConfig(t, `
[Devices]
Enabled =
`)
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "Brokers section is missing", cfgErr.Error())
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	require.Error(t, err)
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
[Brokers]
Enabled = brokerA

[brokerA]
Host = 10.0.0.1
Port = 1883
Transport = mqtt
Topic = room/temp room/humidity

[Devices]
Enabled = device1

[device1]
Guard = device1Guard

[device1Guard]
brokerA room/temp = tempGuard

[tempGuard]
Type = numeric
ValidRangeMin = -10
ValidRangeMax = 40
PeriodMax = 60

[Reporters]
Enabled = console

[console]
Type = print
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Brokers, 1)
	assert.Equal(t, "brokerA", cfg.Brokers[0].Name)
	assert.Equal(t, "10.0.0.1", cfg.Brokers[0].Host)
	assert.Equal(t, 1883, cfg.Brokers[0].Port)
	assert.Equal(t, []string{"room/temp", "room/humidity"}, cfg.Brokers[0].Topics)

	require.Len(t, cfg.Devices, 1)
	assert.Equal(t, "device1", cfg.Devices[0].Name)
	require.Len(t, cfg.Devices[0].Guard.GuardedAlarms(), 1)
	assert.Len(t, cfg.Devices[0].Guard.GuardedAlarms()[0].Alarms, 3)

	require.Len(t, cfg.Reporters, 1)
	assert.Equal(t, "print", cfg.Reporters[0].Type)
}

func TestLoadBrokerDefaultsPort(t *testing.T) {
	path := writeConfig(t, `
[Brokers]
Enabled = brokerA

[brokerA]
Topic = a/b

[Devices]
Enabled =

[Reporters]
Enabled =
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Brokers, 1)
	assert.Equal(t, 1883, cfg.Brokers[0].Port)
	assert.Equal(t, "mqtt", cfg.Brokers[0].Transport)
}

func TestLoadBrokerWithZeroTopicsIsConfigError(t *testing.T) {
	path := writeConfig(t, `
[Brokers]
Enabled = brokerA

[brokerA]
Host = 10.0.0.1
`)
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadUpdateGuardWithNoAlarmsIsConfigError(t *testing.T) {
	path := writeConfig(t, `
[Brokers]
Enabled = brokerA

[brokerA]
Topic = a/b

[Devices]
Enabled = device1

[device1]
Guard = device1Guard

[device1Guard]
brokerA a/b = emptyGuard

[emptyGuard]
`)
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "declares no alarms")
}

func TestLoadDevicePresence(t *testing.T) {
	path := writeConfig(t, `
[Brokers]
Enabled = brokerA

[brokerA]
Topic = room/temp room/presence

[Devices]
Enabled = device1

[device1]
Guard = device1Guard
PresenceTopic = brokerA room/presence
PresenceOnline = online
PresenceOffline = offline

[device1Guard]
brokerA room/temp = tempGuard

[tempGuard]
ErrorCodes = E1 E2

[Reporters]
Enabled =
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Devices, 1)
	assert.True(t, cfg.Devices[0].Guard.Presence().HasPresence())
}

func TestLoadMetricsReporterType(t *testing.T) {
	path := writeConfig(t, `
[Brokers]
Enabled = brokerA

[brokerA]
Topic = a/b

[Devices]
Enabled =

[Reporters]
Enabled = diag

[diag]
Type = metrics
ListenAddress = 0.0.0.0
ListenPort = 9090
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Reporters, 1)
	assert.Equal(t, "metrics", cfg.Reporters[0].Type)
	assert.Equal(t, 9090, cfg.Reporters[0].ListenPort)
}

func TestLoadUnknownReporterTypeIsConfigError(t *testing.T) {
	path := writeConfig(t, `
[Brokers]
Enabled = brokerA

[brokerA]
Topic = a/b

[Devices]
Enabled =

[Reporters]
Enabled = weird

[weird]
Type = carrier-pigeon
`)
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
}
